package collectors

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	refTagPattern = regexp.MustCompile(`(?i)<ref[ >]`)
	urlPattern    = regexp.MustCompile(`https?://[^\s<>"]+`)
)

// countRefTags counts opening <ref> tags in wikitext.
func countRefTags(text string) int {
	return len(refTagPattern.FindAllString(text, -1))
}

// extractHosts pulls the hostname of every URL found in wikitext. Duplicate
// hosts are preserved so callers can measure concentration.
func extractHosts(text string) []string {
	var hosts []string
	for _, raw := range urlPattern.FindAllString(text, -1) {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		hosts = append(hosts, strings.ToLower(u.Hostname()))
	}
	return hosts
}

// countCitationNeeded counts {{citation needed}}-style templates for the
// language's known template names. The name must be followed by a parameter
// separator or the closing braces; RE2's \b is ASCII-only and would never
// terminate non-Latin template names.
func countCitationNeeded(text, lang string) int {
	names := citationTemplatesFor(lang)
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	pattern := regexp.MustCompile(`(?i)\{\{\s*(?:` + strings.Join(quoted, "|") + `)\s*(?:\|[^}]*)?\}\}`)
	return len(pattern.FindAllString(text, -1))
}
