// Package resolver turns raw user inputs (bare titles or full Wikipedia
// URLs) into normalized page identities for the scoring pipeline.
package resolver

import (
	"net/url"
	"strings"

	"github.com/opinionscience/wikimetron/internal/models"
)

const wikipediaHostSuffix = ".wikipedia.org"

// Resolve maps one input string to a PageInfo. URLs of the form
// https://{lang}.wikipedia.org/wiki/{title} contribute their own language;
// anything else is treated as a bare title in defaultLang. Resolve never
// fails: unrecognized inputs pass through as-is.
func Resolve(input, defaultLang string) models.PageInfo {
	raw := strings.TrimSpace(input)
	title, lang := raw, defaultLang

	if strings.HasPrefix(strings.ToLower(raw), "http") {
		if t, l, ok := parseWikipediaURL(raw); ok {
			title, lang = t, l
		}
	}

	title = strings.TrimSpace(strings.ReplaceAll(title, "_", " "))
	if title == "" {
		title = raw
	}

	return models.PageInfo{
		OriginalInput: input,
		CleanTitle:    title,
		Language:      lang,
		UniqueKey:     models.BuildKey(title, lang),
	}
}

// ResolveAll resolves every input and collapses duplicates, keeping the
// first occurrence order. Blank inputs are dropped.
func ResolveAll(inputs []string, defaultLang string) []models.PageInfo {
	seen := make(map[string]struct{}, len(inputs))
	out := make([]models.PageInfo, 0, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in) == "" {
			continue
		}
		p := Resolve(in, defaultLang)
		if _, dup := seen[p.UniqueKey]; dup {
			continue
		}
		seen[p.UniqueKey] = struct{}{}
		out = append(out, p)
	}
	return out
}

// KeyIndex builds the (clean_title, language) -> unique_key lookup used to
// remap collector results onto matrix rows.
func KeyIndex(pages []models.PageInfo) map[string]string {
	idx := make(map[string]string, len(pages))
	for _, p := range pages {
		idx[p.CleanTitle+"\x00"+p.Language] = p.UniqueKey
	}
	return idx
}

// LookupKey resolves a collector-returned title back to its unique key.
func LookupKey(idx map[string]string, title, lang string) (string, bool) {
	k, ok := idx[title+"\x00"+lang]
	return k, ok
}

func parseWikipediaURL(raw string) (title, lang string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}
	host := strings.ToLower(u.Hostname())
	if !strings.HasSuffix(host, wikipediaHostSuffix) {
		return "", "", false
	}
	sub := strings.TrimSuffix(host, wikipediaHostSuffix)
	// Keep only the leading label ("fr" from "fr.m").
	if i := strings.Index(sub, "."); i >= 0 {
		sub = sub[:i]
	}
	if sub == "" || sub == "www" {
		return "", "", false
	}

	const marker = "/wiki/"
	path := u.EscapedPath()
	i := strings.Index(path, marker)
	if i < 0 {
		return "", "", false
	}
	segment := path[i+len(marker):]
	if segment == "" {
		return "", "", false
	}
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		decoded = segment
	}
	return decoded, sub, true
}
