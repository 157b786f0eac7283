package collectors

import (
	"regexp"
	"strings"

	"github.com/opinionscience/wikimetron/internal/models"
)

// Editor kinds, as exposed in edit-timeseries breakdowns.
const (
	EditorAnonymous  = "anonymous"
	EditorBot        = "bot"
	EditorRegistered = "registered"
)

var (
	ipPattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$|^([0-9a-fA-F]{0,4}:){1,7}[0-9a-fA-F]{0,4}$`)
	// Temporary accounts are auto-created names like ~2024-12345-67.
	tempAccountPattern = regexp.MustCompile(`^~\d{4}(?:-\d{1,5})+$`)
)

// IsIPUser reports whether a username is an IPv4 or IPv6 address.
func IsIPUser(name string) bool {
	return ipPattern.MatchString(name)
}

// IsTemporaryAccount reports whether a username is a temporary account.
func IsTemporaryAccount(name string) bool {
	return tempAccountPattern.MatchString(name)
}

// IsAnonymousEdit reports whether a revision came from an unregistered
// editor, either flagged anonymous, an IP username, or a temporary account.
func IsAnonymousEdit(r models.Revision) bool {
	return r.Anonymous || IsIPUser(r.User) || IsTemporaryAccount(r.User)
}

// IsBotName applies the convention that bot accounts carry "bot" in their
// name or act through the MediaWiki system account. Heuristic only; flagged
// bot accounts without the suffix pass.
func IsBotName(name string) bool {
	return strings.Contains(strings.ToLower(name), "bot") || strings.HasPrefix(name, "MediaWiki")
}

// ClassifyEditor buckets a revision's author for timeseries breakdowns.
func ClassifyEditor(r models.Revision) string {
	switch {
	case IsAnonymousEdit(r):
		return EditorAnonymous
	case IsBotName(r.User):
		return EditorBot
	default:
		return EditorRegistered
	}
}
