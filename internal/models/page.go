package models

import (
	"fmt"
	"strings"
	"time"
)

// KeySeparator joins a clean title and a language code into a unique key.
// The triple underscore keeps "Foo_bar" titles unambiguous.
const KeySeparator = "___"

// PageInfo identifies one requested page inside a single analysis.
type PageInfo struct {
	OriginalInput string `json:"original_input"`
	CleanTitle    string `json:"clean_title"`
	Language      string `json:"language"`
	UniqueKey     string `json:"unique_key"`
}

// BuildKey composes the matrix row key for a title in a language edition.
func BuildKey(cleanTitle, language string) string {
	return cleanTitle + KeySeparator + language
}

// Validate checks that the page info is usable as a matrix row.
func (p *PageInfo) Validate() error {
	if p.CleanTitle == "" {
		return fmt.Errorf("clean title must not be empty")
	}
	if len(p.Language) < 2 {
		return fmt.Errorf("language code %q too short", p.Language)
	}
	if p.UniqueKey != BuildKey(p.CleanTitle, p.Language) {
		return fmt.Errorf("unique key %q does not match title and language", p.UniqueKey)
	}
	return nil
}

// Revision is one entry from a page's revision history. Instances are
// transient: collectors build them while fetching and drop them on return.
type Revision struct {
	ID        int64     `json:"revid"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Anonymous bool      `json:"anon"`
	Minor     bool      `json:"minor"`
	Size      int       `json:"size"`
	Comment   string    `json:"comment"`
}

// InWindow reports whether the revision falls inside [start, end].
func (r *Revision) InWindow(start, end time.Time) bool {
	return !r.Timestamp.Before(start) && !r.Timestamp.After(end)
}

// Day returns the UTC day bucket of the revision, for daily grouping.
func (r *Revision) Day() string {
	return r.Timestamp.UTC().Format("2006-01-02")
}

// Contribution is one entry of a user's own contribution history.
type Contribution struct {
	Timestamp time.Time `json:"timestamp"`
	SizeDiff  int       `json:"sizediff"`
}

// PageScores holds the composite indicators for one page, post-scaling
// (percent-like, in [0, 100]).
type PageScores struct {
	Heat        float64 `json:"heat"`
	Quality     float64 `json:"quality"`
	Risk        float64 `json:"risk"`
	Sensitivity float64 `json:"sensitivity"`

	RawHeat    float64 `json:"raw_heat"`
	RawQuality float64 `json:"raw_quality"`
	RawRisk    float64 `json:"raw_risk"`
}

// PageResult is one row of the analysis report.
type PageResult struct {
	Title         string             `json:"title"`
	OriginalInput string             `json:"original_input"`
	Language      string             `json:"language"`
	UniqueKey     string             `json:"unique_key"`
	Status        string             `json:"status"`
	Scores        PageScores         `json:"scores"`
	Metrics       map[string]float64 `json:"metrics"`
}

// Summary aggregates analysis-wide counters for the report envelope.
type Summary struct {
	TotalPages        int            `json:"total_pages"`
	Languages         map[string]int `json:"languages"`
	StartDate         string         `json:"start_date"`
	EndDate           string         `json:"end_date"`
	BatchSize         int            `json:"batch_size"`
	ProcessingSeconds float64        `json:"processing_time"`
}

// AnalysisResult is the JSON envelope handed to the transport layer.
type AnalysisResult struct {
	Pages   []PageResult `json:"pages"`
	Summary Summary      `json:"summary"`
	Error   string       `json:"error,omitempty"`
}

// Page statuses reported in the envelope.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// TitleFromKey recovers the clean title part of a unique key. Returns the
// key unchanged when the separator is absent.
func TitleFromKey(key string) string {
	if i := strings.LastIndex(key, KeySeparator); i >= 0 {
		return key[:i]
	}
	return key
}
