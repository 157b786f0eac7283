package api

import (
	"fmt"

	"github.com/opinionscience/wikimetron/internal/pipeline"
)

// maxPagesPerRequest bounds one analysis submission.
const maxPagesPerRequest = 100

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Pages     []string `json:"pages"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Language  string   `json:"default_language,omitempty"`
	BatchSize int      `json:"batch_size,omitempty"`
}

// Validate checks the submission before a task is created for it.
func (req *AnalyzeRequest) Validate() error {
	nonBlank := 0
	for _, p := range req.Pages {
		if p != "" {
			nonBlank++
		}
	}
	if nonBlank == 0 {
		return ValidationError{Field: "pages", Message: "at least one page is required"}
	}
	if len(req.Pages) > maxPagesPerRequest {
		return ValidationError{Field: "pages", Message: fmt.Sprintf("at most %d pages per request", maxPagesPerRequest)}
	}
	if req.StartDate == "" || req.EndDate == "" {
		return ValidationError{Field: "start_date", Message: "start_date and end_date are required (YYYY-MM-DD)"}
	}
	if _, err := pipeline.ParseWindow(req.StartDate, req.EndDate); err != nil {
		return ValidationError{Field: "start_date", Message: err.Error()}
	}
	if req.BatchSize < 0 || req.BatchSize > maxPagesPerRequest {
		return ValidationError{Field: "batch_size", Message: fmt.Sprintf("batch_size must be in [0, %d]", maxPagesPerRequest)}
	}
	if req.Language != "" && len(req.Language) < 2 {
		return ValidationError{Field: "language", Message: "language must be a wiki language code"}
	}
	return nil
}
