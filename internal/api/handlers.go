package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/opinionscience/wikimetron/internal/collectors"
	"github.com/opinionscience/wikimetron/internal/metrics"
	"github.com/opinionscience/wikimetron/internal/models"
	"github.com/opinionscience/wikimetron/internal/pipeline"
	"github.com/opinionscience/wikimetron/internal/wiki"
)

// Analyzer runs one scoring analysis. Satisfied by *pipeline.Pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.Request) (*models.AnalysisResult, error)
}

// TimeseriesSource serves the raw per-day series behind the chart
// endpoints. Satisfied by *wiki.Client.
type TimeseriesSource interface {
	Pageviews(ctx context.Context, lang, title string, start, end time.Time) ([]wiki.DailyViews, error)
	EditTimeseries(ctx context.Context, lang, title string, start, end time.Time, filter func(models.Revision) bool) (map[string]int, error)
}

// AnalyzeAccepted is the 202 body of POST /api/analyze.
type AnalyzeAccepted struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// handleAnalyze — POST /api/analyze — validates the submission, registers
// a task and runs the analysis in the background.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, ErrCodeValidation, "invalid JSON body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		metrics.APIErrorsTotal.WithLabelValues(ErrCodeValidation).Inc()
		writeValidationError(w, r, err)
		return
	}

	task, err := s.tasks.Create()
	if err != nil {
		metrics.APIErrorsTotal.WithLabelValues(ErrCodeTaskRejected).Inc()
		writeAPIError(w, r, http.StatusServiceUnavailable, ErrCodeTaskRejected, "too many queued analyses", err.Error())
		return
	}

	// The analysis outlives the HTTP request; results are collected via
	// GET /api/tasks/{id}.
	go s.runAnalysis(task.ID, req)

	respondJSON(w, http.StatusAccepted, AnalyzeAccepted{TaskID: task.ID, Status: task.Status})
}

func (s *Server) runAnalysis(taskID string, req AnalyzeRequest) {
	result, err := s.analyzer.Analyze(context.Background(), pipeline.Request{
		Inputs:    req.Pages,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Language:  req.Language,
		BatchSize: req.BatchSize,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("task_id", taskID).Msg("Analysis failed")
		s.tasks.Fail(taskID, err)
		return
	}
	s.tasks.Complete(taskID, result)
}

// handleTasks — GET /api/tasks — lists every stored task without result
// payloads.
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	tasks := s.tasks.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// handleTask — GET /api/tasks/{id} — returns task state and, when
// finished, the full result envelope.
func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.tasks.Get(r.PathValue("id"))
	if !ok {
		writeAPIError(w, r, http.StatusNotFound, ErrCodeNotFound, "unknown task", "")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// timeseriesQuery holds the validated parameters shared by the chart
// endpoints.
type timeseriesQuery struct {
	title  string
	lang   string
	window collectors.Window
	start  string
	end    string
}

func (s *Server) parseTimeseriesQuery(r *http.Request) (timeseriesQuery, error) {
	q := timeseriesQuery{
		title: r.URL.Query().Get("title"),
		lang:  queryDefault(r, "lang", s.cfg.Analysis.DefaultLanguage),
		start: r.URL.Query().Get("start"),
		end:   r.URL.Query().Get("end"),
	}
	if q.title == "" {
		return q, ValidationError{Field: "title", Message: "title is required"}
	}
	if q.start == "" || q.end == "" {
		return q, ValidationError{Field: "start", Message: "start and end are required (YYYY-MM-DD)"}
	}
	window, err := pipeline.ParseWindow(q.start, q.end)
	if err != nil {
		return q, ValidationError{Field: "start", Message: err.Error()}
	}
	q.window = window
	return q, nil
}

// handlePageviews — GET /api/pageviews — daily view counts for one
// article.
func (s *Server) handlePageviews(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseTimeseriesQuery(r)
	if err != nil {
		writeValidationError(w, r, err)
		return
	}

	views, err := s.timeseries.Pageviews(r.Context(), q.lang, q.title, q.window.Start, q.window.End)
	if err != nil {
		if errors.Is(err, wiki.ErrNotFound) {
			writeAPIError(w, r, http.StatusNotFound, ErrCodeNotFound, "no pageview data for this article", "")
			return
		}
		s.logger.Error().Err(err).Str("title", q.title).Msg("Pageviews lookup failed")
		writeAPIError(w, r, http.StatusBadGateway, ErrCodeInternal, "upstream pageviews request failed", "")
		return
	}

	type bucket struct {
		Day   string `json:"day"`
		Views int64  `json:"views"`
	}
	buckets := make([]bucket, 0, len(views))
	for _, v := range views {
		buckets = append(buckets, bucket{Day: v.Day.Format("2006-01-02"), Views: v.Views})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"title":    q.title,
		"language": q.lang,
		"start":    q.start,
		"end":      q.end,
		"items":    buckets,
	})
}

// handleEditTimeseries — GET /api/edit-timeseries — daily edit counts,
// optionally restricted to one editor kind.
func (s *Server) handleEditTimeseries(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseTimeseriesQuery(r)
	if err != nil {
		writeValidationError(w, r, err)
		return
	}

	editorType := queryDefault(r, "editor_type", "all")
	var filter func(models.Revision) bool
	switch editorType {
	case "all":
	case collectors.EditorAnonymous, collectors.EditorBot, collectors.EditorRegistered:
		filter = func(rev models.Revision) bool { return collectors.ClassifyEditor(rev) == editorType }
	default:
		writeValidationError(w, r, ValidationError{Field: "editor_type",
			Message: "editor_type must be one of all, registered, bot, anonymous"})
		return
	}

	series, err := s.timeseries.EditTimeseries(r.Context(), q.lang, q.title, q.window.Start, q.window.End, filter)
	if err != nil {
		if errors.Is(err, wiki.ErrNotFound) {
			writeAPIError(w, r, http.StatusNotFound, ErrCodeNotFound, "page not found", "")
			return
		}
		s.logger.Error().Err(err).Str("title", q.title).Msg("Edit timeseries lookup failed")
		writeAPIError(w, r, http.StatusBadGateway, ErrCodeInternal, "upstream revision request failed", "")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"title":       q.title,
		"language":    q.lang,
		"start":       q.start,
		"end":         q.end,
		"editor_type": editorType,
		"series":      series,
	})
}
