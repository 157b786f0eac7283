package api

import (
	"net/http"
	"time"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Uptime      int64  `json:"uptime"`
	Version     string `json:"version"`
	TasksStored int    `json:"tasks_stored"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Uptime:      int64(time.Since(s.startTime).Seconds()),
		Version:     s.version,
		TasksStored: s.tasks.Len(),
	})
}

// handleLiveness — GET /health/live — simple alive check.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReadiness — GET /health/ready — the service is ready as long as
// the task registry can still accept work.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.tasks.Len() >= s.cfg.API.MaxTasks {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "task registry full",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
