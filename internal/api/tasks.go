package api

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opinionscience/wikimetron/internal/metrics"
	"github.com/opinionscience/wikimetron/internal/models"
)

// Task statuses.
const (
	TaskProcessing = "processing"
	TaskCompleted  = "completed"
	TaskFailed     = "error"
)

// Task is one submitted analysis and, once finished, its result.
type Task struct {
	ID         string                 `json:"task_id"`
	Status     string                 `json:"status"`
	CreatedAt  time.Time              `json:"created_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
	Result     *models.AnalysisResult `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// taskRegistry stores analysis tasks in memory. Finished tasks expire
// after the TTL; the registry refuses new tasks once full.
type taskRegistry struct {
	mu       sync.RWMutex
	tasks    map[string]*Task
	maxTasks int
	ttl      time.Duration
	logger   zerolog.Logger
}

func newTaskRegistry(maxTasks int, ttl time.Duration, logger zerolog.Logger) *taskRegistry {
	return &taskRegistry{
		tasks:    make(map[string]*Task),
		maxTasks: maxTasks,
		ttl:      ttl,
		logger:   logger.With().Str("component", "tasks").Logger(),
	}
}

// Create registers a new processing task, evicting expired ones when at
// capacity.
func (tr *taskRegistry) Create() (*Task, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if len(tr.tasks) >= tr.maxTasks {
		tr.evictExpiredLocked()
	}
	if len(tr.tasks) >= tr.maxTasks {
		return nil, fmt.Errorf("task registry full (%d tasks)", len(tr.tasks))
	}

	task := &Task{
		ID:        uuid.NewString(),
		Status:    TaskProcessing,
		CreatedAt: time.Now().UTC(),
	}
	tr.tasks[task.ID] = task
	metrics.TasksActive.Set(float64(len(tr.tasks)))
	return task, nil
}

// Get returns a copy of the task, so callers never race the writers.
func (tr *taskRegistry) Get(id string) (Task, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	task, ok := tr.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// List returns a summary of every stored task, newest first. Result
// payloads are omitted; they are served per task.
func (tr *taskRegistry) List() []Task {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	out := make([]Task, 0, len(tr.tasks))
	for _, task := range tr.tasks {
		summary := *task
		summary.Result = nil
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Complete marks a task finished with its result.
func (tr *taskRegistry) Complete(id string, result *models.AnalysisResult) {
	tr.finish(id, func(t *Task) {
		t.Status = TaskCompleted
		t.Result = result
	})
}

// Fail marks a task finished with an error.
func (tr *taskRegistry) Fail(id string, err error) {
	tr.finish(id, func(t *Task) {
		t.Status = TaskFailed
		t.Error = err.Error()
	})
}

func (tr *taskRegistry) finish(id string, update func(*Task)) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	task, ok := tr.tasks[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	task.FinishedAt = &now
	update(task)
}

// EvictExpired drops finished tasks older than the TTL.
func (tr *taskRegistry) EvictExpired() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.evictExpiredLocked()
}

func (tr *taskRegistry) evictExpiredLocked() {
	cutoff := time.Now().UTC().Add(-tr.ttl)
	for id, task := range tr.tasks {
		if task.Status == TaskProcessing {
			continue
		}
		if task.FinishedAt != nil && task.FinishedAt.Before(cutoff) {
			delete(tr.tasks, id)
			metrics.TasksEvictedTotal.WithLabelValues("expired").Inc()
		}
	}
	metrics.TasksActive.Set(float64(len(tr.tasks)))
}

// Len returns the number of stored tasks.
func (tr *taskRegistry) Len() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.tasks)
}

// RunEviction periodically evicts expired tasks until stop is closed.
func (tr *taskRegistry) RunEviction(stop <-chan struct{}) {
	ticker := time.NewTicker(tr.ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tr.EvictExpired()
		case <-stop:
			return
		}
	}
}
