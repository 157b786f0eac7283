package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/opinionscience/wikimetron/internal/metrics"
)

type contextKey string

const requestIDKey contextKey = "request_id"

func requestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// responseRecorder captures the status code and body size for logging and
// metrics.
type responseRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (rr *responseRecorder) WriteHeader(status int) {
	rr.status = status
	rr.ResponseWriter.WriteHeader(status)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	n, err := rr.ResponseWriter.Write(b)
	rr.size += n
	return n, err
}

// RequestIDMiddleware tags every request with a UUID, echoed back in the
// X-Request-ID header.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// LoggerMiddleware logs one line per request.
func LoggerMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rr := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rr, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rr.status).
				Int("size", rr.size).
				Dur("duration", time.Since(start)).
				Str("request_id", requestIDFrom(r)).
				Str("remote", clientIP(r)).
				Msg("Request handled")
		})
	}
}

// RecoveryMiddleware turns panics into 500 responses instead of killing
// the process.
func RecoveryMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("Handler panicked")
					metrics.APIErrorsTotal.WithLabelValues(ErrCodeInternal).Inc()
					writeAPIError(w, r, http.StatusInternalServerError, ErrCodeInternal, "internal server error", "")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware allows browser frontends on other origins.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MetricsMiddleware records request counters, latencies and sizes per
// normalized endpoint.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := normalizeEndpoint(r.URL.Path)
		metrics.APIRequestsInFlight.Inc()
		defer metrics.APIRequestsInFlight.Dec()

		rr := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rr, r)

		metrics.APIRequestsTotal.WithLabelValues(endpoint, r.Method).Inc()
		metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		metrics.APIResponseSizeBytes.WithLabelValues(endpoint).Observe(float64(rr.size))
		if rr.status >= 500 {
			metrics.APIErrorsTotal.WithLabelValues(strconv.Itoa(rr.status)).Inc()
		}
	})
}

// RateLimitMiddleware applies a global token bucket over all callers.
func RateLimitMiddleware(rps int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), rps*2)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				metrics.RateLimitHitsTotal.Inc()
				writeAPIError(w, r, http.StatusTooManyRequests, ErrCodeRateLimited, "rate limit exceeded", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// normalizeEndpoint collapses path parameters so metrics stay
// low-cardinality.
func normalizeEndpoint(path string) string {
	if strings.HasPrefix(path, "/api/tasks/") {
		return "/api/tasks/{id}"
	}
	return path
}
