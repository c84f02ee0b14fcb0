package api

import (
	"net/http"
	"strconv"
	"time"
)

// instrument wraps a handler to record request count and duration per
// endpoint into the Prometheus manager.
func (s *Server) instrument(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	if s.manager == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Milliseconds())
		statusCodeStr := strconv.Itoa(wrapped.statusCode)

		s.manager.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		s.manager.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
