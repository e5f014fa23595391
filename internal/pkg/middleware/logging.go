package middleware

import (
	"net/http"
	"time"

	"github.com/ricesearch/matcheval/internal/pkg/logger"
	"github.com/ricesearch/matcheval/internal/pkg/security"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Logging logs every request once it has been served.
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			attrs := []any{
				"method", r.Method,
				"path", security.SanitizeForLog(r.URL.Path),
				"status", rec.status,
				"duration", time.Since(start),
			}
			if ua := r.UserAgent(); ua != "" {
				attrs = append(attrs, "user_agent", security.SanitizeForLog(ua))
			}
			reqLog := log.WithContext(r.Context())
			if rec.status >= http.StatusInternalServerError {
				reqLog.Warn("HTTP request", attrs...)
				return
			}
			reqLog.Debug("HTTP request", attrs...)
		})
	}
}
