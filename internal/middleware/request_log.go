package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"vet-clinic-web/internal/platform/logger"
)

// RequestLog deja una línea por request. Los 5xx van como error, los 4xx como warn.
func RequestLog(log logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := log.With(logger.Fields{"request_id": chimw.GetReqID(r.Context())})
			r = r.WithContext(logger.NewContext(r.Context(), reqLog))

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := logger.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			}

			switch {
			case status >= http.StatusInternalServerError:
				reqLog.Error("request", fields)
			case status >= http.StatusBadRequest:
				reqLog.Warn("request", fields)
			default:
				reqLog.Debug("request", fields)
			}
		})
	}
}
