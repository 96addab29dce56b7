package middleware

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"golang.org/x/exp/slog"
)

// LoggerMiddleware logs one line per request. httpsnoop keeps the wrapped
// writer's optional interfaces intact, so websocket upgrades still hijack.
func LoggerMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	log = log.With(slog.String("component", "http"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote", r.RemoteAddr),
				slog.Int("status", m.Code),
				slog.Duration("duration", m.Duration),
				slog.Int64("bytes", m.Written),
			}
			if claims := GetTicketClaims(r); claims != nil {
				attrs = append(attrs, slog.String("space_id", claims.SpaceID))
			}

			switch {
			case m.Code >= http.StatusInternalServerError:
				log.Error("handled", attrs...)
			case m.Code >= http.StatusBadRequest:
				log.Warn("handled", attrs...)
			default:
				log.Info("handled", attrs...)
			}
		})
	}
}
