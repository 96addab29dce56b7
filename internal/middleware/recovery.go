package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"polyform-sync/pkg/response"

	"golang.org/x/exp/slog"
)

// Recovery turns a handler panic into a 500 and logs the stack.
func Recovery(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					log.Error("panic recovered",
						slog.String("path", r.URL.Path),
						slog.String("panic", fmt.Sprint(err)),
						slog.String("stack", string(debug.Stack())))
					response.InternalError(w, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
