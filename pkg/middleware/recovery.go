package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/marco-pm/zencart-typesense/pkg/logger"
)

// Recovery turns a handler panic into a 500 response in the standard error
// envelope, so dashboard clients always get parseable JSON.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l.ErrorContext(r.Context(), "panic recovered",
						slog.Any("panic", rec),
						slog.String("stack", string(debug.Stack())),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)

					errBody := map[string]string{
						"code":    "INTERNAL_ERROR",
						"message": "an internal error occurred",
					}
					if id := logger.CorrelationIDFromContext(r.Context()); id != "" {
						errBody["request_id"] = id
					}
					body := map[string]any{"error": errBody}
					if err := json.NewEncoder(w).Encode(body); err != nil {
						l.Error("failed to encode response", slog.String("error", err.Error()))
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
