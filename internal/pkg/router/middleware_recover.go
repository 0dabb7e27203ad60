package router

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/shandysiswandi/otpkeep/internal/pkg/stacktrace"
)

// middlewareRecoverer turns a handler panic into a 500. http.ErrAbortHandler
// is re-raised so net/http can drop the connection.
//
//nolint:contextcheck // logs with the request context
func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			//nolint:err113,errorlint // sentinel comparison
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			stack := debug.Stack()
			attrs := []any{"method", r.Method, "path", r.URL.Path, "panic", rvr}
			if frames := stacktrace.InternalPaths(stack); len(frames) > 0 {
				attrs = append(attrs, "frames", frames)
			} else {
				attrs = append(attrs, "stack", string(stack))
			}
			slog.ErrorContext(r.Context(), "handler panicked", attrs...)

			writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
