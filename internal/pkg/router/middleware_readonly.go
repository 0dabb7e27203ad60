package router

import (
	"net/http"

	"github.com/shandysiswandi/otpkeep/internal/pkg/config"
)

// middlewareReadOnly turns every mutating request into a 503 while
// app.server.read_only is set. Codes stay readable.
func middlewareReadOnly(cfg config.Config) Middleware {
	readOnly := cfg != nil && cfg.GetBool("app.server.read_only")

	return func(next http.Handler) http.Handler {
		if !readOnly {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				writeJSON(w, errorResponse{Message: "accounts are read-only"}, http.StatusServiceUnavailable)
			}
		})
	}
}
