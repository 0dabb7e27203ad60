package router

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// QueryAccessToken carries the bearer token for clients that cannot set
// headers, such as a browser EventSource.
const QueryAccessToken = "access_token"

// middlewareAuthentication requires a static bearer token on every endpoint
// outside publicEndpoints. An empty token disables the check.
func middlewareAuthentication(token string, publicEndpoints map[string]map[string]struct{}) Middleware {
	expected := []byte(token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			path := matchedRoutePath(r)
			if s, ok := publicEndpoints[r.Method]; ok {
				if _, skip := s[path]; skip {
					next.ServeHTTP(w, r)
					return
				}
			}

			presented := r.URL.Query().Get(QueryAccessToken)
			if p := strings.Fields(r.Header.Get("Authorization")); len(p) == 2 && strings.EqualFold(p[0], "Bearer") {
				presented = p[1]
			}
			if presented == "" {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare([]byte(presented), expected) != 1 {
				writeJSON(w, errorResponse{Message: "Invalid token"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
