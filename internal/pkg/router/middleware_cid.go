package router

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/shandysiswandi/otpkeep/internal/pkg/instrument"
	"github.com/shandysiswandi/otpkeep/internal/pkg/uid"
)

// HeaderCorrelationID carries the id that ties a request to its log lines and
// to any account event it publishes.
const HeaderCorrelationID = "X-Correlation-ID"

const maxCorrelationIDLen = 64

// incomingCorrelationHeaders are consulted in order.
var incomingCorrelationHeaders = []string{HeaderCorrelationID, "X-Request-ID"}

// sanitizeCorrelationID drops anything that is not printable ASCII so a
// caller cannot smuggle control characters into logs or message headers.
func sanitizeCorrelationID(v string) string {
	v = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, v)
	if len(v) > maxCorrelationIDLen {
		v = v[:maxCorrelationIDLen]
	}
	return v
}

func middlewareCorrelationID(gen uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var cid string
			for _, h := range incomingCorrelationHeaders {
				if cid = sanitizeCorrelationID(r.Header.Get(h)); cid != "" {
					break
				}
			}
			if cid == "" && gen != nil {
				cid = gen.Generate()
			}
			if cid == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set(HeaderCorrelationID, cid)
			next.ServeHTTP(w, r.WithContext(instrument.SetCorrelationID(r.Context(), cid)))
		})
	}
}
