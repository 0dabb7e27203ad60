package router

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/shandysiswandi/otpkeep/internal/pkg/config"
)

type networkGuard struct {
	allowed        []netip.Prefix
	trustForwarded bool
}

func newNetworkGuard(cfg config.Config) networkGuard {
	var g networkGuard
	if cfg == nil {
		return g
	}

	g.trustForwarded = cfg.GetBool("app.server.http.trust_forwarded")
	for _, raw := range cfg.GetArray("app.server.http.allowed_networks") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			slog.Error("ignoring invalid allowed network", "network", raw, "error", err)
			continue
		}
		g.allowed = append(g.allowed, prefix.Masked())
	}

	return g
}

// clientAddr returns the caller address. Forwarding headers are only honored
// when the server sits behind a trusted proxy.
func (g networkGuard) clientAddr(r *http.Request) (netip.Addr, bool) {
	if g.trustForwarded {
		for _, h := range []string{"X-Real-IP", "X-Forwarded-For"} {
			v, _, _ := strings.Cut(r.Header.Get(h), ",")
			if addr, err := netip.ParseAddr(strings.TrimSpace(v)); err == nil {
				return addr.Unmap(), true
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}

	return addr.Unmap(), true
}

func (g networkGuard) permits(addr netip.Addr) bool {
	if len(g.allowed) == 0 {
		return true
	}
	for _, p := range g.allowed {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// middlewareNetwork rejects callers outside app.server.http.allowed_networks.
// An empty list admits everyone.
func middlewareNetwork(cfg config.Config) Middleware {
	guard := newNetworkGuard(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr, ok := guard.clientAddr(r)
			if ok {
				r.RemoteAddr = addr.String()
			}
			if len(guard.allowed) > 0 && (!ok || !guard.permits(addr)) {
				slog.WarnContext(r.Context(), "rejected request from disallowed network", "remote_addr", r.RemoteAddr)
				writeJSON(w, errorResponse{Message: "Forbidden"}, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
