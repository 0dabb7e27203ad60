package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shandysiswandi/otpkeep/internal/pkg/config"
	"github.com/shandysiswandi/otpkeep/internal/pkg/goerror"
	"github.com/shandysiswandi/otpkeep/internal/pkg/instrument"
	"github.com/shandysiswandi/otpkeep/internal/pkg/uid"
)

type pingResponse struct {
	Pong bool `json:"pong"`
}

func newTestRouter(token string) *Router {
	r := NewRouter(Config{UUID: uid.NewUUID(), Instrument: instrument.NewNoop(), Token: token})

	r.GET("/api/v1/ping", func(*Request) (any, error) { return pingResponse{Pong: true}, nil })
	r.GET("/api/v1/missing", func(*Request) (any, error) {
		return nil, goerror.NewBusiness("account not found", goerror.CodeNotFound)
	})
	r.GET("/api/v1/broken", func(*Request) (any, error) { return nil, errors.New("boom") })
	r.POST("/api/v1/echo", func(req *Request) (any, error) {
		var body struct {
			Value string `json:"value"`
		}
		if err := req.DecodeBody(&body); err != nil {
			return nil, err
		}
		return body, nil
	})
	r.DELETE("/api/v1/items/:index", func(req *Request) (any, error) {
		index, err := req.GetParamInt("index")
		if err != nil {
			return nil, err
		}
		return map[string]int{"index": index}, nil
	})

	return r
}

func serve(r http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthentication(t *testing.T) {
	r := newTestRouter("s3cret")

	tests := []struct {
		name   string
		target string
		header map[string]string
		want   int
	}{
		{name: "public root", target: "/", want: http.StatusOK},
		{name: "missing token", target: "/api/v1/ping", want: http.StatusUnauthorized},
		{name: "wrong token", target: "/api/v1/ping", header: map[string]string{"Authorization": "Bearer nope"}, want: http.StatusUnauthorized},
		{name: "bearer token", target: "/api/v1/ping", header: map[string]string{"Authorization": "Bearer s3cret"}, want: http.StatusOK},
		{name: "query token", target: "/api/v1/ping?access_token=s3cret", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(r, http.MethodGet, tt.target, "", tt.header)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d (%s)", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestEmptyTokenDisablesAuthentication(t *testing.T) {
	rec := serve(newTestRouter(""), http.MethodGet, "/api/v1/ping", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Message string       `json:"message"`
		Data    pingResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Data.Pong {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get(HeaderCorrelationID) == "" {
		t.Fatalf("expected correlation id header")
	}
}

func TestErrorCodec(t *testing.T) {
	r := newTestRouter("")

	tests := []struct {
		name    string
		method  string
		target  string
		body    string
		want    int
		message string
	}{
		{name: "business error", method: http.MethodGet, target: "/api/v1/missing", want: http.StatusNotFound, message: "account not found"},
		{name: "plain error", method: http.MethodGet, target: "/api/v1/broken", want: http.StatusInternalServerError, message: "Internal server error"},
		{name: "unknown field", method: http.MethodPost, target: "/api/v1/echo", body: `{"other":1}`, want: http.StatusBadRequest, message: "Invalid request body"},
		{name: "trailing data", method: http.MethodPost, target: "/api/v1/echo", body: `{"value":"a"}{}`, want: http.StatusBadRequest, message: "Invalid request body"},
		{name: "non-integer param", method: http.MethodDelete, target: "/api/v1/items/abc", want: http.StatusBadRequest, message: "param index must be an integer"},
		{name: "unknown route", method: http.MethodGet, target: "/api/v1/nowhere", want: http.StatusNotFound, message: "endpoint not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(r, tt.method, tt.target, tt.body, nil)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d (%s)", tt.want, rec.Code, rec.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Message != tt.message {
				t.Fatalf("expected message %q, got %q", tt.message, resp.Message)
			}
		})
	}
}

func TestRedactedURI(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/code/stream?access_token=s3cret&x=1", nil)

	got := redactedURI(req, instrument.NewMasker([]string{"access_token"}))

	if strings.Contains(got, "s3cret") || !strings.Contains(got, "x=1") {
		t.Fatalf("unexpected redacted uri %q", got)
	}
}

func newStubConfig(t *testing.T, yaml string) config.Config {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	t.Cleanup(func() { _ = cfg.Close() })

	return cfg
}

func TestNetworkGuard(t *testing.T) {
	tests := []struct {
		name       string
		networks   string
		trust      bool
		remoteAddr string
		header     map[string]string
		want       int
	}{
		{name: "no list admits all", remoteAddr: "203.0.113.9:5000", want: http.StatusOK},
		{name: "loopback allowed", networks: "127.0.0.0/8,::1/128", remoteAddr: "127.0.0.1:5000", want: http.StatusOK},
		{name: "ipv6 loopback allowed", networks: "127.0.0.0/8,::1/128", remoteAddr: "[::1]:5000", want: http.StatusOK},
		{name: "remote rejected", networks: "127.0.0.0/8", remoteAddr: "203.0.113.9:5000", want: http.StatusForbidden},
		{
			name: "forwarded header ignored without trust", networks: "127.0.0.0/8", remoteAddr: "203.0.113.9:5000",
			header: map[string]string{"X-Forwarded-For": "127.0.0.1"}, want: http.StatusForbidden,
		},
		{
			name: "forwarded header honored with trust", networks: "10.0.0.0/8", trust: true, remoteAddr: "127.0.0.1:5000",
			header: map[string]string{"X-Forwarded-For": "10.1.2.3, 127.0.0.1"}, want: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newStubConfig(t, fmt.Sprintf(
				"app:\n  server:\n    http:\n      allowed_networks: %q\n      trust_forwarded: %t\n",
				tt.networks, tt.trust,
			))
			r := NewRouter(Config{Config: cfg, UUID: uid.NewUUID(), Instrument: instrument.NewNoop()})
			r.GET("/api/v1/ping", func(*Request) (any, error) { return pingResponse{Pong: true}, nil })

			req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d (%s)", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestReadOnlyBlocksMutations(t *testing.T) {
	cfg := newStubConfig(t, "app:\n  server:\n    read_only: true\n")
	r := NewRouter(Config{Config: cfg, UUID: uid.NewUUID(), Instrument: instrument.NewNoop()})
	r.GET("/api/v1/ping", func(*Request) (any, error) { return pingResponse{Pong: true}, nil })
	r.DELETE("/api/v1/items/:index", func(*Request) (any, error) { return nil, nil })

	if rec := serve(r, http.MethodGet, "/api/v1/ping", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected reads to pass, got %d", rec.Code)
	}
	if rec := serve(r, http.MethodDelete, "/api/v1/items/0", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestCorrelationIDIsSanitized(t *testing.T) {
	r := newTestRouter("")

	tests := []struct {
		name   string
		header map[string]string
		want   string
	}{
		{name: "kept", header: map[string]string{HeaderCorrelationID: "abc-123"}, want: "abc-123"},
		{name: "request id fallback", header: map[string]string{"X-Request-ID": "req-9"}, want: "req-9"},
		{name: "control characters dropped", header: map[string]string{HeaderCorrelationID: "ab\tc d"}, want: "abcd"},
		{name: "truncated", header: map[string]string{HeaderCorrelationID: strings.Repeat("x", 80)}, want: strings.Repeat("x", maxCorrelationIDLen)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(r, http.MethodGet, "/api/v1/ping", "", tt.header)

			if got := rec.Header().Get(HeaderCorrelationID); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRecovererReturns500(t *testing.T) {
	r := newTestRouter("")
	r.GET("/api/v1/panic", func(*Request) (any, error) { panic("boom") })

	rec := serve(r, http.MethodGet, "/api/v1/panic", "", nil)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Message != "Internal server error" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
