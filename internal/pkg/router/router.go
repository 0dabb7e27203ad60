package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/otpkeep/internal/pkg/config"
	"github.com/shandysiswandi/otpkeep/internal/pkg/goerror"
	"github.com/shandysiswandi/otpkeep/internal/pkg/instrument"
	"github.com/shandysiswandi/otpkeep/internal/pkg/uid"
	"github.com/shandysiswandi/otpkeep/internal/pkg/validator"
)

type errorResponse struct {
	Message string            `json:"message"`
	Error   map[string]string `json:"error,omitempty"`
}

type successResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Handler returns a payload to encode as JSON, or an error to render through
// the goerror codec.
//
// A payload may implement StatusCode() int and Message() string to override
// the defaults of 200 and "ok".
type Handler func(r *Request) (any, error)

type Config struct {
	// Config is read for the mask fields, the network allow-list and the
	// read-only switch. Nil leaves all three off.
	Config     config.Config
	UUID       uid.StringID
	Instrument instrument.Instrumentation
	// Token is the bearer token required outside the public routes. Empty
	// disables authentication.
	Token string
}

// Router serves the API routes through a fixed middleware chain. Routes
// added with HandleRaw bypass the chain.
type Router struct {
	hr  *httprouter.Router
	mws []Middleware
}

// publicRoutes skip authentication.
var publicRoutes = map[string]map[string]struct{}{
	http.MethodGet: {"/": {}, "/health": {}},
}

func NewRouter(cfg Config) *Router {
	hr := httprouter.New()
	hr.SaveMatchedRoutePath = true
	hr.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, errorResponse{Message: "endpoint not found"}, http.StatusNotFound)
	})
	hr.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, errorResponse{Message: "method not allowed"}, http.StatusMethodNotAllowed)
	})
	hr.GET("/", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeJSON(w, map[string]string{"message": "otpkeep is running"}, http.StatusOK)
	})

	return &Router{
		hr: hr,
		mws: []Middleware{
			middlewareRecoverer,
			middlewareNetwork(cfg.Config),
			middlewareCorrelationID(cfg.UUID),
			middlewareObservability(cfg.Config, cfg.Instrument),
			middlewareAuthentication(cfg.Token, publicRoutes),
			middlewareReadOnly(cfg.Config),
		},
	}
}

func (r *Router) GET(path string, h Handler) { r.endpoint(http.MethodGet, path, h) }

func (r *Router) POST(path string, h Handler) { r.endpoint(http.MethodPost, path, h) }

func (r *Router) PUT(path string, h Handler) { r.endpoint(http.MethodPut, path, h) }

func (r *Router) DELETE(path string, h Handler) { r.endpoint(http.MethodDelete, path, h) }

// GETRaw registers a GET route that writes its own response, such as an event
// stream, behind the middleware chain.
func (r *Router) GETRaw(path string, h http.Handler) {
	r.hr.Handler(http.MethodGet, path, Chain(h, r.mws...))
}

// HandleRaw registers a handler that bypasses the middleware chain, for probes
// such as /health.
func (r *Router) HandleRaw(method, path string, h http.Handler) {
	r.hr.Handler(method, path, h)
}

func (r *Router) endpoint(method, path string, h Handler) {
	r.hr.Handler(method, path, Chain(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, err := h(&Request{Request: req})
		if err != nil {
			if rec, ok := w.(interface{ SetError(error) }); ok {
				rec.SetError(err)
			}
			writeError(w, err)
			return
		}
		writeSuccess(w, resp)
	}), r.mws...))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}

// writeError renders a *goerror.Error with its status and message. Anything
// else is a 500 with a generic message so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		return
	}

	resp := errorResponse{Message: gerr.Msg(), Error: gerr.Fields()}
	var verr validator.V10ValidationError
	if errors.As(err, &verr) {
		resp.Error = verr.Values()
	}

	writeJSON(w, resp, gerr.StatusCode())
}

func writeSuccess(w http.ResponseWriter, resp any) {
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	status := http.StatusOK
	if sc, ok := resp.(interface{ StatusCode() int }); ok {
		status = sc.StatusCode()
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	msg := "ok"
	if m, ok := resp.(interface{ Message() string }); ok {
		msg = m.Message()
	}

	writeJSON(w, successResponse{Message: msg, Data: resp}, status)
}

func writeJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
