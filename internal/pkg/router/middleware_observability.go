package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/otpkeep/internal/pkg/config"
	"github.com/shandysiswandi/otpkeep/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const maxLoggedBodyBytes = 16 * 1024

// statusRecorder keeps the status, size and the head of the body for the
// response log line. Event streams are passed through uncaptured.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	body   bytes.Buffer
	capped bool
	err    error
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if !w.streaming() && !w.capped {
		room := maxLoggedBodyBytes - w.body.Len()
		if len(p) > room {
			w.body.Write(p[:max(room, 0)])
			w.capped = true
		} else {
			w.body.Write(p)
		}
	}

	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (w *statusRecorder) streaming() bool {
	return strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream")
}

func (w *statusRecorder) SetError(err error) { w.err = err }

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusRecorder) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusRecorder) loggedBody(m instrument.Masker) any {
	if w.streaming() {
		return "<event stream>"
	}
	if w.body.Len() == 0 {
		return nil
	}

	var body any
	if js, ok := m.JSON(w.body.Bytes()); ok {
		body = json.RawMessage(js)
	} else if utf8.Valid(w.body.Bytes()) {
		body = instrument.RedactEnrollmentSecret(w.body.String())
	} else {
		body = "<binary body omitted>"
	}
	if w.capped {
		return map[string]any{"body": body, "truncated": true}
	}
	return body
}

func matchedRoutePath(r *http.Request) string {
	if pattern := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

// peekRequestBody returns the head of the body and leaves r.Body readable
// from the start.
func peekRequestBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	//nolint:errcheck // logging only
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBodyBytes))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(head), r.Body))
	return head
}

func loggedRequestBody(body []byte, m instrument.Masker) any {
	if len(body) == 0 {
		return nil
	}
	if js, ok := m.JSON(body); ok {
		return json.RawMessage(js)
	}
	if !utf8.Valid(body) {
		return "<binary body omitted>"
	}
	return instrument.RedactEnrollmentSecret(string(body))
}

func maskedHeaders(h http.Header, m instrument.Masker) http.Header {
	out := h.Clone()
	for k := range out {
		if m.Hides(k) {
			out.Set(k, "***")
		}
	}
	return out
}

// redactedURI returns the request URI with masked query parameters replaced.
func redactedURI(r *http.Request, m instrument.Masker) string {
	query := r.URL.Query()
	if len(query) == 0 {
		return r.URL.Path
	}
	for k := range query {
		if m.Hides(k) {
			query.Set(k, "***")
		}
	}
	return r.URL.Path + "?" + query.Encode()
}

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newHTTPMetrics(meter metric.Meter) httpMetrics {
	var hm httpMetrics
	var err error

	if hm.requests, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("Number of HTTP requests served")); err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}
	if hm.duration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"), metric.WithUnit("ms")); err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}

	return hm
}

func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	var fields []string
	if cfg != nil {
		fields = cfg.GetArray("instrument.log_mask_fields")
	}
	masker := instrument.NewMasker(fields)
	tracer := ins.Tracer("http.server")
	hm := newHTTPMetrics(ins.Meter("http.server"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := matchedRoutePath(r)
			start := time.Now()

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(route),
				),
			)
			defer span.End()

			uri := redactedURI(r, masker)
			slog.InfoContext(ctx, "request received",
				"method", r.Method,
				"path", route,
				"request_uri", uri,
				"remote_addr", r.RemoteAddr,
				"headers", maskedHeaders(r.Header, masker),
				"body", loggedRequestBody(peekRequestBody(r), masker),
			)

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.code()
			elapsed := time.Since(start)
			attrs := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCodeKey.Int(status),
			}

			span.SetAttributes(attrs...)
			span.SetAttributes(attribute.Int("http.response_content_length", rec.bytes))
			if rec.err != nil {
				span.RecordError(rec.err)
			}
			switch {
			case status >= http.StatusInternalServerError && rec.err != nil:
				span.SetStatus(codes.Error, rec.err.Error())
			case status >= http.StatusInternalServerError:
				span.SetStatus(codes.Error, http.StatusText(status))
			default:
				span.SetStatus(codes.Ok, "")
			}

			if hm.requests != nil {
				hm.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
			}
			if hm.duration != nil {
				hm.duration.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(attrs...))
			}

			slog.InfoContext(ctx, "response sent",
				"method", r.Method,
				"path", route,
				"request_uri", uri,
				"status", status,
				"bytes", rec.bytes,
				"latency_ms", elapsed.Milliseconds(),
				"body", rec.loggedBody(masker),
			)
		})
	}
}
