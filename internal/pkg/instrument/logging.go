package instrument

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/trace"
)

const masked = "***"

// enrollmentSecret matches the secret parameter of an otpauth URI so a pasted
// enrollment link never reaches a log line in clear.
var enrollmentSecret = regexp.MustCompile(`(?i)(otpauth://[^\s"]*?[?&]secret=)[^&\s"]*`)

func initLogging(serviceName string, lp *sdklog.LoggerProvider, maskFields []string, level string) {
	slog.SetDefault(slog.New(newHandler(os.Stdout, serviceName, lp, maskFields, level)))
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// sourceAttr shortens the caller to its path below internal/ and drops
// frames outside the module.
func sourceAttr(a slog.Attr) slog.Attr {
	src, ok := a.Value.Any().(*slog.Source)
	if !ok {
		return a
	}
	_, rel, found := strings.Cut(src.File, "/internal/")
	if !found {
		return slog.Attr{}
	}
	return slog.String("file", fmt.Sprintf("internal/%s:%d", rel, src.Line))
}

func newHandler(w io.Writer, serviceName string, lp *sdklog.LoggerProvider, maskFields []string, level string) slog.Handler {
	var h slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "ts"
			case slog.LevelKey:
				a.Key = "severity"
			case slog.SourceKey:
				return sourceAttr(a)
			}
			return a
		},
	})
	if lp != nil {
		h = fanout{h, otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(lp))}
	}

	return &recordHandler{
		next:    h,
		service: serviceName,
		masker:  NewMasker(maskFields),
	}
}

// recordHandler stamps the service, correlation id and active span on every
// record and masks sensitive attributes before handing it on.
type recordHandler struct {
	next    slog.Handler
	service string
	masker  Masker
}

func (h *recordHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *recordHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.masker.attr(a))
		return true
	})

	out.AddAttrs(slog.String("service", h.service))
	if cid := GetCorrelationID(ctx); cid != "" {
		out.AddAttrs(slog.String("_cID", cid))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		out.AddAttrs(slog.String("trace_id", sc.TraceID().String()), slog.String("span_id", sc.SpanID().String()))
	}

	return h.next.Handle(ctx, out)
}

func (h *recordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	m := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		m[i] = h.masker.attr(a)
	}
	return &recordHandler{next: h.next.WithAttrs(m), service: h.service, masker: h.masker}
}

func (h *recordHandler) WithGroup(name string) slog.Handler {
	return &recordHandler{next: h.next.WithGroup(name), service: h.service, masker: h.masker}
}

// fanout sends each record to every enabled handler.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// Masker hides the values of configured keys in log attributes and decoded
// JSON bodies. Key matching is case-insensitive. The zero value only redacts
// otpauth secrets.
type Masker struct {
	keys map[string]struct{}
}

func NewMasker(fields []string) Masker {
	keys := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			keys[f] = struct{}{}
		}
	}
	return Masker{keys: keys}
}

// Hides reports whether values under key are masked.
func (m Masker) Hides(key string) bool {
	_, ok := m.keys[strings.ToLower(key)]
	return ok
}

// Value masks a decoded JSON value: objects by key, arrays element-wise and
// strings for embedded otpauth secrets.
func (m Masker) Value(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			if m.Hides(k) {
				out[k] = masked
			} else {
				out[k] = m.Value(v2)
			}
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			out[k] = v2
		}
		return m.Value(out)
	case []any:
		out := make([]any, len(val))
		for i, v2 := range val {
			out[i] = m.Value(v2)
		}
		return out
	case string:
		return RedactEnrollmentSecret(val)
	default:
		return v
	}
}

// JSON masks payload when it decodes as a JSON object or array.
func (m Masker) JSON(payload []byte) (string, bool) {
	if len(payload) == 0 || (payload[0] != '{' && payload[0] != '[') {
		return "", false
	}
	var body any
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", false
	}
	out, err := json.Marshal(m.Value(body))
	if err != nil {
		return "", false
	}
	return string(out), true
}

func (m Masker) attr(a slog.Attr) slog.Attr {
	if m.Hides(a.Key) {
		return slog.String(a.Key, masked)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = m.attr(ga)
		}
		a.Value = slog.GroupValue(out...)
	case slog.KindString:
		s := a.Value.String()
		if js, ok := m.JSON([]byte(s)); ok {
			a.Value = slog.StringValue(js)
		} else {
			a.Value = slog.StringValue(RedactEnrollmentSecret(s))
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]any, map[string]string, []any:
			a.Value = slog.AnyValue(m.Value(v))
		case []byte:
			if js, ok := m.JSON(v); ok {
				a.Value = slog.StringValue(js)
			}
		}
	}

	return a
}

// RedactEnrollmentSecret replaces the secret of every otpauth URI in s.
func RedactEnrollmentSecret(s string) string {
	if !strings.Contains(strings.ToLower(s), "otpauth://") {
		return s
	}
	return enrollmentSecret.ReplaceAllString(s, "${1}"+masked)
}
