package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return line
}

func TestLoggerMasksFields(t *testing.T) {
	// Arrange
	buf := &bytes.Buffer{}
	logger := slog.New(newHandler(buf, "otpkeep", nil, []string{"secret", "code"}, "info"))

	// Act
	logger.Info("enrolled",
		"secret", "GEZDGNBVGY3TQOJQ",
		"account", "alice",
		"body", `{"code":"123456","index":1}`,
	)

	// Assert
	line := decodeLine(t, buf)
	if line["secret"] != "***" {
		t.Fatalf("expected secret masked, got %v", line["secret"])
	}
	if line["account"] != "alice" {
		t.Fatalf("expected account kept, got %v", line["account"])
	}
	if line["body"] != `{"code":"***","index":1}` {
		t.Fatalf("expected nested code masked, got %v", line["body"])
	}
	if line["service"] != "otpkeep" {
		t.Fatalf("expected service attribute, got %v", line["service"])
	}
	if _, ok := line["ts"]; !ok {
		t.Fatal("expected ts key")
	}
	if line["severity"] != "INFO" {
		t.Fatalf("expected severity INFO, got %v", line["severity"])
	}
}

func TestLoggerAddsCorrelationID(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(newHandler(buf, "otpkeep", nil, nil, "debug"))
	ctx := SetCorrelationID(context.Background(), "cid-1")

	logger.With("component", "engine").DebugContext(ctx, "tick")

	line := decodeLine(t, buf)
	if line["_cID"] != "cid-1" {
		t.Fatalf("expected correlation id, got %v", line["_cID"])
	}
	if line["component"] != "engine" {
		t.Fatalf("expected component attribute, got %v", line["component"])
	}
}

func TestLoggerLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(newHandler(buf, "otpkeep", nil, nil, "warn"))

	logger.Info("dropped")

	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	if parseLevel("nonsense") != slog.LevelInfo {
		t.Fatal("expected unknown level to fall back to info")
	}
}

func TestCorrelationIDMissing(t *testing.T) {
	if got := GetCorrelationID(context.Background()); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}

func TestLoggerRedactsEnrollmentSecret(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(newHandler(buf, "otpkeep", nil, nil, "info"))

	logger.Info("ignored payload", "payload", "otpauth://totp/ACME:alice?issuer=ACME&secret=JBSWY3DPEHPK3PXP&digits=6")

	line := decodeLine(t, buf)
	if line["payload"] != "otpauth://totp/ACME:alice?issuer=ACME&secret=***&digits=6" {
		t.Fatalf("expected secret redacted, got %v", line["payload"])
	}
}

func TestMaskerValue(t *testing.T) {
	m := NewMasker([]string{" Token "})

	got := m.Value(map[string]any{
		"TOKEN": "abc",
		"items": []any{map[string]any{"token": "def", "uri": "otpauth://totp/x?secret=ABC"}},
	})

	want := map[string]any{
		"TOKEN": "***",
		"items": []any{map[string]any{"token": "***", "uri": "otpauth://totp/x?secret=***"}},
	}
	gotJSON, _ := json.Marshal(got)
	wantJSON, _ := json.Marshal(want)
	if string(gotJSON) != string(wantJSON) {
		t.Fatalf("expected %s, got %s", wantJSON, gotJSON)
	}
	if _, ok := m.JSON([]byte("plain text")); ok {
		t.Fatal("expected non-JSON payload to be left alone")
	}
}
