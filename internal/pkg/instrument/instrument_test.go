package instrument

import (
	"context"
	"testing"
)

func TestSampleRatio(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{in: -1, want: 0},
		{in: 0.25, want: 0.25},
		{in: 3, want: 1},
	}

	for _, tt := range tests {
		if got := sampleRatio(tt.in); got != tt.want {
			t.Fatalf("sampleRatio(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewDisabledIsNoop(t *testing.T) {
	ins, err := New(context.Background(), &Config{ServiceName: "otpkeep", LogLevel: "error"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, span := ins.Tracer("test").Start(context.Background(), "noop")
	defer span.End()

	if span.SpanContext().IsValid() {
		t.Fatal("expected a non-recording span")
	}
	if err := ins.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
}
