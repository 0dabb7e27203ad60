package uid

import (
	"testing"
)

func TestUUIDGenerate(t *testing.T) {
	gen := NewUUID()

	a, b := gen.Generate(), gen.Generate()

	if !Valid(a) || !Valid(b) {
		t.Fatalf("expected canonical uuids, got %q and %q", a, b)
	}
	if a == b {
		t.Fatal("expected distinct ids")
	}
}

func TestValid(t *testing.T) {
	tests := map[string]bool{
		"0192f0b4-7a8e-7000-8000-000000000001":          true,
		"":                                              false,
		"alice@example.com":                             false,
		"../../etc/passwd":                              false,
		"urn:uuid:0192f0b4-7a8e-7000-8000-000000000001": false,
		"0192f0b47a8e70008000000000000001":              false,
	}

	for in, want := range tests {
		if got := Valid(in); got != want {
			t.Fatalf("Valid(%q): expected %v, got %v", in, want, got)
		}
	}
}
