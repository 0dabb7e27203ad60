package strcase

import "testing"

func TestToLowerSnake(t *testing.T) {
	tests := map[string]string{
		"":              "",
		"Digits":        "digits",
		"AccountName":   "account_name",
		"IconURL":       "icon_url",
		"PeriodMS":      "period_ms",
		"HTTPServer":    "http_server",
		"secretRef2FA":  "secret_ref2_fa",
		"max goroutine": "max_goroutine",
		"read-timeout":  "read_timeout",
		"app.name":      "app_name",
		"__x__":         "x",
	}

	for in, want := range tests {
		if got := ToLowerSnake(in); got != want {
			t.Fatalf("ToLowerSnake(%q): expected %q, got %q", in, want, got)
		}
	}
}
