package otp

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestParseKeyURI(t *testing.T) {
	// Arrange
	raw := "otpauth://totp/ACME:alice@example.com?secret=GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ&issuer=ACME&algorithm=SHA256&digits=8&period=60&image=https://example.com/acme.png"

	// Act
	key, err := ParseKeyURI(raw)

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.AccountName != "alice@example.com" {
		t.Fatalf("unexpected account name %q", key.AccountName)
	}
	if key.Issuer != "ACME" {
		t.Fatalf("unexpected issuer %q", key.Issuer)
	}
	if key.Algorithm != AlgorithmSHA256 {
		t.Fatalf("unexpected algorithm %q", key.Algorithm)
	}
	if key.Digits != 8 {
		t.Fatalf("unexpected digits %d", key.Digits)
	}
	if key.Period != time.Minute {
		t.Fatalf("unexpected period %s", key.Period)
	}
	if key.Image != "https://example.com/acme.png" {
		t.Fatalf("unexpected image %q", key.Image)
	}
}

func TestParseKeyURIDefaults(t *testing.T) {
	key, err := ParseKeyURI("otpauth://totp/bob?secret=GEZDGNBVGY3TQOJQ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if key.AccountName != "bob" || key.Issuer != "" {
		t.Fatalf("unexpected label %q / %q", key.Issuer, key.AccountName)
	}
	if key.Algorithm != AlgorithmSHA1 || key.Digits != DefaultDigits || key.Period != DefaultPeriod {
		t.Fatalf("unexpected defaults %+v", key)
	}
}

func TestParseKeyURIIssuerFromLabel(t *testing.T) {
	key, err := ParseKeyURI("otpauth://totp/Example:carol?secret=GEZDGNBVGY3TQOJQ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.Issuer != "Example" || key.AccountName != "carol" {
		t.Fatalf("unexpected label %q / %q", key.Issuer, key.AccountName)
	}
}

func TestParseKeyURIKeepsUnknownAlgorithm(t *testing.T) {
	key, err := ParseKeyURI("otpauth://totp/dave?secret=GEZDGNBVGY3TQOJQ&algorithm=MD5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.Algorithm != "HmacMD5" {
		t.Fatalf("unexpected algorithm %q", key.Algorithm)
	}
	if _, err := LookupAlgorithm(key.Algorithm); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestParseKeyURINotOTP(t *testing.T) {
	for _, raw := range []string{
		"",
		"hello world",
		"https://example.com/?secret=ABC",
		"otpauth://hotp/alice?secret=GEZDGNBVGY3TQOJQ&counter=1",
		"otpauth://",
	} {
		_, err := ParseKeyURI(raw)
		if !errors.Is(err, ErrNotOTPURI) {
			t.Fatalf("%q: expected ErrNotOTPURI, got %v", raw, err)
		}
	}
}

func TestParseKeyURIMalformed(t *testing.T) {
	for _, raw := range []string{
		"otpauth://totp/alice",
		"otpauth://totp/?secret=GEZDGNBVGY3TQOJQ",
		"otpauth://totp/alice?secret=GEZDGNBVGY3TQOJQ&digits=abc",
		"otpauth://totp/alice?secret=GEZDGNBVGY3TQOJQ&digits=0",
		"otpauth://totp/alice?secret=GEZDGNBVGY3TQOJQ&digits=11",
		"otpauth://totp/alice?secret=GEZDGNBVGY3TQOJQ&period=0",
		"otpauth://totp/alice?secret=GEZDGNBVGY3TQOJQ&period=-30",
	} {
		_, err := ParseKeyURI(raw)
		if !errors.Is(err, ErrMalformedURI) {
			t.Fatalf("%q: expected ErrMalformedURI, got %v", raw, err)
		}
	}
}

func TestDecodeSecret(t *testing.T) {
	want := []byte("12345678901234567890")

	for _, in := range []string{
		"GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ",
		"gezdgnbvgy3tqojqgezdgnbvgy3tqojq",
		"GEZD GNBV GY3T QOJQ GEZD GNBV GY3T QOJQ",
		"GEZD-GNBV-GY3T-QOJQ-GEZD-GNBV-GY3T-QOJQ",
	} {
		got, err := DecodeSecret(in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("%q: unexpected secret %q", in, got)
		}
	}
}

func TestDecodeSecretRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "====", "not base32!", "1"} {
		if _, err := DecodeSecret(in); !errors.Is(err, ErrMalformedURI) {
			t.Fatalf("%q: expected ErrMalformedURI, got %v", in, err)
		}
	}
}
