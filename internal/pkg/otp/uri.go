package otp

import (
	"encoding/base32"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	libotp "github.com/pquerna/otp"
)

// URIPrefix is the scheme and type prefix of a TOTP enrollment payload.
const URIPrefix = "otpauth://totp/"

var (
	// ErrNotOTPURI indicates a payload that is not a TOTP enrollment URI at all.
	ErrNotOTPURI = errors.New("otp: not an otpauth totp uri")
	// ErrMalformedURI indicates a TOTP enrollment URI with missing or invalid fields.
	ErrMalformedURI = errors.New("otp: malformed otpauth uri")
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// KeyURI holds the fields of a parsed enrollment URI.
//
// Algorithm carries the keyed-hash name derived from the URI and is not
// checked against the supported set; callers decide how to reject it.
type KeyURI struct {
	AccountName string
	Issuer      string
	Secret      string
	Algorithm   string
	Digits      int
	Period      time.Duration
	Image       string
}

// ParseKeyURI parses raw as otpauth://totp/[issuer:]account?secret=...
func ParseKeyURI(raw string) (*KeyURI, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < len(URIPrefix) || !strings.EqualFold(raw[:len(URIPrefix)], URIPrefix) {
		return nil, ErrNotOTPURI
	}

	key, err := libotp.NewKeyFromURL(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}
	q := u.Query()

	out := &KeyURI{
		AccountName: strings.TrimSpace(key.AccountName()),
		Issuer:      strings.TrimSpace(key.Issuer()),
		Secret:      strings.TrimSpace(q.Get("secret")),
		Algorithm:   AlgorithmFromVariant(q.Get("algorithm")),
		Digits:      DefaultDigits,
		Period:      DefaultPeriod,
		Image:       strings.TrimSpace(q.Get("image")),
	}

	if out.Secret == "" {
		return nil, fmt.Errorf("%w: secret is required", ErrMalformedURI)
	}
	if out.AccountName == "" {
		return nil, fmt.Errorf("%w: account name is required", ErrMalformedURI)
	}

	if v := strings.TrimSpace(q.Get("digits")); v != "" {
		digits, err := strconv.Atoi(v)
		if err != nil || digits < 1 || digits > MaxDigits {
			return nil, fmt.Errorf("%w: digits %q", ErrMalformedURI, v)
		}
		out.Digits = digits
	}

	if v := strings.TrimSpace(q.Get("period")); v != "" {
		seconds, err := strconv.ParseUint(v, 10, 32)
		if err != nil || seconds == 0 {
			return nil, fmt.Errorf("%w: period %q", ErrMalformedURI, v)
		}
		out.Period = time.Duration(seconds) * time.Second
	}

	return out, nil
}

// DecodeSecret decodes a base32 secret. Case, embedded spaces or dashes, and
// missing padding are tolerated.
func DecodeSecret(s string) ([]byte, error) {
	s = strings.ToUpper(s)
	s = strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(s)
	s = strings.TrimRight(s, "=")
	if s == "" {
		return nil, fmt.Errorf("%w: empty secret", ErrMalformedURI)
	}

	secret, err := b32.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: secret is not base32", ErrMalformedURI)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty secret", ErrMalformedURI)
	}
	return secret, nil
}
