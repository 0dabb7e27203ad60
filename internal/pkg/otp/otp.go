package otp

import (
	"crypto/hmac"
	"encoding/binary"
	"errors"
	"hash"
	"sort"
	"strings"
	"time"

	libotp "github.com/pquerna/otp"
)

const (
	// AlgorithmSHA1 is the default keyed-hash algorithm.
	AlgorithmSHA1 = "HmacSHA1"
	// AlgorithmSHA256 is HMAC with SHA-256.
	AlgorithmSHA256 = "HmacSHA256"
	// AlgorithmSHA512 is HMAC with SHA-512.
	AlgorithmSHA512 = "HmacSHA512"

	// DefaultDigits is the code length used when a URI does not set one.
	DefaultDigits = 6
	// MaxDigits caps the code length; a 31-bit truncated value has at most 10 decimal digits.
	MaxDigits = 10
	// DefaultPeriod is the RFC 6238 time step.
	DefaultPeriod = 30 * time.Second
)

var (
	// ErrUnsupportedAlgorithm indicates an algorithm outside the supported keyed-hash set.
	ErrUnsupportedAlgorithm = errors.New("otp: unsupported algorithm")
	// ErrInvalidDigits indicates a digit count outside 1..MaxDigits.
	ErrInvalidDigits = errors.New("otp: invalid digits")
	// ErrInvalidPeriod indicates a non-positive period.
	ErrInvalidPeriod = errors.New("otp: invalid period")
)

// algorithms is the keyed-hash capability set. MD5 is left out on purpose:
// its 16-byte MAC is shorter than the largest truncation window.
var algorithms = map[string]libotp.Algorithm{
	AlgorithmSHA1:   libotp.AlgorithmSHA1,
	AlgorithmSHA256: libotp.AlgorithmSHA256,
	AlgorithmSHA512: libotp.AlgorithmSHA512,
}

// Algorithms returns the supported algorithm names, sorted.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupAlgorithm resolves a keyed-hash algorithm name.
func LookupAlgorithm(name string) (libotp.Algorithm, error) {
	alg, ok := algorithms[name]
	if !ok {
		return 0, ErrUnsupportedAlgorithm
	}
	return alg, nil
}

// AlgorithmFromVariant maps a URI algorithm parameter ("SHA1", "sha256") to its
// keyed-hash name. An empty variant selects AlgorithmSHA1. The result is not
// validated; use LookupAlgorithm for that.
func AlgorithmFromVariant(variant string) string {
	variant = strings.TrimSpace(variant)
	if variant == "" {
		return AlgorithmSHA1
	}
	return "Hmac" + strings.ToUpper(variant)
}

// Counter returns the RFC 6238 time counter T = floor(unix_ms / period).
func Counter(at time.Time, period time.Duration) uint64 {
	ms := period.Milliseconds()
	if ms <= 0 {
		return 0
	}
	return uint64(at.UnixMilli()) / uint64(ms)
}

// HOTP computes the RFC 4226 code for secret and counter using the named
// algorithm, zero-padded to digits characters.
func HOTP(secret []byte, counter uint64, algorithm string, digits int) (string, error) {
	alg, err := LookupAlgorithm(algorithm)
	if err != nil {
		return "", err
	}
	if digits < 1 || digits > MaxDigits {
		return "", ErrInvalidDigits
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(func() hash.Hash { return alg.Hash() }, secret)
	mac.Write(msg[:])
	sum := mac.Sum(nil)
	value := Truncate(sum)
	clear(sum)

	return Format(value, digits), nil
}

// Truncate applies RFC 4226 dynamic truncation: the low nibble of the last MAC
// byte selects a 4-byte window read as a big-endian integer with the top bit masked.
func Truncate(sum []byte) uint32 {
	offset := sum[len(sum)-1] & 0x0f
	return binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
}

// Format reduces value modulo 10^digits and left-pads it with zeros.
func Format(value uint32, digits int) string {
	mod := uint64(1)
	for range digits {
		mod *= 10
	}
	return libotp.Digits(digits).Format(int32(uint64(value) % mod))
}
