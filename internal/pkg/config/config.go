// Package config reads settings from a YAML file layered over Defaults, with
// OTPKEEP_* environment variables on top.
package config

import (
	"io"
	"time"
)

// Config is the read side of the settings. Getters never fail: a missing or
// unconvertible value yields the type's zero value, so every key the
// application reads must have an entry in Defaults.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetFloat64(key string) float64

	// GetMillisecond and GetSecond read an integer and scale it, so keys
	// carry their unit in the name (retry_delay_ms, timeout_seconds).
	GetMillisecond(key string) time.Duration
	GetSecond(key string) time.Duration

	// GetBinary decodes a standard base64 value; nil when it does not decode.
	GetBinary(key string) []byte

	// GetArray accepts a YAML sequence or a comma separated string.
	GetArray(key string) []string
}
