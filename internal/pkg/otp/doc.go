// Package otp implements the one-time password primitives used by the
// authenticator: RFC 4226 HOTP with dynamic truncation, the RFC 6238 time
// counter, and parsing of otpauth:// enrollment URIs.
//
// Algorithm names follow the keyed-hash naming of the manifest ("HmacSHA1",
// "HmacSHA256", "HmacSHA512"). Anything else is rejected with
// ErrUnsupportedAlgorithm so unknown names fail closed.
package otp
