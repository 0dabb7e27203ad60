// Package clock provides a tiny time abstraction.
//
// Production code should depend on the Clocker interface instead of calling
// time.Now() directly. The OTP engine derives its counter from Clocker.Now, so
// tests drive it with a Fixed clock and assert exact counters and codes.
package clock
