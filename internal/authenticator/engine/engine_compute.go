package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/otpkeep/internal/pkg/otp"
)

// request records t as the wanted computation and starts a worker unless one
// is already running; a running worker picks up the newest tag when it
// finishes.
func (e *Engine) request(ctx context.Context, t tag) {
	e.mu.Lock()
	e.want = t
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	if !e.gm.Go(ctx, "engine.compute", e.work) {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		// forget the counter so the next tick asks again
		e.hasCounter = false
	}
}

func (e *Engine) work(ctx context.Context) error {
	finished := false
	defer func() {
		if !finished {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
		}
	}()

	for {
		e.mu.Lock()
		t := e.want
		e.mu.Unlock()

		if t.ref == "" {
			e.mu.Lock()
			if e.want.same(t) {
				e.running = false
				finished = true
				e.mu.Unlock()
				return nil
			}
			e.mu.Unlock()
			continue
		}

		code, found := e.compute(ctx, t)

		e.mu.Lock()
		if !e.want.same(t) {
			e.mu.Unlock()
			e.count(ctx, e.staleDiscarded)
			continue
		}

		e.running = false
		finished = true
		if prev := e.state.Load(); found && prev.SecretRef == t.ref && prev.Counter == t.counter {
			next := *prev
			next.Code = code
			e.store(&next)
		}
		e.mu.Unlock()

		return nil
	}
}

// compute derives the code for t. It panics when the MAC cannot be computed
// for an account that passed validation.
func (e *Engine) compute(ctx context.Context, t tag) (string, bool) {
	var code string
	found, err := e.secrets.Use(ctx, t.ref, func(secret []byte) error {
		c, err := otp.HOTP(secret, t.counter, t.algorithm, t.digits)
		if err != nil {
			panic(fmt.Sprintf("otp engine: mac computation failed for %s: %v", t.algorithm, err))
		}
		code = c
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to read secret for code computation", "secret_ref", t.ref, "error", err)
		return "", false
	}
	if !found {
		slog.WarnContext(ctx, "secret missing for selected account", "secret_ref", t.ref)
		e.count(ctx, e.missingSecrets)
		return "", false
	}

	e.count(ctx, e.computations)
	return code, true
}
