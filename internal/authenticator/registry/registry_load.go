package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/entity"
)

// Load replaces the in-memory state with the stored manifest.
//
// Reading and decoding are attempted up to MaxAttempts times. When every
// attempt fails the registry falls back to an empty list and the raw manifest
// is copied aside, so a manifest sealed under another key or damaged on disk
// survives the next write. Until that copy exists, writes are refused with
// ErrManifestNotPreserved. A decode failure returns ErrManifestCorrupt; a
// store read failure returns the read error.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		snap      *Snapshot
		lastErr   error
		decodeErr bool
		attempt   int
	)
	backoff := retry.WithMaxRetries(uint64(r.cfg.MaxAttempts-1), retry.NewConstant(r.cfg.RetryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		data, found, err := r.store.ReadManifest(ctx)
		if err != nil {
			lastErr, decodeErr = err, false
			slog.WarnContext(ctx, "failed to read account manifest", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		if !found {
			snap = &Snapshot{Selected: entity.NoSelection}
			return nil
		}

		s, err := r.decode(data)
		clear(data)
		if err != nil {
			lastErr, decodeErr = err, true
			slog.WarnContext(ctx, "failed to decode account manifest", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}

		snap = s
		return nil
	})
	if err == nil {
		r.snap.Store(snap)
		r.recovered.Store(false)
		r.unpreserved = false
		r.notify()
		return nil
	}

	// ctx ended before any attempt produced a verdict
	if lastErr == nil {
		return err
	}

	r.snap.Store(&Snapshot{Selected: entity.NoSelection})
	r.recovered.Store(true)
	r.unpreserved = true
	r.notify()

	if qErr := r.preserve(ctx); qErr != nil {
		slog.ErrorContext(ctx, "failed to quarantine account manifest, writes are refused", "error", qErr)
	}

	if decodeErr {
		return fmt.Errorf("%w: %w", ErrManifestCorrupt, lastErr)
	}
	return lastErr
}

// preserve copies the manifest that failed to load aside, once. It is a no-op
// when no copy is pending.
func (r *Registry) preserve(ctx context.Context) error {
	if !r.unpreserved {
		return nil
	}

	key, err := r.store.QuarantineManifest(ctx, r.clock.Now().UnixMilli())
	if err != nil {
		return err
	}
	if key != "" {
		slog.WarnContext(ctx, "account manifest quarantined", "key", key)
	}

	r.unpreserved = false
	return nil
}

func (r *Registry) decode(data []byte) (*Snapshot, error) {
	m, err := decodeManifest(data)
	if err != nil {
		return nil, err
	}

	if r.validator != nil {
		for i, acc := range m.Accounts {
			if err := r.validator.Validate(acc); err != nil {
				return nil, fmt.Errorf("account %d: %w", i, err)
			}
		}
	}

	return &Snapshot{
		Accounts: m.Accounts,
		Selected: clampSelection(m.Selected, len(m.Accounts)),
	}, nil
}
