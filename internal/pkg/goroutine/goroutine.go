// Package goroutine runs named background tasks under a concurrency cap and
// gathers their failures for shutdown.
package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/otpkeep/internal/pkg/stacktrace"
)

// ErrPanicked wraps the value of a recovered task panic.
var ErrPanicked = errors.New("task panicked")

// perCPU sizes the cap when NewManager receives a non-positive limit.
const perCPU = 16

// Manager starts tasks while fewer than its limit are running. A task that
// cannot start is refused, never queued.
type Manager struct {
	slots chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
	errs   []error
}

func NewManager(limit int) *Manager {
	if limit < 1 {
		limit = runtime.NumCPU() * perCPU
	}

	return &Manager{slots: make(chan struct{}, limit)}
}

// Go starts f as task name and reports whether it started. It refuses work
// after Wait, at the limit, or when ctx is already done.
func (m *Manager) Go(ctx context.Context, name string, f func(ctx context.Context) error) bool {
	if m == nil {
		return false
	}
	if ctx.Err() != nil {
		slog.WarnContext(ctx, "task not started, context done", "task", name, "error", ctx.Err())
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		slog.WarnContext(ctx, "task not started, manager closed", "task", name)
		return false
	}

	select {
	case m.slots <- struct{}{}:
	default:
		slog.WarnContext(ctx, "task not started, limit reached", "task", name, "limit", cap(m.slots))
		return false
	}

	m.wg.Add(1)
	go m.run(ctx, name, f)

	return true
}

func (m *Manager) run(ctx context.Context, name string, f func(ctx context.Context) error) {
	defer m.wg.Done()
	defer func() { <-m.slots }()
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}
		stack := debug.Stack()
		if frames := stacktrace.InternalPaths(stack); len(frames) > 0 {
			slog.ErrorContext(ctx, "task panicked", "task", name, "panic", rvr, "frames", frames)
		} else {
			slog.ErrorContext(ctx, "task panicked", "task", name, "panic", rvr, "stack", string(stack))
		}
		m.record(fmt.Errorf("%s: %w: %v", name, ErrPanicked, rvr))
	}()

	if err := f(ctx); err != nil {
		m.record(fmt.Errorf("%s: %w", name, err))
	}
}

func (m *Manager) record(err error) {
	m.mu.Lock()
	m.errs = append(m.errs, err)
	m.mu.Unlock()
}

// Wait closes the manager to new tasks, blocks until the running ones return
// and joins their errors.
func (m *Manager) Wait() error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(m.errs...)
}
