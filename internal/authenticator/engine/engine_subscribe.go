package engine

import (
	"context"

	"go.uber.org/atomic"
)

type subscriber struct {
	ch     chan State
	closed *atomic.Bool
}

// Subscribe streams every state change until ctx is done, starting with the
// current state. A subscriber that falls behind only sees the newest state.
func (e *Engine) Subscribe(ctx context.Context) <-chan State {
	sub := &subscriber{ch: make(chan State, 1), closed: atomic.NewBool(false)}

	e.subMu.Lock()
	sub.ch <- e.State()
	e.subs[sub] = struct{}{}
	e.subMu.Unlock()

	context.AfterFunc(ctx, func() {
		e.subMu.Lock()
		delete(e.subs, sub)
		sub.closed.Store(true)
		close(sub.ch)
		e.subMu.Unlock()
	})

	return sub.ch
}

func (e *Engine) publish(s State) {
	e.subMu.RLock()
	defer e.subMu.RUnlock()

	for sub := range e.subs {
		if sub.closed.Load() {
			continue
		}

		select {
		case sub.ch <- s:
			continue
		default:
		}

		// drop the unread frame in favour of the newer one
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- s:
		default:
		}
	}
}
