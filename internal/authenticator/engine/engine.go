// Package engine keeps the code of the selected account current.
//
// A single loop wakes on a fixed quantum, derives the RFC 6238 counter and
// the progress through the period, and hands code computation to a bounded
// goroutine. Only the newest requested counter may publish a code.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/otpkeep/internal/authenticator/entity"
	"github.com/shandysiswandi/otpkeep/internal/pkg/clock"
	"github.com/shandysiswandi/otpkeep/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpkeep/internal/pkg/instrument"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
)

// DefaultQuantum is the tick interval used when Config leaves it unset.
const DefaultQuantum = 250 * time.Millisecond

// Accounts exposes the current selection.
type Accounts interface {
	Selected() (entity.Account, int, bool)
}

// Secrets grants scoped access to decrypted secrets.
type Secrets interface {
	Use(ctx context.Context, ref string, fn func(secret []byte) error) (bool, error)
}

// Config tunes the tick loop.
type Config struct {
	Quantum time.Duration
}

// Engine derives the code of the selected account on every tick and
// publishes it to subscribers.
type Engine struct {
	accounts Accounts
	secrets  Secrets
	clock    clock.Clocker
	gm       *goroutine.Manager
	quantum  time.Duration

	state *atomic.Pointer[State]
	nudge chan struct{}

	// owned by the tick loop
	ref        string
	periodMS   int64
	epochStart int64
	counter    uint64
	hasCounter bool

	// mu guards the computation bookkeeping and every state store.
	mu      sync.Mutex
	want    tag
	running bool

	subMu sync.RWMutex
	subs  map[*subscriber]struct{}

	computations   metric.Int64Counter
	missingSecrets metric.Int64Counter
	staleDiscarded metric.Int64Counter
}

// tag identifies one requested computation.
type tag struct {
	ref       string
	counter   uint64
	algorithm string
	digits    int
}

func (t tag) same(o tag) bool {
	return t.ref == o.ref && t.counter == o.counter
}

// New returns an engine reading the selection from accounts and secrets from
// secrets. Run starts it.
func New(accounts Accounts, secrets Secrets, clk clock.Clocker, gm *goroutine.Manager, ins instrument.Instrumentation, cfg Config) *Engine {
	if cfg.Quantum <= 0 {
		cfg.Quantum = DefaultQuantum
	}
	if clk == nil {
		clk = clock.New()
	}
	if ins == nil {
		ins = instrument.NewNoop()
	}

	e := &Engine{
		accounts: accounts,
		secrets:  secrets,
		clock:    clk,
		gm:       gm,
		quantum:  cfg.Quantum,
		state:    atomic.NewPointer(idleState(clk.Now())),
		nudge:    make(chan struct{}, 1),
		subs:     make(map[*subscriber]struct{}),
	}
	e.initMetrics(ins)

	return e
}

func (e *Engine) initMetrics(ins instrument.Instrumentation) {
	meter := ins.Meter("authenticator.engine")

	var err error
	if e.computations, err = meter.Int64Counter("otp.engine.computations",
		metric.WithDescription("Number of code computations finished")); err != nil {
		slog.Warn("failed to create engine computations counter", "error", err)
	}
	if e.missingSecrets, err = meter.Int64Counter("otp.engine.missing_secret",
		metric.WithDescription("Number of computations without a stored secret")); err != nil {
		slog.Warn("failed to create engine missing secret counter", "error", err)
	}
	if e.staleDiscarded, err = meter.Int64Counter("otp.engine.stale_discarded",
		metric.WithDescription("Number of computations discarded for a newer counter")); err != nil {
		slog.Warn("failed to create engine stale counter", "error", err)
	}
}

func (e *Engine) count(ctx context.Context, c metric.Int64Counter) {
	if c != nil {
		c.Add(ctx, 1)
	}
}

// State returns the latest snapshot.
func (e *Engine) State() State {
	return *e.state.Load()
}

// Nudge wakes the loop early, typically after the selection changed.
func (e *Engine) Nudge() {
	select {
	case e.nudge <- struct{}{}:
	default:
	}
}

// Run drives the loop until ctx is done. It always returns nil.
func (e *Engine) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "otp engine started", "quantum", e.quantum.String())

	timer := time.NewTimer(e.tick(ctx))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			e.want = tag{}
			e.store(idleState(e.clock.Now()))
			e.mu.Unlock()
			slog.InfoContext(ctx, "otp engine stopped")
			return nil
		case <-e.nudge:
		case <-timer.C:
		}

		timer.Reset(e.tick(ctx))
	}
}

// tick refreshes the state for the current time and returns how long to
// sleep until the next quantum boundary.
func (e *Engine) tick(ctx context.Context) time.Duration {
	now := e.clock.Now()

	acc, index, ok := e.accounts.Selected()
	if !ok || acc.PeriodMS <= 0 {
		e.goIdle(now)
		return e.quantum
	}

	nowMS := now.UnixMilli()
	period := acc.PeriodMS
	if acc.SecretRef != e.ref || period != e.periodMS || nowMS < e.epochStart {
		e.ref = acc.SecretRef
		e.periodMS = period
		e.epochStart = nowMS - nowMS%period
		e.hasCounter = false
	}

	elapsed := nowMS - e.epochStart
	inPeriod := elapsed % period
	counter := uint64(e.epochStart/period + elapsed/period)

	next := &State{
		Phase:           entity.PhaseTicking,
		SecretRef:       acc.SecretRef,
		AccountIndex:    index,
		Counter:         counter,
		PeriodMS:        period,
		CounterStart:    time.UnixMilli(nowMS - inPeriod),
		TimeRemainingMS: inPeriod,
		ValidForMS:      period - inPeriod,
		Progress:        float64(inPeriod) / float64(period),
		UpdatedAt:       now,
	}

	e.mu.Lock()
	// the previous code stays visible for the same account until a newer one lands
	if prev := e.state.Load(); prev.SecretRef == next.SecretRef {
		next.Code = prev.Code
	}
	e.store(next)
	e.mu.Unlock()

	if !e.hasCounter || counter != e.counter {
		e.counter = counter
		e.hasCounter = true
		e.request(ctx, tag{ref: acc.SecretRef, counter: counter, algorithm: acc.Algorithm, digits: acc.Digits})
	}

	quantumMS := e.quantum.Milliseconds()
	if quantumMS <= 0 {
		return e.quantum
	}
	return time.Duration(quantumMS-elapsed%quantumMS) * time.Millisecond
}

func (e *Engine) goIdle(now time.Time) {
	e.ref = ""
	e.periodMS = 0
	e.hasCounter = false

	e.mu.Lock()
	defer e.mu.Unlock()

	e.want = tag{}
	if e.state.Load().Phase != entity.PhaseIdle {
		e.store(idleState(now))
	}
}

// store publishes s. Callers hold e.mu.
func (e *Engine) store(s *State) {
	e.state.Store(s)
	e.publish(*s)
}
