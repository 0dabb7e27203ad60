// Package registry holds the ordered account list and the current selection,
// persisted as the encrypted account manifest.
package registry

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/entity"
	"github.com/shandysiswandi/otpkeep/internal/pkg/clock"
	"github.com/shandysiswandi/otpkeep/internal/pkg/validator"
	"go.uber.org/atomic"
)

var (
	// ErrManifestCorrupt indicates the manifest could not be decoded after
	// every attempt. The registry has fallen back to an empty list.
	ErrManifestCorrupt = errors.New("registry: manifest corrupt")
	// ErrManifestNotPreserved indicates a manifest that could not be loaded
	// has not been copied aside yet, so writing over it is refused.
	ErrManifestNotPreserved = errors.New("registry: unloaded manifest not preserved")
	// ErrIndexOutOfRange indicates an index that does not address an account.
	ErrIndexOutOfRange = errors.New("registry: index out of range")
)

const (
	DefaultMaxAttempts = 8
	DefaultRetryDelay  = 50 * time.Millisecond
)

// Store persists the encoded manifest.
type Store interface {
	ReadManifest(ctx context.Context) ([]byte, bool, error)
	WriteManifest(ctx context.Context, data []byte) error
	QuarantineManifest(ctx context.Context, suffix int64) (string, error)
}

// Config tunes how Load retries the manifest.
type Config struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// Snapshot is an immutable view of the registry. Accounts must not be modified.
type Snapshot struct {
	Accounts []entity.Account
	Selected int
}

// Account returns the selected account.
func (s *Snapshot) Account() (entity.Account, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Accounts) {
		return entity.Account{}, false
	}
	return s.Accounts[s.Selected], true
}

// Registry is the ordered account list with its selection. Changes are
// persisted before they become visible.
type Registry struct {
	store     Store
	validator validator.Validator
	clock     clock.Clocker
	cfg       Config

	// mu serializes writers; readers only load snap.
	mu        sync.Mutex
	snap      *atomic.Pointer[Snapshot]
	recovered *atomic.Bool
	// unpreserved is set while a manifest that failed to load has no
	// quarantine copy. Guarded by mu.
	unpreserved bool

	hookMu sync.RWMutex
	hooks  []func()
}

// New returns an empty registry over store. Call Load to read the manifest.
func New(store Store, v validator.Validator, clk clock.Clocker, cfg Config) *Registry {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if clk == nil {
		clk = clock.New()
	}

	return &Registry{
		store:     store,
		validator: v,
		clock:     clk,
		cfg:       cfg,
		snap:      atomic.NewPointer(&Snapshot{Selected: entity.NoSelection}),
		recovered: atomic.NewBool(false),
	}
}

// Snapshot returns the current state.
func (r *Registry) Snapshot() *Snapshot {
	return r.snap.Load()
}

// Accounts returns a copy of the account list.
func (r *Registry) Accounts() []entity.Account {
	return slices.Clone(r.snap.Load().Accounts)
}

// Selected returns the selected account and its index.
func (r *Registry) Selected() (entity.Account, int, bool) {
	s := r.snap.Load()
	acc, ok := s.Account()
	if !ok {
		return entity.Account{}, entity.NoSelection, false
	}
	return acc, s.Selected, true
}

// Recovered reports whether the last Load fell back to an empty registry.
func (r *Registry) Recovered() bool {
	return r.recovered.Load()
}

// OnChange registers fn to run after every committed change.
func (r *Registry) OnChange(fn func()) {
	r.hookMu.Lock()
	r.hooks = append(r.hooks, fn)
	r.hookMu.Unlock()
}

func (r *Registry) notify() {
	r.hookMu.RLock()
	hooks := slices.Clone(r.hooks)
	r.hookMu.RUnlock()

	for _, fn := range hooks {
		fn()
	}
}

// clampSelection maps a requested index onto the list: negative or empty
// means none, past the end means the last account.
func clampSelection(index, n int) int {
	if n == 0 || index < 0 {
		return entity.NoSelection
	}
	return lo.Clamp(index, 0, n-1)
}
