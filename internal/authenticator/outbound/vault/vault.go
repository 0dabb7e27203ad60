// Package vault keeps OTP shared secrets and the account manifest encrypted
// at rest on a blob medium.
package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shandysiswandi/otpkeep/internal/pkg/blob"
	"github.com/shandysiswandi/otpkeep/internal/pkg/instrument"
	"github.com/shandysiswandi/otpkeep/internal/pkg/mfa"
	"github.com/shandysiswandi/otpkeep/internal/pkg/uid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrStoreRead indicates an entry exists but could not be read or authenticated.
	ErrStoreRead = errors.New("vault: store read failed")
	// ErrStoreWrite indicates an entry could not be durably replaced.
	ErrStoreWrite = errors.New("vault: store write failed")
	// ErrInvalidRef indicates a secret reference that is not a UUID.
	ErrInvalidRef = errors.New("vault: invalid secret ref")
)

const (
	secretDir   = "secrets"
	secretExt   = ".dat"
	manifestKey = "totp_accounts.json"
)

// Vault is the encrypted secret store and manifest holder.
type Vault struct {
	blob  blob.Blob
	enc   mfa.Encryptor
	ins   instrument.Instrumentation
	locks *keyedMutex
}

// New returns a vault storing ciphertext sealed by enc on b.
func New(b blob.Blob, enc mfa.Encryptor, ins instrument.Instrumentation) *Vault {
	if ins == nil {
		ins = instrument.NewNoop()
	}

	return &Vault{
		blob:  b,
		enc:   enc,
		ins:   ins,
		locks: newKeyedMutex(),
	}
}

func (v *Vault) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return v.ins.Tracer("authenticator.outbound.vault").Start(ctx, name)
}

func (v *Vault) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func secretKey(ref string) (string, error) {
	if !uid.Valid(ref) {
		return "", ErrInvalidRef
	}
	return secretDir + "/" + ref + secretExt, nil
}

func readErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreRead, err)
}

func writeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreWrite, err)
}

// keyedMutex serializes access per key while letting distinct keys proceed
// in parallel. Entries are dropped once no goroutine holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
