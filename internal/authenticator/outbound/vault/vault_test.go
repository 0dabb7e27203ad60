package vault

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shandysiswandi/otpkeep/internal/pkg/blob"
	"github.com/shandysiswandi/otpkeep/internal/pkg/mfa"
)

const (
	refA = "0192f0b4-7a8e-7000-8000-000000000001"
	refB = "0192f0b4-7a8e-7000-8000-000000000002"
)

func newTestVault(t *testing.T) (*Vault, blob.Blob) {
	t.Helper()

	b, err := blob.NewFile(blob.FileOptions{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("new file blob: %v", err)
	}
	keys := mfa.StaticKeyProvider{KeyBytes: bytes.Repeat([]byte{0x24}, 32)}

	return New(b, mfa.NewXChaCha20Encryptor(keys), nil), b
}

type failingBlob struct {
	blob.Blob
	readErr  error
	writeErr error
}

func (f failingBlob) Read(ctx context.Context, key string) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.Blob.Read(ctx, key)
}

func (f failingBlob) Write(ctx context.Context, key string, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.Blob.Write(ctx, key, data)
}

func TestPutGetRoundTrip(t *testing.T) {
	// Arrange
	ctx := context.Background()
	v, _ := newTestVault(t)
	secret := []byte("12345678901234567890")

	// Act
	if err := v.Put(ctx, refA, secret); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, found, err := v.Get(ctx, refA)

	// Assert
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if !bytes.Equal(got, secret) {
		t.Fatalf("expected %q, got %q", secret, got)
	}
}

func TestPutReplacesEntry(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t)

	if err := v.Put(ctx, refA, []byte("old")); err != nil {
		t.Fatalf("put old: %v", err)
	}
	if err := v.Put(ctx, refA, []byte("new")); err != nil {
		t.Fatalf("put new: %v", err)
	}

	got, _, err := v.Get(ctx, refA)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "new" {
		t.Fatalf("expected new, got %q", got)
	}
}

func TestGetMissingIsNotAnError(t *testing.T) {
	v, _ := newTestVault(t)

	got, found, err := v.Get(context.Background(), refA)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found || got != nil {
		t.Fatalf("expected absent, got found=%v value=%q", found, got)
	}
}

func TestGetCorruptEntryIsReadError(t *testing.T) {
	// Arrange
	ctx := context.Background()
	v, b := newTestVault(t)
	if err := b.Write(ctx, "secrets/"+refA+".dat", []byte("garbage that is not a ciphertext")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Act
	_, found, err := v.Get(ctx, refA)

	// Assert
	if !errors.Is(err, ErrStoreRead) {
		t.Fatalf("expected ErrStoreRead, got %v", err)
	}
	if found {
		t.Fatalf("corrupt entry must not be reported as found")
	}
}

func TestGetSwappedEntryIsReadError(t *testing.T) {
	// Arrange
	ctx := context.Background()
	v, b := newTestVault(t)
	if err := v.Put(ctx, refA, []byte("secret-a")); err != nil {
		t.Fatalf("put: %v", err)
	}
	sealed, err := b.Read(ctx, "secrets/"+refA+".dat")
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if err := b.Write(ctx, "secrets/"+refB+".dat", sealed); err != nil {
		t.Fatalf("copy raw: %v", err)
	}

	// Act
	_, _, err = v.Get(ctx, refB)

	// Assert
	if !errors.Is(err, ErrStoreRead) {
		t.Fatalf("expected ErrStoreRead for a ciphertext bound to another ref, got %v", err)
	}
}

func TestStoreFailuresAreTyped(t *testing.T) {
	ctx := context.Background()
	v, b := newTestVault(t)
	boom := errors.New("disk on fire")

	v.blob = failingBlob{Blob: b, writeErr: boom}
	if err := v.Put(ctx, refA, []byte("x")); !errors.Is(err, ErrStoreWrite) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped ErrStoreWrite, got %v", err)
	}

	v.blob = failingBlob{Blob: b, readErr: boom}
	if _, _, err := v.Get(ctx, refA); !errors.Is(err, ErrStoreRead) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped ErrStoreRead, got %v", err)
	}
}

func TestInvalidRef(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t)

	for _, ref := range []string{"", "../../etc/passwd", "alice@example.com"} {
		if err := v.Put(ctx, ref, []byte("x")); !errors.Is(err, ErrInvalidRef) {
			t.Fatalf("put %q: expected ErrInvalidRef, got %v", ref, err)
		}
		if _, _, err := v.Get(ctx, ref); !errors.Is(err, ErrInvalidRef) {
			t.Fatalf("get %q: expected ErrInvalidRef, got %v", ref, err)
		}
	}
}

func TestUseZeroesBuffer(t *testing.T) {
	// Arrange
	ctx := context.Background()
	v, _ := newTestVault(t)
	if err := v.Put(ctx, refA, []byte("secret")); err != nil {
		t.Fatalf("put: %v", err)
	}
	var seen []byte

	// Act
	found, err := v.Use(ctx, refA, func(secret []byte) error {
		if string(secret) != "secret" {
			t.Fatalf("unexpected secret %q", secret)
		}
		seen = secret
		return nil
	})

	// Assert
	if err != nil || !found {
		t.Fatalf("use: found=%v err=%v", found, err)
	}
	if !bytes.Equal(seen, make([]byte, len("secret"))) {
		t.Fatalf("expected zeroed buffer after use, got %q", seen)
	}
}

func TestUseZeroesBufferOnPanic(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t)
	if err := v.Put(ctx, refA, []byte("secret")); err != nil {
		t.Fatalf("put: %v", err)
	}
	var seen []byte

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_, _ = v.Use(ctx, refA, func(secret []byte) error {
			seen = secret
			panic("mac failure")
		})
	}()

	if !bytes.Equal(seen, make([]byte, len("secret"))) {
		t.Fatalf("expected zeroed buffer after panic, got %q", seen)
	}
}

func TestUsePropagatesCallbackError(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t)
	if err := v.Put(ctx, refA, []byte("secret")); err != nil {
		t.Fatalf("put: %v", err)
	}
	boom := errors.New("boom")

	found, err := v.Use(ctx, refA, func([]byte) error { return boom })

	if !found || !errors.Is(err, boom) {
		t.Fatalf("expected found with callback error, got found=%v err=%v", found, err)
	}
}

func TestUseMissingSkipsCallback(t *testing.T) {
	v, _ := newTestVault(t)

	found, err := v.Use(context.Background(), refA, func([]byte) error {
		t.Fatalf("callback must not run for a missing entry")
		return nil
	})

	if err != nil || found {
		t.Fatalf("expected absent, got found=%v err=%v", found, err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t)
	if err := v.Put(ctx, refA, []byte("secret")); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := v.Delete(ctx, refA); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := v.Delete(ctx, refA); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if _, found, _ := v.Get(ctx, refA); found {
		t.Fatalf("expected entry to be gone")
	}
}

func TestManifestRoundTripAndQuarantine(t *testing.T) {
	// Arrange
	ctx := context.Background()
	v, b := newTestVault(t)

	// Act
	_, found, err := v.ReadManifest(ctx)
	if err != nil || found {
		t.Fatalf("expected no manifest, got found=%v err=%v", found, err)
	}
	if err := v.WriteManifest(ctx, []byte(`{"version":1}`)); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	data, found, err := v.ReadManifest(ctx)
	if err != nil || !found || string(data) != `{"version":1}` {
		t.Fatalf("read manifest: data=%q found=%v err=%v", data, found, err)
	}
	key, err := v.QuarantineManifest(ctx, 1700000000000)

	// Assert
	if err != nil {
		t.Fatalf("quarantine: %v", err)
	}
	if key != "totp_accounts.json.corrupt-1700000000000" {
		t.Fatalf("unexpected quarantine key %q", key)
	}
	raw, err := b.Read(ctx, manifestKey)
	if err != nil {
		t.Fatalf("read raw manifest: %v", err)
	}
	copied, err := b.Read(ctx, key)
	if err != nil {
		t.Fatalf("read quarantined copy: %v", err)
	}
	if !bytes.Equal(raw, copied) {
		t.Fatalf("quarantined copy differs from the original")
	}
}

func TestManifestIsNotReadableAsSecret(t *testing.T) {
	ctx := context.Background()
	v, b := newTestVault(t)
	if err := v.Put(ctx, refA, []byte(`[]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	sealed, _ := b.Read(ctx, "secrets/"+refA+".dat")
	if err := b.Write(ctx, manifestKey, sealed); err != nil {
		t.Fatalf("seed manifest: %v", err)
	}

	if _, _, err := v.ReadManifest(ctx); !errors.Is(err, ErrStoreRead) {
		t.Fatalf("expected ErrStoreRead, got %v", err)
	}
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := newKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)

	for range 16 {
		wg.Go(func() {
			unlock := km.lock("k")
			mu.Lock()
			active++
			maxSeen = max(maxSeen, active)
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		})
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected exclusive access, saw %d holders", maxSeen)
	}
	if len(km.locks) != 0 {
		t.Fatalf("expected lock table to drain, got %d entries", len(km.locks))
	}
}
