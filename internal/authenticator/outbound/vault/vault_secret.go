package vault

import (
	"context"
	"errors"

	"github.com/shandysiswandi/otpkeep/internal/pkg/blob"
	"github.com/shandysiswandi/otpkeep/internal/pkg/mfa"
)

// Put encrypts secret and replaces the entry stored under ref.
func (v *Vault) Put(ctx context.Context, ref string, secret []byte) (err error) {
	ctx, span := v.startSpan(ctx, "Put")
	defer func() { v.endSpan(span, err) }()

	key, err := secretKey(ref)
	if err != nil {
		return err
	}

	unlock := v.locks.lock(key)
	defer unlock()

	sealed, err := v.enc.Encrypt(secret, mfa.Scope{Ref: ref, Purpose: mfa.PurposeOTPSeed})
	if err != nil {
		return writeErr(err)
	}

	if err := v.blob.Write(ctx, key, sealed); err != nil {
		return writeErr(err)
	}

	return nil
}

// Get returns a copy of the decrypted secret. A missing entry reports
// found=false without an error. The caller owns the returned buffer and
// should clear it; prefer Use.
func (v *Vault) Get(ctx context.Context, ref string) (secret []byte, found bool, err error) {
	ctx, span := v.startSpan(ctx, "Get")
	defer func() { v.endSpan(span, err) }()

	key, err := secretKey(ref)
	if err != nil {
		return nil, false, err
	}

	unlock := v.locks.lock(key)
	defer unlock()

	sealed, err := v.blob.Read(ctx, key)
	if errors.Is(err, blob.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, readErr(err)
	}

	secret, err = v.enc.Decrypt(sealed, mfa.Scope{Ref: ref, Purpose: mfa.PurposeOTPSeed})
	if err != nil {
		return nil, false, readErr(err)
	}

	return secret, true, nil
}

// Use decrypts the secret stored under ref and passes it to fn. The buffer is
// only valid during fn and is zeroed when Use returns, including when fn panics.
func (v *Vault) Use(ctx context.Context, ref string, fn func(secret []byte) error) (bool, error) {
	secret, found, err := v.Get(ctx, ref)
	if err != nil || !found {
		return found, err
	}
	defer clear(secret)

	return true, fn(secret)
}

// Delete removes the entry stored under ref. A missing entry is not an error.
func (v *Vault) Delete(ctx context.Context, ref string) (err error) {
	ctx, span := v.startSpan(ctx, "Delete")
	defer func() { v.endSpan(span, err) }()

	key, err := secretKey(ref)
	if err != nil {
		return err
	}

	unlock := v.locks.lock(key)
	defer unlock()

	if err := v.blob.Remove(ctx, key); err != nil {
		return writeErr(err)
	}

	return nil
}
