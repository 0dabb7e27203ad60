package vault

import (
	"context"
	"errors"
	"strconv"

	"github.com/shandysiswandi/otpkeep/internal/pkg/blob"
	"github.com/shandysiswandi/otpkeep/internal/pkg/mfa"
)

var manifestScope = mfa.Scope{Ref: manifestKey, Purpose: mfa.PurposeManifest}

// ReadManifest returns the decrypted manifest. A missing manifest reports
// found=false without an error.
func (v *Vault) ReadManifest(ctx context.Context) (data []byte, found bool, err error) {
	ctx, span := v.startSpan(ctx, "ReadManifest")
	defer func() { v.endSpan(span, err) }()

	unlock := v.locks.lock(manifestKey)
	defer unlock()

	sealed, err := v.blob.Read(ctx, manifestKey)
	if errors.Is(err, blob.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, readErr(err)
	}

	data, err = v.enc.Decrypt(sealed, manifestScope)
	if err != nil {
		return nil, false, readErr(err)
	}

	return data, true, nil
}

// WriteManifest encrypts data and atomically replaces the manifest.
func (v *Vault) WriteManifest(ctx context.Context, data []byte) (err error) {
	ctx, span := v.startSpan(ctx, "WriteManifest")
	defer func() { v.endSpan(span, err) }()

	unlock := v.locks.lock(manifestKey)
	defer unlock()

	sealed, err := v.enc.Encrypt(data, manifestScope)
	if err != nil {
		return writeErr(err)
	}

	if err := v.blob.Write(ctx, manifestKey, sealed); err != nil {
		return writeErr(err)
	}

	return nil
}

// QuarantineManifest copies the stored manifest, as raw ciphertext, to a
// sibling key tagged with suffix and returns that key. Nothing is copied when
// no manifest exists.
func (v *Vault) QuarantineManifest(ctx context.Context, suffix int64) (key string, err error) {
	ctx, span := v.startSpan(ctx, "QuarantineManifest")
	defer func() { v.endSpan(span, err) }()

	unlock := v.locks.lock(manifestKey)
	defer unlock()

	raw, err := v.blob.Read(ctx, manifestKey)
	if errors.Is(err, blob.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", readErr(err)
	}

	key = manifestKey + ".corrupt-" + strconv.FormatInt(suffix, 10)
	if err := v.blob.Write(ctx, key, raw); err != nil {
		return "", writeErr(err)
	}

	return key, nil
}
