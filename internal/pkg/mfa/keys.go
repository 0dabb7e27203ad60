package mfa

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

var (
	// ErrMissingStaticKey indicates a missing static key.
	ErrMissingStaticKey = errors.New("mfa: missing static key")
	// ErrMissingPassphrase indicates an empty passphrase.
	ErrMissingPassphrase = errors.New("mfa: missing passphrase")
	// ErrKeyProviderClosed indicates use of a provider after Close.
	ErrKeyProviderClosed = errors.New("mfa: key provider closed")
)

const (
	saltLen = 16

	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// deriveKey expands master into a 32-byte subkey bound to purpose.
func deriveKey(master []byte, purpose Purpose) ([]byte, error) {
	if len(master) < keyLen {
		return nil, fmt.Errorf("mfa: master key has %d bytes (want at least %d): %w", len(master), keyLen, ErrInvalidKeyLength)
	}

	r := hkdf.New(sha256.New, master, nil, []byte("otpkeep/"+string(purpose)))
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		clear(key)
		return nil, fmt.Errorf("mfa: derive key: %w", err)
	}
	return key, nil
}

// StaticKeyProvider derives keys from a master key held in configuration.
// Good for local dev only.
type StaticKeyProvider struct {
	// KeyBytes is the raw master key material, at least 32 bytes.
	KeyBytes []byte
}

// Key returns the subkey for the provided scope.
func (p StaticKeyProvider) Key(scope Scope) ([]byte, error) {
	if len(p.KeyBytes) == 0 {
		return nil, ErrMissingStaticKey
	}
	return deriveKey(p.KeyBytes, scope.Purpose)
}

// FileKeyProvider derives keys from a device key file. The file is created
// with 32 random bytes and mode 0600 on first use.
type FileKeyProvider struct {
	path string

	mu     sync.Mutex
	master []byte
	closed bool
}

// NewFileKeyProvider returns a provider backed by the key file at path.
func NewFileKeyProvider(path string) *FileKeyProvider {
	return &FileKeyProvider{path: path}
}

// Key returns the subkey for the provided scope.
func (p *FileKeyProvider) Key(scope Scope) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrKeyProviderClosed
	}
	if p.master == nil {
		master, err := loadOrCreateRandom(p.path, keyLen)
		if err != nil {
			return nil, err
		}
		p.master = master
	}

	return deriveKey(p.master, scope.Purpose)
}

// Close wipes the cached master key.
func (p *FileKeyProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	clear(p.master)
	p.master = nil
	p.closed = true
	return nil
}

// PassphraseKeyProvider derives keys from a passphrase stretched with Argon2id
// over a persisted random salt.
type PassphraseKeyProvider struct {
	passphrase []byte
	saltPath   string

	mu     sync.Mutex
	master []byte
	closed bool
}

// NewPassphraseKeyProvider returns a provider for passphrase. The salt lives
// at saltPath and is created on first use.
func NewPassphraseKeyProvider(passphrase, saltPath string) *PassphraseKeyProvider {
	return &PassphraseKeyProvider{passphrase: []byte(passphrase), saltPath: saltPath}
}

// Key returns the subkey for the provided scope.
func (p *PassphraseKeyProvider) Key(scope Scope) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrKeyProviderClosed
	}
	if len(p.passphrase) == 0 {
		return nil, ErrMissingPassphrase
	}
	if p.master == nil {
		salt, err := loadOrCreateRandom(p.saltPath, saltLen)
		if err != nil {
			return nil, err
		}
		p.master = argon2.IDKey(p.passphrase, salt, argonTime, argonMemory, argonThreads, keyLen)
	}

	return deriveKey(p.master, scope.Purpose)
}

// Close wipes the passphrase and the stretched master key.
func (p *PassphraseKeyProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	clear(p.passphrase)
	clear(p.master)
	p.master = nil
	p.closed = true
	return nil
}

// loadOrCreateRandom reads exactly n bytes from path, creating the file with
// fresh random bytes when it does not exist.
func loadOrCreateRandom(path string, n int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != n {
			clear(data)
			return nil, fmt.Errorf("mfa: %s has %d bytes (want %d): %w", path, len(data), n, ErrInvalidKeyLength)
		}
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("mfa: read %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("mfa: create key dir: %w", err)
	}

	data = make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, data); err != nil {
		return nil, fmt.Errorf("mfa: generate key material: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		// another process created it first; use theirs.
		clear(data)
		return loadOrCreateRandom(path, n)
	}
	if err != nil {
		return nil, fmt.Errorf("mfa: create %s: %w", path, err)
	}

	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		clear(data)
		_ = os.Remove(path)
		return nil, fmt.Errorf("mfa: write %s: %w", path, err)
	}

	slog.Warn("generated new key material, data sealed under a previous key cannot be opened", "path", path)
	return data, nil
}
