package mfa

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Encryptor defines the interface for encrypting/decrypting.
type Encryptor interface {
	// Encrypt returns ciphertext for the given plaintext and scope.
	Encrypt(plaintext []byte, scope Scope) (ciphertext []byte, err error)
	// Decrypt returns plaintext for the given ciphertext and scope.
	Decrypt(ciphertext []byte, scope Scope) (plaintext []byte, err error)
}

// KeyProvider provides 32-byte symmetric keys.
type KeyProvider interface {
	// Key returns a fresh copy of the key for this scope. Callers wipe it after use.
	Key(scope Scope) ([]byte, error)
}

// Ciphertext format (binary):
// [0..1]   uint16 version
// [2..n]   nonce (12 bytes for v1, 24 bytes for v2)
// [n..]    AEAD seal output (ciphertext + tag)
const (
	// VersionAESGCM tags AES-256-GCM ciphertexts.
	VersionAESGCM uint16 = 1
	// VersionXChaCha20 tags XChaCha20-Poly1305 ciphertexts.
	VersionXChaCha20 uint16 = 2
)

const (
	// CipherAESGCM is the configuration name of the AES-256-GCM suite.
	CipherAESGCM = "aes-gcm"
	// CipherXChaCha20 is the configuration name of the XChaCha20-Poly1305 suite.
	CipherXChaCha20 = "xchacha20-poly1305"
)

const (
	headerSize = 2
	keyLen     = 32
)

var (
	// ErrEncryptorNotConfigured indicates a missing encryptor key provider.
	ErrEncryptorNotConfigured = errors.New("mfa: encryptor not configured")
	// ErrPlaintextEmpty indicates an empty plaintext input.
	ErrPlaintextEmpty = errors.New("mfa: plaintext is empty")
	// ErrInvalidKeyLength indicates the key length is invalid.
	ErrInvalidKeyLength = errors.New("mfa: invalid key length")
	// ErrCiphertextTooShort indicates a truncated ciphertext.
	ErrCiphertextTooShort = errors.New("mfa: ciphertext too short")
	// ErrUnsupportedCiphertextVersion indicates an unsupported ciphertext version.
	ErrUnsupportedCiphertextVersion = errors.New("mfa: unsupported ciphertext version")
	// ErrUnsupportedCipher indicates an unknown cipher name in configuration.
	ErrUnsupportedCipher = errors.New("mfa: unsupported cipher")
	// ErrDecryptFailed indicates decryption failure.
	ErrDecryptFailed = errors.New("mfa: decrypt failed")
)

// suite describes one AEAD construction and its version tag.
type suite struct {
	version   uint16
	nonceSize int
	aead      func(key []byte) (cipher.AEAD, error)
}

var suites = map[uint16]suite{
	VersionAESGCM:    aesGCMSuite,
	VersionXChaCha20: xchachaSuite,
}

// AEADEncryptor implements Encryptor. It seals with one suite and opens any
// supported suite, selected by the ciphertext version header.
type AEADEncryptor struct {
	keys  KeyProvider
	suite suite
}

// NewEncryptor constructs an encryptor for the named cipher. An empty name
// selects AES-256-GCM.
func NewEncryptor(name string, keys KeyProvider) (*AEADEncryptor, error) {
	switch name {
	case "", CipherAESGCM:
		return NewAESGCMEncryptor(keys), nil
	case CipherXChaCha20:
		return NewXChaCha20Encryptor(keys), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCipher, name)
	}
}

// Version reports the header written by Encrypt.
func (e *AEADEncryptor) Version() uint16 {
	return e.suite.version
}

// Encrypt seals plaintext, binding the result to scope via AAD.
func (e *AEADEncryptor) Encrypt(plaintext []byte, scope Scope) ([]byte, error) {
	if e == nil || e.keys == nil {
		return nil, ErrEncryptorNotConfigured
	}
	if len(plaintext) == 0 {
		return nil, ErrPlaintextEmpty
	}

	aead, err := e.open(e.suite, scope)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, e.suite.nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("mfa: nonce generation failed: %w", err)
	}

	out := make([]byte, headerSize+len(nonce), headerSize+len(nonce)+len(plaintext)+aead.Overhead())
	binary.BigEndian.PutUint16(out[0:headerSize], e.suite.version)
	copy(out[headerSize:], nonce)

	return aead.Seal(out, nonce, plaintext, scopeAAD(scope)), nil
}

// Decrypt opens ciphertext sealed by any supported suite, requiring the same scope AAD.
func (e *AEADEncryptor) Decrypt(ciphertext []byte, scope Scope) ([]byte, error) {
	if e == nil || e.keys == nil {
		return nil, ErrEncryptorNotConfigured
	}
	if len(ciphertext) < headerSize {
		return nil, ErrCiphertextTooShort
	}

	version := binary.BigEndian.Uint16(ciphertext[0:headerSize])
	s, ok := suites[version]
	if !ok {
		return nil, fmt.Errorf("mfa: unsupported ciphertext version %d: %w", version, ErrUnsupportedCiphertextVersion)
	}
	if len(ciphertext) < headerSize+s.nonceSize+1 {
		return nil, ErrCiphertextTooShort
	}

	aead, err := e.open(s, scope)
	if err != nil {
		return nil, err
	}

	nonce := ciphertext[headerSize : headerSize+s.nonceSize]
	sealed := ciphertext[headerSize+s.nonceSize:]

	plain, err := aead.Open(nil, nonce, sealed, scopeAAD(scope))
	if err != nil {
		// do not leak whether it was wrong scope, wrong key or tampering.
		return nil, ErrDecryptFailed
	}
	return plain, nil
}

func (e *AEADEncryptor) open(s suite, scope Scope) (cipher.AEAD, error) {
	key, err := e.keys.Key(scope)
	if err != nil {
		return nil, fmt.Errorf("mfa: key provider error: %w", err)
	}
	defer clear(key)

	if len(key) != keyLen {
		return nil, fmt.Errorf("mfa: invalid key length %d (want %d): %w", len(key), keyLen, ErrInvalidKeyLength)
	}

	aead, err := s.aead(key)
	if err != nil {
		return nil, fmt.Errorf("mfa: cipher init failed: %w", err)
	}
	return aead, nil
}

// scopeAAD encodes the scope into a fixed-length byte slice for AEAD AAD.
// Field labels keep distinct scopes from colliding.
func scopeAAD(s Scope) []byte {
	canonical := fmt.Sprintf("ref=%s\npurpose=%s\n", s.Ref, s.Purpose)
	sum := sha256.Sum256([]byte(canonical))
	return sum[:]
}
