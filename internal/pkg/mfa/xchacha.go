package mfa

import (
	"golang.org/x/crypto/chacha20poly1305"
)

var xchachaSuite = suite{
	version:   VersionXChaCha20,
	nonceSize: chacha20poly1305.NonceSizeX,
	aead:      chacha20poly1305.NewX,
}

// NewXChaCha20Encryptor constructs an XChaCha20-Poly1305 encryptor. Its 24-byte
// nonces are safe to draw at random for any realistic number of writes.
func NewXChaCha20Encryptor(keys KeyProvider) *AEADEncryptor {
	return &AEADEncryptor{keys: keys, suite: xchachaSuite}
}
