package mfa

import (
	"crypto/aes"
	"crypto/cipher"
)

var aesGCMSuite = suite{
	version:   VersionAESGCM,
	nonceSize: 12,
	aead: func(key []byte) (cipher.AEAD, error) {
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	},
}

// NewAESGCMEncryptor constructs an AES-256-GCM encryptor.
func NewAESGCMEncryptor(keys KeyProvider) *AEADEncryptor {
	return &AEADEncryptor{keys: keys, suite: aesGCMSuite}
}
