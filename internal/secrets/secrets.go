// Package secrets decrypts the wallet private key the process is handed
// through the environment at startup.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
)

// Decrypt recovers the hex-encoded plaintext private key from
// encryptedHex, an AES-256-GCM ciphertext produced with key, following
// the nonce-prefixed-ciphertext convention: the first 12 bytes of the
// decoded blob are the GCM nonce.
func Decrypt(key []byte, encryptedHex string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("secrets: building cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("secrets: building gcm: %w", err)
	}

	data, err := hex.DecodeString(encryptedHex)
	if err != nil {
		return "", fmt.Errorf("secrets: decoding ciphertext: %w", err)
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("secrets: ciphertext shorter than nonce size")
	}

	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("secrets: decrypting: %w", err)
	}
	return string(plaintext), nil
}
