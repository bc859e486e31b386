package db

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// encryptedPrefix marks values sealed by GCMEncryptor. Values without it were written
// before encryption was enabled on the store and are read back as they are.
const encryptedPrefix string = "gcm:"

var sealedEncoding = base64.RawStdEncoding

// GCMEncryptor seals token values with AES-GCM, the nonce is stored in front of the ciphertext.
type GCMEncryptor struct {
	aead cipher.AEAD
}

func (g GCMEncryptor) Encrypt(value string) (string, error) {
	nonce := make([]byte, g.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("cannot generate a nonce: %w", err)
	}
	sealed := g.aead.Seal(nonce, nonce, []byte(value), nil)
	return encryptedPrefix + sealedEncoding.EncodeToString(sealed), nil
}

func (g GCMEncryptor) Decrypt(value string) (string, error) {
	encoded, sealed := strings.CutPrefix(value, encryptedPrefix)
	if !sealed {
		return value, nil
	}
	raw, err := sealedEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("the encrypted value is not valid base64: %w", err)
	}
	if len(raw) < g.aead.NonceSize() {
		return "", fmt.Errorf("the encrypted value is too short")
	}
	nonce, ciphertext := raw[:g.aead.NonceSize()], raw[g.aead.NonceSize():]
	plain, err := g.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("cannot decrypt the stored token: %w", err)
	}
	return string(plain), nil
}

// NewGCMEncryptor accepts 16, 24 or 32 byte secrets.
func NewGCMEncryptor(secret string) (GCMEncryptor, error) {
	block, err := aes.NewCipher([]byte(secret))
	if err != nil {
		return GCMEncryptor{}, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return GCMEncryptor{}, err
	}
	return GCMEncryptor{aead: aead}, nil
}
