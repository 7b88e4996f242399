package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	// versionPrefix tags ciphertexts so the scheme can rotate later
	versionPrefix = "v1:"

	keyLen = 32
)

var (
	ErrCiphertextFormat = errors.New("crypto: malformed ciphertext")
	ErrDecryptFailed    = errors.New("crypto: decryption failed")
)

// FieldCipher encrypts and decrypts individual credential field values.
// Each value gets its own random nonce; ciphertexts are self-contained
// strings safe to store in a text column.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher derives an AES-256 key from the master secret via scrypt
// and returns a cipher for field-level encryption. The salt must stay
// stable across restarts or existing ciphertexts become unreadable.
func NewFieldCipher(masterKey, salt string) (*FieldCipher, error) {
	if masterKey == "" {
		return nil, errors.New("crypto: empty master key")
	}
	if salt == "" {
		return nil, errors.New("crypto: empty KDF salt")
	}

	key, err := scrypt.Key([]byte(masterKey), []byte(salt), 1<<15, 8, 1, keyLen)
	if err != nil {
		return nil, fmt.Errorf("crypto: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}

	return &FieldCipher{aead: aead}, nil
}

// Encrypt seals a plaintext field value into "v1:" + base64(nonce|ciphertext)
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypto: nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return versionPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt. A wrong key, a corrupted
// value or a truncated payload all surface as ErrDecryptFailed.
func (c *FieldCipher) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, versionPrefix) {
		return "", ErrCiphertextFormat
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, versionPrefix))
	if err != nil {
		return "", ErrCiphertextFormat
	}
	if len(raw) < c.aead.NonceSize() {
		return "", ErrCiphertextFormat
	}

	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}
