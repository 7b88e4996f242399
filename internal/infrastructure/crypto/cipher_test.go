package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *FieldCipher {
	t.Helper()
	c, err := NewFieldCipher("test-master-key-with-enough-length", "test-salt")
	require.NoError(t, err)
	return c
}

func TestFieldCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	ct, err := c.Encrypt("ftp-password-123")
	require.NoError(t, err)
	assert.Contains(t, ct, "v1:")
	assert.NotContains(t, ct, "ftp-password-123")

	pt, err := c.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "ftp-password-123", pt)
}

func TestFieldCipher_NonceUniqueness(t *testing.T) {
	c := newTestCipher(t)

	a, err := c.Encrypt("same-value")
	require.NoError(t, err)
	b, err := c.Encrypt("same-value")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "same plaintext must not produce the same ciphertext")
}

func TestFieldCipher_EmptyValue(t *testing.T) {
	c := newTestCipher(t)

	ct, err := c.Encrypt("")
	require.NoError(t, err)

	pt, err := c.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "", pt)
}

func TestFieldCipher_WrongKey(t *testing.T) {
	c := newTestCipher(t)
	other, err := NewFieldCipher("a-completely-different-master-key!", "test-salt")
	require.NoError(t, err)

	ct, err := c.Encrypt("secret")
	require.NoError(t, err)

	_, err = other.Decrypt(ct)
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestFieldCipher_MalformedCiphertext(t *testing.T) {
	c := newTestCipher(t)

	cases := []struct {
		name  string
		input string
	}{
		{"no prefix", "bm90LXJlYWw="},
		{"bad base64", "v1:not-base64!!!"},
		{"too short", "v1:YWJj"},
		{"empty", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Decrypt(tc.input)
			assert.ErrorIs(t, err, ErrCiphertextFormat)
		})
	}
}

func TestNewFieldCipher_Validation(t *testing.T) {
	_, err := NewFieldCipher("", "salt")
	assert.Error(t, err)

	_, err = NewFieldCipher("key", "")
	assert.Error(t, err)
}
