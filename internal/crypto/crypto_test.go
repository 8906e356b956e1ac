package crypto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken()
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	// Each call generates a unique token
	token2, err := GenerateSecureToken()
	assert.NoError(t, err)
	assert.NotEqual(t, token, token2)

	// base64 encoding of 32 bytes should be at least 40 chars
	assert.GreaterOrEqual(t, len(token), 40)
}

func TestSignData(t *testing.T) {
	key := []byte("test-signing-key")

	sig := SignData("hello", key)
	assert.True(t, ValidateSignedData("hello", sig, key))
	assert.False(t, ValidateSignedData("tampered", sig, key))
	assert.False(t, ValidateSignedData("hello", sig, []byte("other-key")))
	assert.False(t, ValidateSignedData("hello", "not-a-signature", key))
}

func TestTokenSigner_RoundTrip(t *testing.T) {
	signer := NewTokenSigner([]byte("test-signing-key"), time.Minute)

	type payload struct {
		Origin string `json:"origin"`
		TabID  string `json:"tab_id"`
	}

	token, err := signer.Sign(payload{Origin: "oauth", TabID: "tab-1"})
	require.NoError(t, err)

	var out payload
	err = signer.Verify(token, &out)
	require.NoError(t, err)
	assert.Equal(t, "oauth", out.Origin)
	assert.Equal(t, "tab-1", out.TabID)
}

func TestTokenSigner_RejectsTampering(t *testing.T) {
	signer := NewTokenSigner([]byte("test-signing-key"), time.Minute)

	token, err := signer.Sign(map[string]string{"origin": "oauth"})
	require.NoError(t, err)

	var out map[string]string
	assert.Error(t, signer.Verify(token+"x", &out))
	assert.Error(t, signer.Verify("garbage", &out))

	other := NewTokenSigner([]byte("different-key"), time.Minute)
	assert.Error(t, other.Verify(token, &out))
}

func TestTokenSigner_Expiry(t *testing.T) {
	signer := NewTokenSigner([]byte("test-signing-key"), -time.Second)

	token, err := signer.Sign(map[string]string{"origin": "oauth"})
	require.NoError(t, err)

	var out map[string]string
	err = signer.Verify(token, &out)
	assert.ErrorContains(t, err, "expired")
}

func TestCSRFProtection(t *testing.T) {
	csrf := NewCSRFProtection([]byte("test-signing-key"), time.Minute)

	token, err := csrf.Generate()
	require.NoError(t, err)
	assert.True(t, csrf.Validate(token))

	t.Run("rejects malformed token", func(t *testing.T) {
		assert.False(t, csrf.Validate("nonsense"))
		assert.False(t, csrf.Validate(""))
	})

	t.Run("rejects wrong key", func(t *testing.T) {
		other := NewCSRFProtection([]byte("different-key"), time.Minute)
		assert.False(t, other.Validate(token))
	})

	t.Run("rejects expired token", func(t *testing.T) {
		expired := NewCSRFProtection([]byte("test-signing-key"), -time.Second)
		tok, err := expired.Generate()
		require.NoError(t, err)
		assert.False(t, expired.Validate(tok))
	})
}

func TestEncryptor_RoundTrip(t *testing.T) {
	key := make([]byte, 32)
	copy(key, "0123456789abcdef0123456789abcdef")

	enc, err := NewEncryptor(key)
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt(`{"email":"donor@example.com"}`)
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "donor@example.com")

	plaintext, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, `{"email":"donor@example.com"}`, plaintext)

	// Nonce makes every encryption unique
	ciphertext2, err := enc.Encrypt(`{"email":"donor@example.com"}`)
	require.NoError(t, err)
	assert.NotEqual(t, ciphertext, ciphertext2)
}

func TestEncryptor_Errors(t *testing.T) {
	_, err := NewEncryptor([]byte("short"))
	assert.Error(t, err)

	key := make([]byte, 32)
	enc, err := NewEncryptor(key)
	require.NoError(t, err)

	_, err = enc.Decrypt("not-base64!!")
	assert.Error(t, err)

	_, err = enc.Decrypt("c2hvcnQ=")
	assert.Error(t, err)

	other := make([]byte, 32)
	other[0] = 1
	enc2, err := NewEncryptor(other)
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("secret")
	require.NoError(t, err)
	_, err = enc2.Decrypt(ciphertext)
	assert.Error(t, err)
}
