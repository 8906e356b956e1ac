package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TokenSigner produces HMAC-signed JSON tokens with optional expiry.
// Used for values the browser holds but must not forge, such as the
// session origin marker cookie.
type TokenSigner struct {
	signingKey []byte
	ttl        time.Duration
}

// NewTokenSigner creates a new token signer. A zero ttl disables expiry.
func NewTokenSigner(signingKey []byte, ttl time.Duration) TokenSigner {
	return TokenSigner{
		signingKey: signingKey,
		ttl:        ttl,
	}
}

type tokenEnvelope struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt time.Time       `json:"expires_at,omitempty"`
}

// Sign marshals v to JSON, wraps it with expiry metadata, and returns
// base64(payload).signature
func (ts *TokenSigner) Sign(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal data: %w", err)
	}

	envelope := tokenEnvelope{Data: payload}
	if ts.ttl > 0 {
		envelope.ExpiresAt = time.Now().Add(ts.ttl)
	}

	jsonData, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token envelope: %w", err)
	}

	signature := SignData(string(jsonData), ts.signingKey)
	return fmt.Sprintf("%s.%s", base64.URLEncoding.EncodeToString(jsonData), signature), nil
}

// Verify validates the signature, checks expiry, and unmarshals into v
func (ts *TokenSigner) Verify(token string, v any) error {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return fmt.Errorf("invalid token format")
	}

	jsonData, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return fmt.Errorf("failed to decode token data: %w", err)
	}

	if !ValidateSignedData(string(jsonData), parts[1], ts.signingKey) {
		return fmt.Errorf("invalid signature")
	}

	var envelope tokenEnvelope
	if err := json.Unmarshal(jsonData, &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal token envelope: %w", err)
	}

	if !envelope.ExpiresAt.IsZero() && time.Now().After(envelope.ExpiresAt) {
		return fmt.Errorf("token expired")
	}

	if err := json.Unmarshal(envelope.Data, v); err != nil {
		return fmt.Errorf("failed to unmarshal token data: %w", err)
	}

	return nil
}
