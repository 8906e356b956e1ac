package idp

import (
	"time"
)

// Tokens is a raw provider token pair.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Session is an identity-provider session. At most one Session is
// authoritative per reconciliation; whichever component produced it hands
// it to the controller by value.
type Session struct {
	SubjectID string         `json:"subject_id"`
	Email     string         `json:"email"`
	Provider  string         `json:"provider"` // e.g. "email", "google"
	CreatedAt time.Time      `json:"created_at"`
	RawClaims map[string]any `json:"raw_claims,omitempty"`
	Tokens    Tokens         `json:"tokens"`
}

// Claim returns a top-level raw claim as a string, or "" when absent.
func (s *Session) Claim(key string) string {
	if s.RawClaims == nil {
		return ""
	}
	v, ok := s.RawClaims[key].(string)
	if !ok {
		return ""
	}
	return v
}

// MetadataClaim returns a string value from a nested claims map such as
// user_metadata or app_metadata.
func (s *Session) MetadataClaim(section, key string) string {
	if s.RawClaims == nil {
		return ""
	}
	m, ok := s.RawClaims[section].(map[string]any)
	if !ok {
		return ""
	}
	v, ok := m[key].(string)
	if !ok {
		return ""
	}
	return v
}
