package callback

import (
	"net/url"
	"strings"
)

// Marker query key set by the backend after a server-mediated Google
// exchange. Its presence means a cookie session should already exist.
const serverAuthMarker = "google_auth"

// Tokens is a provider token pair lifted from the URL fragment.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Valid reports whether both halves of the pair are present.
func (t Tokens) Valid() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

// ProviderError is an error the identity provider reported via the fragment.
type ProviderError struct {
	Code        string
	Description string
}

// Message returns the user-facing text for the error, preferring the
// provider's own description.
func (e ProviderError) Message() string {
	if e.Description != "" {
		return e.Description
	}
	if e.Code != "" {
		return e.Code
	}
	return "Authentication failed"
}

// Payload is the parsed callback URL. It is derived exactly once per
// reconciliation and never mutated afterwards.
type Payload struct {
	FragmentTokens    Tokens
	FragmentError     *ProviderError
	ServerAuthSuccess bool
	FlowType          string // e.g. "recovery" on password-reset returns
}

// Parse extracts tokens, provider errors, and flow markers from a callback
// URL. The fragment is parsed as a query string, which is how the provider
// encodes it. Parsing is pure: it must happen before any identity-provider
// client call, since the client may consume the fragment as a side effect.
func Parse(rawURL string) Payload {
	var p Payload

	u, err := url.Parse(rawURL)
	if err != nil {
		return p
	}

	if q := u.Query(); q.Get(serverAuthMarker) == "success" {
		p.ServerAuthSuccess = true
	}

	frag, err := url.ParseQuery(strings.TrimPrefix(u.Fragment, "#"))
	if err != nil {
		return p
	}

	p.FlowType = frag.Get("type")

	if code := frag.Get("error"); code != "" {
		p.FragmentError = &ProviderError{
			Code:        code,
			Description: frag.Get("error_description"),
		}
		return p
	}

	p.FragmentTokens = Tokens{
		AccessToken:  frag.Get("access_token"),
		RefreshToken: frag.Get("refresh_token"),
	}
	return p
}
