package cookie

import (
	"net/http"
	"time"

	"github.com/givebridge/authfront/internal/envutil"
	"github.com/givebridge/authfront/internal/log"
)

// Cookie names used by the auth front
const (
	// TabCookie identifies the browsing context so reconciliation state
	// stays scoped to one tab's flow
	TabCookie = "af_tab"

	// SessionCookie carries the encrypted provider session
	SessionCookie = "af_session"

	// OriginCookie carries the signed session-origin marker
	OriginCookie = "af_origin"

	CSRFCookie = "csrf_token"
)

// SetTab sets the tab identifier cookie. Session-scoped so a new browser
// session starts a fresh reconciliation context.
func SetTab(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     TabCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteLaxMode,
	})
}

// SetSession sets the encrypted session cookie with appropriate security
// settings
func SetSession(w http.ResponseWriter, value string, maxAge time.Duration) {
	secure := !envutil.IsDev()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})

	log.LogTraceWithFields("cookie", "Session cookie set", map[string]any{
		"maxAge":   maxAge.String(),
		"secure":   secure,
		"sameSite": "Lax",
	})
}

// SetOrigin sets the signed session-origin cookie
func SetOrigin(w http.ResponseWriter, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     OriginCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

// SetCSRF sets a CSRF token cookie
func SetCSRF(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: false, // CSRF tokens need to be readable by JavaScript
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int((24 * time.Hour).Seconds()),
	})
}

// Clear removes a cookie by setting MaxAge to -1
func Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// ClearSession removes the session and origin cookies together
func ClearSession(w http.ResponseWriter) {
	Clear(w, SessionCookie)
	Clear(w, OriginCookie)
	log.LogTraceWithFields("cookie", "Session cookies cleared", nil)
}

// Get retrieves a cookie value from the request
func Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// GetTab retrieves the tab identifier cookie value
func GetTab(r *http.Request) (string, error) {
	return Get(r, TabCookie)
}

// GetSession retrieves the session cookie value
func GetSession(r *http.Request) (string, error) {
	return Get(r, SessionCookie)
}

// GetCSRF retrieves the CSRF cookie value
func GetCSRF(r *http.Request) (string, error) {
	return Get(r, CSRFCookie)
}
