package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/givebridge/authfront/internal/cookie"
	jsonwriter "github.com/givebridge/authfront/internal/json"
	"github.com/givebridge/authfront/internal/log"
	"github.com/givebridge/authfront/internal/reconcile"
	"github.com/givebridge/authfront/internal/user"
)

const completePath = "/auth/callback/complete"

// CompleteRequest is the body the bootstrap page posts: the full browser
// URL including the fragment, which never reaches the server on the
// initial GET.
type CompleteRequest struct {
	URL string `json:"url"`
}

// CompleteResponse tells the page what to do next. DelayMS is how long a
// failure message stays visible before the page performs the redirect.
type CompleteResponse struct {
	Status   string       `json:"status"`
	Redirect string       `json:"redirect,omitempty"`
	Replace  bool         `json:"replace"`
	DelayMS  int64        `json:"delay_ms,omitempty"`
	Message  string       `json:"message,omitempty"`
	Origin   string       `json:"origin,omitempty"`
	User     *user.Record `json:"user,omitempty"`
}

// handleCallbackPage serves the bootstrap page. It pins a tab identifier
// cookie if the browser does not carry one yet and issues a CSRF token
// for the completion POST.
func (s *Server) handleCallbackPage(w http.ResponseWriter, r *http.Request) {
	if _, err := cookie.GetTab(r); err != nil {
		cookie.SetTab(w, uuid.NewString())
	}

	token, err := s.csrf.Generate()
	if err != nil {
		log.LogErrorWithFields("server", "Failed to generate CSRF token", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "Internal server error")
		return
	}
	cookie.SetCSRF(w, token)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	err = callbackPageTemplate.Execute(w, CallbackPageData{
		CompleteURL: completePath,
		CSRFToken:   token,
		LoginPath:   s.loginPath,
	})
	if err != nil {
		log.LogErrorWithFields("server", "Failed to render callback page", map[string]any{
			"error": err.Error(),
		})
	}
}

// handleComplete runs the reconciliation for the URL the page forwarded
// and answers with the terminal outcome. The page owns the actual
// navigation; the response only carries the decision.
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	if !s.csrf.Validate(r.Header.Get("X-CSRF-Token")) {
		jsonwriter.WriteForbidden(w, "Invalid CSRF token")
		return
	}

	tabID, err := cookie.GetTab(r)
	if err != nil || tabID == "" {
		jsonwriter.WriteBadRequest(w, "Missing tab cookie")
		return
	}

	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		jsonwriter.WriteBadRequest(w, "Invalid request body")
		return
	}

	outcome := s.controller.Run(r.Context(), reconcile.Request{
		TabID:   tabID,
		URL:     req.URL,
		Cookies: r.Cookies(),
		Nav:     pageNavigator{},
	})

	if outcome.Status == reconcile.StatusResolved {
		s.setResolvedCookies(w, outcome)
	}

	if err := jsonwriter.Write(w, completeResponse(outcome)); err != nil {
		log.LogErrorWithFields("server", "Failed to write outcome", map[string]any{
			"error": err.Error(),
		})
	}
}

// setResolvedCookies issues the signed origin cookie and, when an
// encryptor is configured and a provider session exists, the encrypted
// session cookie
func (s *Server) setResolvedCookies(w http.ResponseWriter, outcome reconcile.Outcome) {
	signed, err := s.signer.Sign(string(outcome.Origin))
	if err != nil {
		log.LogErrorWithFields("server", "Failed to sign origin marker", map[string]any{
			"error": err.Error(),
		})
	} else {
		cookie.SetOrigin(w, signed, s.sessionTTL)
	}

	if s.encryptor == nil || outcome.Session == nil {
		return
	}

	raw, err := json.Marshal(outcome.Session)
	if err != nil {
		log.LogErrorWithFields("server", "Failed to marshal session", map[string]any{
			"error": err.Error(),
		})
		return
	}
	sealed, err := s.encryptor.Encrypt(string(raw))
	if err != nil {
		log.LogErrorWithFields("server", "Failed to encrypt session", map[string]any{
			"error": err.Error(),
		})
		return
	}
	cookie.SetSession(w, sealed, s.sessionTTL)
}

func completeResponse(outcome reconcile.Outcome) CompleteResponse {
	return CompleteResponse{
		Status:   string(outcome.Status),
		Redirect: outcome.RedirectPath,
		Replace:  true,
		DelayMS:  outcome.Delay.Milliseconds(),
		Message:  outcome.Message,
		Origin:   string(outcome.Origin),
		User:     outcome.User,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// pageNavigator satisfies the controller's navigation hook. Over HTTP
// the redirect travels back in the JSON outcome and the page performs
// it, so there is nothing to do server-side.
type pageNavigator struct{}

func (pageNavigator) Go(path string, replace bool) {}
