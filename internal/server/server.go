package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/givebridge/authfront/internal/crypto"
	jsonwriter "github.com/givebridge/authfront/internal/json"
	"github.com/givebridge/authfront/internal/reconcile"
)

// Server exposes the auth front over HTTP: the callback bootstrap page,
// the completion endpoint, and a health check.
type Server struct {
	controller *reconcile.Controller
	csrf       crypto.CSRFProtection
	signer     crypto.TokenSigner
	encryptor  crypto.Encryptor
	sessionTTL time.Duration
	loginPath  string
	router     chi.Router
}

// Options carries the server's cookie protection setup. Encryptor is
// optional; without it the session cookie is not issued.
type Options struct {
	CSRF       crypto.CSRFProtection
	Signer     crypto.TokenSigner
	Encryptor  crypto.Encryptor
	SessionTTL time.Duration
	LoginPath  string
}

// New builds the HTTP surface around a reconciliation controller
func New(controller *reconcile.Controller, opts Options) *Server {
	s := &Server{
		controller: controller,
		csrf:       opts.CSRF,
		signer:     opts.Signer,
		encryptor:  opts.Encryptor,
		sessionTTL: opts.SessionTTL,
		loginPath:  opts.LoginPath,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/auth/callback", s.handleCallbackPage)
	r.Post(completePath, s.handleComplete)
	r.Get("/healthz", s.handleHealth)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonwriter.WriteNotFound(w, "Not found")
	})

	s.router = r
	return s
}

// Handler returns the root http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}
