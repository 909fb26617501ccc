// Package web serves the employee pages: the bill list and the new bill
// form, each driven by its controller.
package web

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zombor/billed/internal/session"
	"github.com/zombor/billed/internal/store"
)

// Server handles HTTP requests for the employee pages
type Server struct {
	bills     store.Bills
	drafts    *Drafts
	basicAuth BasicAuth
	logger    *slog.Logger
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials. When Username is empty
// any username is accepted and taken as the employee email.
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(bills store.Bills, basicAuth BasicAuth, logger *slog.Logger) *Server {
	return NewServerWithMux(bills, basicAuth, logger, http.NewServeMux())
}

// NewServerWithMux creates a new Server on an existing mux, so the store API
// can share it
func NewServerWithMux(bills store.Bills, basicAuth BasicAuth, logger *slog.Logger, mux *http.ServeMux) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		bills:     bills,
		drafts:    NewDrafts(bills, logger),
		basicAuth: basicAuth,
		logger:    logger,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// Authenticate checks basic auth credentials and resolves the employee
func (s *Server) Authenticate(r *http.Request) (session.Identity, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return session.Identity{}, false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return session.Identity{}, false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 || credentials[0] == "" {
		return session.Identity{}, false
	}

	if s.basicAuth.Username != "" && credentials[0] != s.basicAuth.Username {
		return session.Identity{}, false
	}
	if s.basicAuth.Password != "" && credentials[1] != s.basicAuth.Password {
		return session.Identity{}, false
	}

	return session.Employee(credentials[0]), true
}

type identityKey struct{}

func identityFrom(r *http.Request) session.Identity {
	id, _ := r.Context().Value(identityKey{}).(session.Identity)
	return id
}

// requireEmployee middleware
func (s *Server) requireEmployee(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.Authenticate(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Billed"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if err := id.RequireEmployee(); err != nil {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	}
}

// registerRoutes registers the page routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /bills/preview", s.requireEmployee(s.handlePreview))
	s.mux.HandleFunc("GET /bills/new", s.requireEmployee(s.handleNewBillForm))
	s.mux.HandleFunc("POST /bills/new/file", s.requireEmployee(s.handleChangeFile))
	s.mux.HandleFunc("POST /bills/new/submit", s.requireEmployee(s.handleSubmit))
	s.mux.HandleFunc("POST /bills/new", s.requireEmployee(s.handleNewBill))
	s.mux.HandleFunc("GET /bills", s.requireEmployee(s.handleBills))

	s.mux.HandleFunc("GET /{$}", s.handleRoot)
}

// Close tears down every open draft
func (s *Server) Close() {
	s.drafts.Close()
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
