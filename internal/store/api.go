package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/session"
)

// maxUploadSize bounds proof uploads
const maxUploadSize = int64(20 << 20)

// FileStore is a bill store that can also serve stored proof documents
type FileStore interface {
	Bills
	File(ctx context.Context, owner, key string) ([]byte, string, error)
}

// Authenticator resolves the identity behind a request
type Authenticator func(r *http.Request) (session.Identity, bool)

// API exposes a FileStore over HTTP. Callers authenticate with a bearer
// token carrying their identity.
type API struct {
	store    FileStore
	tokens   *session.Tokens
	fileAuth Authenticator
}

// NewAPI creates an API for store. Proof documents require a bearer token
// like every other route.
func NewAPI(store FileStore, tokens *session.Tokens) *API {
	a := &API{
		store:  store,
		tokens: tokens,
	}
	a.fileAuth = a.bearerIdentity
	return a
}

// NewAPIWithFileAuth creates an API whose proof documents are served to
// callers resolved by fileAuth, such as the browser session of the pages
// that link to them
func NewAPIWithFileAuth(store FileStore, tokens *session.Tokens, fileAuth Authenticator) *API {
	a := NewAPI(store, tokens)
	a.fileAuth = fileAuth
	return a
}

type identityKey struct{}

func identityFrom(ctx context.Context) session.Identity {
	id, _ := ctx.Value(identityKey{}).(session.Identity)
	return id
}

// Register adds the API routes to mux
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/bills", a.requireToken(a.handleList))
	mux.HandleFunc("POST /api/bills", a.requireToken(a.handleCreate))
	mux.HandleFunc("PUT /api/bills", a.requireToken(a.handleUpdate))
	mux.HandleFunc("PUT /api/bills/{id}", a.requireToken(a.handleUpdate))
	mux.HandleFunc("GET /files/{key}", a.requireIdentity(a.fileAuth, a.handleFile))
}

// bearerIdentity reads the identity from a bearer token
func (a *API) bearerIdentity(r *http.Request) (session.Identity, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return session.Identity{}, false
	}
	id, err := a.tokens.Parse(strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		return session.Identity{}, false
	}
	return id, true
}

// requireToken middleware
func (a *API) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return a.requireIdentity(a.bearerIdentity, next)
}

// requireIdentity middleware
func (a *API) requireIdentity(authenticate Authenticator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := authenticate(r)
		if !ok {
			writeError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if err := id.RequireEmployee(); err != nil {
			writeError(w, "Forbidden", http.StatusForbidden)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleList returns the caller's bills
func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	bills, err := a.store.List(r.Context(), identityFrom(r.Context()).Email)
	if err != nil {
		slog.Error("Error listing bills", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if bills == nil {
		bills = []*bill.Bill{}
	}
	writeJSON(w, http.StatusOK, bills)
}

// handleCreate stores an uploaded proof document
func (a *API) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file", http.StatusInternalServerError)
		return
	}

	file := bill.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	if err := bill.Admit(file); err != nil {
		writeError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}

	ref, err := a.store.Create(r.Context(), identityFrom(r.Context()).Email, file)
	if err != nil {
		slog.Error("Error creating bill", "filename", header.Filename, "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

// handleUpdate writes a full bill record
func (a *API) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var b bill.Bill
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	b.ID = r.PathValue("id")
	b.Email = identityFrom(r.Context()).Email

	if err := bill.Validate(&b); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	saved, err := a.store.Update(r.Context(), &b)
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, "Bill not found", http.StatusNotFound)
		return
	case errors.Is(err, ErrOwnerMismatch):
		writeError(w, "Forbidden", http.StatusForbidden)
		return
	case err != nil:
		slog.Error("Error updating bill", "id", b.ID, "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	code := http.StatusOK
	if b.ID == "" {
		code = http.StatusCreated
	}
	writeJSON(w, code, saved)
}

// handleFile serves a stored proof document
func (a *API) handleFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := a.store.File(r.Context(), identityFrom(r.Context()).Email, r.PathValue("key"))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Error("Error reading file", "key", r.PathValue("key"), "error", err)
		}
		writeError(w, "File not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
