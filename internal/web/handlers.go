package web

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/billlist"
	"github.com/zombor/billed/internal/newbill"
	"github.com/zombor/billed/internal/route"
)

// maxUploadSize bounds the new bill form, proof included
const maxUploadSize = int64(20 << 20)

// writeHTML renders into a buffer first so a template failure does not
// leave a half written page
func (s *Server) writeHTML(w http.ResponseWriter, code int, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.logger.Error("Error rendering page", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}

// handleRoot sends the employee to their bills
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, string(route.Bills), http.StatusFound)
}

// handleBills renders the bill list
func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	c := billlist.NewController(s.bills, identityFrom(r), &redirectNavigator{}, s.logger)
	defer c.Close()

	state := c.Load(r.Context())
	s.writeHTML(w, http.StatusOK, func(w io.Writer) error {
		return RenderBills(w, state)
	})
}

// handlePreview renders the attachment modal for a proof url
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	c := billlist.NewController(s.bills, identityFrom(r), &redirectNavigator{}, s.logger)
	defer c.Close()

	modal := c.PreviewAttachment(r.URL.Query().Get("url"))
	s.writeHTML(w, http.StatusOK, func(w io.Writer) error {
		return RenderPreview(w, modal)
	})
}

// handleNewBill starts a fresh draft and moves to the form
func (s *Server) handleNewBill(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	nav := &redirectNavigator{}
	c := billlist.NewController(s.bills, id, nav, s.logger)
	defer c.Close()

	s.drafts.Discard(id.Email)
	c.NewBill()
	if !nav.redirect(w, r) {
		http.Redirect(w, r, string(route.Bills), http.StatusSeeOther)
	}
}

// handleNewBillForm renders the employee's open draft
func (s *Server) handleNewBillForm(w http.ResponseWriter, r *http.Request) {
	dr := s.drafts.Open(w, r, identityFrom(r))
	form := newBillForm(dr.controller, nil)
	s.writeHTML(w, http.StatusOK, func(w io.Writer) error {
		return RenderNewBill(w, form)
	})
}

// parseForm reads a new bill form post, multipart or not. It returns the
// attached proof, if one was selected.
func parseForm(w http.ResponseWriter, r *http.Request) (*bill.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	err := r.ParseMultipartForm(maxUploadSize)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, r.ParseForm()
	}
	if err != nil {
		return nil, err
	}

	f, header, err := r.FormFile(newbill.FieldFile)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if header.Filename == "" {
		return nil, nil
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &bill.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// capture parses the posted form into the draft. Field problems are
// returned for display.
func (s *Server) capture(w http.ResponseWriter, r *http.Request, dr *draft) (map[string]string, bool) {
	file, err := parseForm(w, r)
	if err != nil {
		s.logger.Warn("Error parsing new bill form", "error", err)
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return nil, false
	}

	fields, problems := newbill.ParseForm(r.PostForm)
	dr.controller.SetFields(fields)

	if file != nil {
		// A rejected or failed proof is dropped from the draft and shown as such
		if _, err := dr.controller.ChangeFile(r.Context(), *file); err != nil {
			s.logger.Debug("Proof not attached", "filename", file.Name, "reason", err.Error())
		}
	}
	return problems, true
}

// handleChangeFile uploads a newly selected proof and redisplays the form
func (s *Server) handleChangeFile(w http.ResponseWriter, r *http.Request) {
	dr := s.drafts.Open(w, r, identityFrom(r))
	if _, ok := s.capture(w, r, dr); !ok {
		return
	}
	http.Redirect(w, r, string(route.NewBill), http.StatusSeeOther)
}

// handleSubmit sends the draft to the store
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	dr := s.drafts.Open(w, r, id)
	problems, ok := s.capture(w, r, dr)
	if !ok {
		return
	}
	if len(problems) > 0 {
		s.renderDraft(w, dr, http.StatusUnprocessableEntity, problems)
		return
	}

	err := dr.controller.Submit(r.Context())
	var ve *bill.ValidationError
	switch {
	case err == nil:
		s.drafts.Discard(id.Email)
		if !dr.navigator.redirect(w, r) {
			http.Redirect(w, r, string(route.Bills), http.StatusSeeOther)
		}
	case errors.As(err, &ve):
		s.renderDraft(w, dr, http.StatusUnprocessableEntity, ve.Fields)
	case errors.Is(err, newbill.ErrSubmitting):
		http.Error(w, "Bill is already being submitted", http.StatusConflict)
	default:
		// The failure is logged by the controller; the form stays as it was
		s.renderDraft(w, dr, http.StatusOK, nil)
	}
}

func (s *Server) renderDraft(w http.ResponseWriter, dr *draft, code int, problems map[string]string) {
	form := newBillForm(dr.controller, problems)
	s.writeHTML(w, code, func(w io.Writer) error {
		return RenderNewBill(w, form)
	})
}
