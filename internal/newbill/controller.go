// Package newbill drives the new bill form: proof admission and upload,
// field capture, and submission to the bill store.
package newbill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/route"
	"github.com/zombor/billed/internal/session"
	"github.com/zombor/billed/internal/store"
)

// ErrClosed is returned by operations on a torn down controller
var ErrClosed = errors.New("form controller is closed")

// ErrSubmitting is returned when a submit is already in flight
var ErrSubmitting = errors.New("bill is already being submitted")

// State is the externally visible state of the form
type State string

const (
	StateEditing       State = "editing"
	StateFileUploading State = "file_uploading"
	StateSubmitting    State = "submitting"
	StateNavigated     State = "navigated"
)

// FileResult describes the outcome of a file change
type FileResult struct {
	// Rejected is set when the file failed admission and was cleared
	Rejected bool
	FileName string
	FileURL  string
}

// Controller owns one in-progress bill draft
type Controller struct {
	store     store.Bills
	identity  session.Identity
	navigator route.Navigator
	logger    *slog.Logger

	mu         sync.Mutex
	state      State
	fields     Fields
	file       *store.FileRef
	rejected   bool
	uploads    int
	generation int
	closed     bool
}

// NewController creates a Controller with an empty draft
func NewController(bills store.Bills, identity session.Identity, navigator route.Navigator, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:     bills,
		identity:  identity,
		navigator: navigator,
		logger:    logger,
		state:     StateEditing,
		fields:    Fields{Type: bill.DefaultType},
	}
}

// State returns the current form state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Fields returns the captured field values
func (c *Controller) Fields() Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields
}

// File returns the current proof state: the resolved reference, if any, and
// whether the last selection was rejected
func (c *Controller) File() (*store.FileRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil, c.rejected
	}
	ref := *c.file
	return &ref, c.rejected
}

// SetFields captures the form fields. It does not affect a proof upload.
func (c *Controller) SetFields(f Fields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.fields = f
}

// ChangeFile admits and uploads a newly selected proof. A rejected file is
// cleared without contacting the store and bill.ErrFileNotAdmitted is
// returned. A failed upload is logged, the selection dropped and reported
// as rejected.
func (c *Controller) ChangeFile(ctx context.Context, f bill.File) (FileResult, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return FileResult{}, ErrClosed
	}
	c.generation++
	gen := c.generation
	c.file = nil

	if err := bill.Admit(f); err != nil {
		c.rejected = true
		c.mu.Unlock()
		return FileResult{Rejected: true}, err
	}

	c.rejected = false
	c.uploads++
	if c.state == StateEditing {
		c.state = StateFileUploading
	}
	c.mu.Unlock()

	ref, err := c.store.Create(ctx, c.identity.Email, f)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return FileResult{}, ErrClosed
	}
	c.uploads--
	if c.uploads == 0 && c.state == StateFileUploading {
		c.state = StateEditing
	}
	if gen != c.generation {
		// A newer selection replaced this one
		return FileResult{}, nil
	}
	if err != nil {
		c.rejected = true
		c.logger.Error("Failed to upload bill proof", "filename", f.Name, "error", err)
		return FileResult{Rejected: true}, fmt.Errorf("uploading proof: %w", err)
	}

	c.file = ref
	return FileResult{FileName: ref.FileName, FileURL: ref.FileURL}, nil
}

// draft assembles the bill to submit from the captured state
func (c *Controller) draft() (*bill.Bill, error) {
	f := c.fields
	b := &bill.Bill{
		Email:      c.identity.Email,
		Type:       f.Type,
		Name:       f.Name,
		Date:       f.Date,
		VAT:        f.VAT,
		Pct:        f.Pct,
		Commentary: f.Commentary,
		Status:     bill.StatusPending,
	}
	if c.file != nil {
		b.ID = c.file.BillID
		b.FileURL = c.file.FileURL
		b.FileName = c.file.FileName
	}
	if f.Amount.Valid {
		b.Amount = f.Amount.Decimal
	}

	err := bill.Validate(b)
	var ve *bill.ValidationError
	if err != nil && !errors.As(err, &ve) {
		return nil, err
	}
	if !f.Amount.Valid {
		if ve == nil {
			ve = &bill.ValidationError{Fields: map[string]string{}}
		}
		ve.Fields["amount"] = "is required"
	}
	if ve != nil {
		return nil, ve
	}
	return b, nil
}

// Submit sends the draft to the store. On success the user is taken to the
// bill list. A store failure is logged once and the form stays editable;
// it is returned so the caller can redisplay the form. A draft that does
// not validate returns a *bill.ValidationError without contacting the store.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateSubmitting || c.state == StateNavigated {
		c.mu.Unlock()
		return ErrSubmitting
	}
	draft, err := c.draft()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = StateSubmitting
	c.mu.Unlock()

	_, err = c.store.Update(ctx, draft)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		c.state = StateEditing
		if c.uploads > 0 {
			c.state = StateFileUploading
		}
		c.mu.Unlock()
		c.logger.Error("Failed to submit bill", "error", err)
		return err
	}
	c.state = StateNavigated
	c.mu.Unlock()

	c.navigator.Navigate(route.Bills)
	return nil
}

// Close tears the controller down. Results of operations still in flight
// are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
