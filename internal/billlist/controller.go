// Package billlist fetches, orders and presents an employee's bills.
package billlist

import (
	"context"
	"log/slog"
	"sync"

	"github.com/zombor/billed/internal/route"
	"github.com/zombor/billed/internal/session"
	"github.com/zombor/billed/internal/store"
)

// DefaultPreviewWidth is the width, in pixels, of a previewed attachment
const DefaultPreviewWidth = 400

// Controller drives the bill list page for one identity
type Controller struct {
	store        store.Bills
	identity     session.Identity
	navigator    route.Navigator
	logger       *slog.Logger
	previewWidth int

	mu     sync.Mutex
	state  ViewState
	closed bool
}

// NewController creates a Controller. The controller starts in the loading
// state until Load completes.
func NewController(bills store.Bills, identity session.Identity, navigator route.Navigator, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:        bills,
		identity:     identity,
		navigator:    navigator,
		logger:       logger,
		previewWidth: DefaultPreviewWidth,
		state:        Loading(),
	}
}

// Load fetches the identity's bills and returns the resulting view state. A
// fetch failure replaces any previous list with an error state; it is not
// retried.
func (c *Controller) Load(ctx context.Context) ViewState {
	c.mu.Lock()
	if c.closed {
		state := c.state
		c.mu.Unlock()
		return state
	}
	c.state = Loading()
	c.mu.Unlock()

	bills, err := c.store.List(ctx, c.identity.Email)

	var next ViewState
	if err != nil {
		next = Failed(err)
	} else {
		next = Present(SortByDateDesc(bills), c.logger)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return next
	}
	c.state = next
	return next
}

// State returns the current view state
func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PreviewAttachment returns the revealed preview modal for a bill's proof.
// An empty URL yields an open modal with nothing in it.
func (c *Controller) PreviewAttachment(fileURL string) Modal {
	return Modal{
		Open:    true,
		FileURL: fileURL,
		Width:   c.previewWidth,
	}
}

// NewBill navigates to the new bill form
func (c *Controller) NewBill() {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.navigator.Navigate(route.NewBill)
}

// Close tears the controller down. Results of a Load still in flight are
// not applied.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
