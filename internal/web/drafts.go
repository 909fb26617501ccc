package web

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/zombor/billed/internal/newbill"
	"github.com/zombor/billed/internal/route"
	"github.com/zombor/billed/internal/session"
	"github.com/zombor/billed/internal/store"
)

// draftCookie carries the id of the browser's open draft
const draftCookie = "billed_draft"

// redirectNavigator remembers where a controller asked to go, so the
// handler can answer with a redirect
type redirectNavigator struct {
	mu sync.Mutex
	to route.Route
}

func (n *redirectNavigator) Navigate(to route.Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.to = to
}

// take returns and clears the pending navigation
func (n *redirectNavigator) take() (route.Route, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	to := n.to
	n.to = ""
	return to, to != ""
}

// redirect answers with the pending navigation, if any
func (n *redirectNavigator) redirect(w http.ResponseWriter, r *http.Request) bool {
	to, ok := n.take()
	if !ok {
		return false
	}
	http.Redirect(w, r, string(to), http.StatusSeeOther)
	return true
}

// draft is one open new bill form
type draft struct {
	id         string
	owner      string
	controller *newbill.Controller
	navigator  *redirectNavigator
}

// Drafts keeps the open new bill forms. Each employee has at most one; opening
// another closes the previous.
type Drafts struct {
	bills  store.Bills
	logger *slog.Logger

	mu      sync.Mutex
	byID    map[string]*draft
	byOwner map[string]*draft
}

// NewDrafts creates an empty registry whose controllers talk to bills
func NewDrafts(bills store.Bills, logger *slog.Logger) *Drafts {
	return &Drafts{
		bills:   bills,
		logger:  logger,
		byID:    make(map[string]*draft),
		byOwner: make(map[string]*draft),
	}
}

// Open returns the draft named by the request cookie, starting a new one
// when there is none for this employee
func (d *Drafts) Open(w http.ResponseWriter, r *http.Request, id session.Identity) *draft {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, err := r.Cookie(draftCookie); err == nil {
		if dr, ok := d.byID[c.Value]; ok && dr.owner == id.Email {
			return dr
		}
	}

	d.evictLocked(id.Email)
	nav := &redirectNavigator{}
	dr := &draft{
		id:         uuid.NewString(),
		owner:      id.Email,
		controller: newbill.NewController(d.bills, id, nav, d.logger.With("draft_owner", id.Email)),
		navigator:  nav,
	}
	d.byID[dr.id] = dr
	d.byOwner[dr.owner] = dr

	http.SetCookie(w, &http.Cookie{
		Name:     draftCookie,
		Value:    dr.id,
		Path:     string(route.NewBill),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return dr
}

// Discard closes the employee's open draft, if any
func (d *Drafts) Discard(owner string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evictLocked(owner)
}

// Len returns the number of open drafts
func (d *Drafts) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byID)
}

// Close closes every open draft
func (d *Drafts) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for owner := range d.byOwner {
		d.evictLocked(owner)
	}
}

func (d *Drafts) evictLocked(owner string) {
	dr, ok := d.byOwner[owner]
	if !ok {
		return
	}
	dr.controller.Close()
	delete(d.byOwner, owner)
	delete(d.byID, dr.id)
}
