package billlist

import (
	"log/slog"

	"github.com/zombor/billed/internal/bill"
)

// Kind is one of the four states the list page can be rendered in
type Kind string

const (
	KindLoading Kind = "loading"
	KindError   Kind = "error"
	KindEmpty   Kind = "empty"
	KindList    Kind = "list"
)

// ViewState is everything the view layer needs to render the list page
type ViewState struct {
	Kind    Kind
	Message string
	Rows    []Row
}

// Row is one bill, ready to be templated
type Row struct {
	ID          string
	Type        string
	Name        string
	Date        *string
	DisplayDate string
	Amount      string
	Status      string
	FileURL     string
}

// Modal is the attachment preview surface
type Modal struct {
	Open    bool
	FileURL string
	Width   int
}

// Loading returns the loading state
func Loading() ViewState {
	return ViewState{Kind: KindLoading}
}

// Failed returns the error state for a fetch failure
func Failed(err error) ViewState {
	return ViewState{Kind: KindError, Message: err.Error()}
}

// Present turns bills, already in display order, into a view state. A date
// that cannot be formatted is shown as stored.
func Present(bills []*bill.Bill, logger *slog.Logger) ViewState {
	if len(bills) == 0 {
		return ViewState{Kind: KindEmpty}
	}
	if logger == nil {
		logger = slog.Default()
	}

	rows := make([]Row, 0, len(bills))
	for _, b := range bills {
		display, err := bill.DisplayDate(b.Date)
		if err != nil {
			logger.Warn("Failed to format bill date", "id", b.ID, "error", err)
		}
		rows = append(rows, Row{
			ID:          b.ID,
			Type:        b.Type,
			Name:        b.Name,
			Date:        b.Date,
			DisplayDate: display,
			Amount:      b.Amount.String(),
			Status:      bill.FormatStatus(b.Status),
			FileURL:     b.FileURL,
		})
	}
	return ViewState{Kind: KindList, Rows: rows}
}
