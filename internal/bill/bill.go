package bill

import (
	"github.com/shopspring/decimal"
)

// Status is the review state of a bill
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

// Types lists the expense categories a bill may be filed under
var Types = []string{
	"Transports",
	"Restaurants et bars",
	"Hôtel et logement",
	"Services en ligne",
	"IT et électronique",
	"Equipement et matériel",
	"Fournitures de bureau",
}

// DefaultType is preselected on the new bill form
const DefaultType = "Transports"

// Bill represents an expense reimbursement record submitted by an employee
type Bill struct {
	ID           string              `json:"id,omitempty"`
	Email        string              `json:"email,omitempty" validate:"required,email"`
	Type         string              `json:"type" validate:"required,billtype"`
	Name         string              `json:"name" validate:"required"`
	Date         *string             `json:"date" validate:"omitempty,datetime=2006-01-02"` // nil is a valid, permanent state
	Amount       decimal.Decimal     `json:"amount" validate:"gte=0"`
	VAT          decimal.NullDecimal `json:"vat" validate:"omitempty,gte=0"`
	Pct          *int                `json:"pct,omitempty" validate:"omitempty,min=0,max=100"`
	Commentary   string              `json:"commentary,omitempty"`
	CommentAdmin string              `json:"commentAdmin,omitempty"`
	FileURL      string              `json:"fileUrl,omitempty" validate:"required_with=FileName"`
	FileName     string              `json:"fileName,omitempty" validate:"required_with=FileURL"`
	Status       Status              `json:"status,omitempty" validate:"omitempty,oneof=pending accepted refused"`
}

// Persisted reports whether the bill has been assigned an ID by a store
func (b *Bill) Persisted() bool {
	return b.ID != ""
}

// HasFile reports whether a proof document is attached
func (b *Bill) HasFile() bool {
	return b.FileURL != "" && b.FileName != ""
}

// SortKey returns the raw date used for ordering. A missing date sorts as
// the empty string.
func (b *Bill) SortKey() string {
	if b.Date == nil {
		return ""
	}
	return *b.Date
}

// DateOf returns a pointer to a copy of s, for populating Bill.Date
func DateOf(s string) *string {
	return &s
}
