// Package store defines the remote bill store used by the controllers and
// provides a bbolt-backed implementation, blob backends, an HTTP API for it
// and an HTTP client.
package store

import (
	"context"
	"errors"

	"github.com/zombor/billed/internal/bill"
)

// ErrNotFound is returned when a bill does not exist
var ErrNotFound = errors.New("bill not found")

// FileRef is the result of uploading a proof document
type FileRef struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	BillID   string `json:"key"`
}

// Bills is the remote store contract
type Bills interface {
	// List returns the bills owned by owner
	List(ctx context.Context, owner string) ([]*bill.Bill, error)

	// Create uploads a proof document and reserves a bill record for it
	Create(ctx context.Context, owner string, file bill.File) (*FileRef, error)

	// Update writes a full bill record. A bill without an ID is created.
	Update(ctx context.Context, b *bill.Bill) (*bill.Bill, error)
}
