package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/zombor/billed/internal/bill"
)

// ErrOwnerMismatch is returned when a bill is written by someone other than its owner
var ErrOwnerMismatch = errors.New("bill belongs to another owner")

// IDGenerator generates unique IDs for bills
type IDGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

// Local is the reference implementation of Bills backed by a DB and Blobs
type Local struct {
	db          DB
	blobs       Blobs
	fileBaseURL string
	idGenerator IDGenerator
}

// NewLocal creates a Local store. File URLs are built as
// fileBaseURL + "/files/" + key.
func NewLocal(db DB, blobs Blobs, fileBaseURL string) *Local {
	return NewLocalWithDeps(db, blobs, fileBaseURL, uuidGenerator{})
}

// NewLocalWithDeps creates a Local store with a custom ID generator for testing
func NewLocalWithDeps(db DB, blobs Blobs, fileBaseURL string, idGen IDGenerator) *Local {
	return &Local{
		db:          db,
		blobs:       blobs,
		fileBaseURL: strings.TrimSuffix(fileBaseURL, "/"),
		idGenerator: idGen,
	}
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaceRuns   = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeChars.ReplaceAllString(base, "")
	base = spaceRuns.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_ ")

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "justificatif"
	}
	return base + ext
}

// FileURL returns the public URL of a stored blob
func (l *Local) FileURL(key string) string {
	return l.fileBaseURL + "/files/" + url.PathEscape(key)
}

// List returns the bills owned by owner
func (l *Local) List(_ context.Context, owner string) ([]*bill.Bill, error) {
	bills, err := l.db.ListBills(owner)
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}
	return bills, nil
}

// Create stores the proof document and reserves a pending bill for it
func (l *Local) Create(ctx context.Context, owner string, file bill.File) (*FileRef, error) {
	if owner == "" {
		return nil, fmt.Errorf("creating bill: owner is required")
	}

	id := l.idGenerator.Generate()
	key := fmt.Sprintf("%s_%s", id, sanitizeFilename(file.Name))

	if err := l.blobs.Save(ctx, key, file.Data, bill.DetectContentType(file)); err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	reserved := &bill.Bill{
		ID:       id,
		Email:    owner,
		FileURL:  l.FileURL(key),
		FileName: file.Name,
		Status:   bill.StatusPending,
	}
	if err := l.db.SaveBill(reserved); err != nil {
		if delErr := l.blobs.Delete(ctx, key); delErr != nil {
			slog.Warn("Failed to delete file", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("saving bill to database: %w", err)
	}

	return &FileRef{
		FileURL:  reserved.FileURL,
		FileName: reserved.FileName,
		BillID:   id,
	}, nil
}

// Update writes a full bill record. The owner and review status of an
// existing bill are kept.
func (l *Local) Update(_ context.Context, b *bill.Bill) (*bill.Bill, error) {
	if b.Email == "" {
		return nil, fmt.Errorf("updating bill: owner is required")
	}

	updated := *b
	if updated.ID == "" {
		updated.ID = l.idGenerator.Generate()
		updated.Status = bill.StatusPending
	} else {
		existing, err := l.db.GetBill(updated.ID)
		if err != nil {
			return nil, fmt.Errorf("getting bill for update: %w", err)
		}
		if existing.Email != updated.Email {
			return nil, fmt.Errorf("updating bill %s: %w", updated.ID, ErrOwnerMismatch)
		}
		updated.Status = existing.Status
		updated.CommentAdmin = existing.CommentAdmin
		if updated.FileURL == "" && updated.FileName == "" {
			updated.FileURL = existing.FileURL
			updated.FileName = existing.FileName
		}
	}

	if err := l.db.SaveBill(&updated); err != nil {
		return nil, fmt.Errorf("saving bill to database: %w", err)
	}
	return &updated, nil
}

// File returns a stored proof document of one of owner's bills. A key that
// does not belong to owner is reported as ErrNotFound.
func (l *Local) File(ctx context.Context, owner, key string) ([]byte, string, error) {
	id, _, ok := strings.Cut(key, "_")
	if !ok || owner == "" {
		return nil, "", fmt.Errorf("getting file %s: %w", key, ErrNotFound)
	}
	b, err := l.db.GetBill(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting bill for file: %w", err)
	}
	if b.Email != owner || b.FileURL != l.FileURL(key) {
		return nil, "", fmt.Errorf("getting file %s: %w", key, ErrNotFound)
	}

	data, contentType, err := l.blobs.Get(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("getting file: %w", err)
	}
	return data, contentType, nil
}
