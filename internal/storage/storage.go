// Package storage defines the document store interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"findit/internal/model"
	"findit/internal/query"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a report as the store holds it, before normalization.
type Document struct {
	ID         string
	Collection query.Collection

	Description string
	Location    string
	Fullname    string
	Email       string
	PhoneNumber string
	Course      string
	YearOfStudy string
	ImageURL    string

	// DateLost is zero for documents without a lost date.
	DateLost time.Time
	TimeLost string

	IsFound          bool
	VerificationCode int
	Keywords         []string

	ExpiresAt time.Time
	CreatedAt time.Time
}

// Cursor returns the ordering key of the document.
func (d Document) Cursor() *model.Cursor {
	return &model.Cursor{IsFound: d.IsFound, DateLost: d.DateLost, ID: d.ID}
}

// Store is the interface for all document store operations.
type Store interface {
	// Query runs d against the store. Documents are returned in the
	// descriptor's sort order, starting after the after cursor when it is
	// non-nil. A limit of zero means no limit.
	Query(ctx context.Context, d query.Descriptor, after *model.Cursor, limit int) ([]Document, error)
	Get(ctx context.Context, c query.Collection, id string) (*Document, error)
	SetFound(ctx context.Context, c query.Collection, id string) error
	Create(ctx context.Context, doc *Document) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	Close() error
}
