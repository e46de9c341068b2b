// Package fetcher runs listing queries against the document store and turns
// the raw documents into pages of normalized reports.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"findit/internal/filter"
	"findit/internal/model"
	"findit/internal/query"
	"findit/internal/storage"
)

const dateDisplayLayout = "02/01/2006"

// Querier is the subset of storage.Store the fetcher needs.
type Querier interface {
	Query(ctx context.Context, d query.Descriptor, after *model.Cursor, limit int) ([]storage.Document, error)
}

// Page is one fetched batch of lost reports.
type Page struct {
	Items []model.LostReport
	// NextCursor is the ordering key of the last raw document of the batch,
	// or the requested cursor when the batch was empty. Nil for searches.
	NextCursor *model.Cursor
	HasMore    bool
}

// FetchError reports a failed store round trip.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher executes descriptors on a store.
type Fetcher struct {
	store   Querier
	timeout time.Duration
	now     func() time.Time
}

// New creates a Fetcher. A zero timeout leaves store calls bounded only by
// the caller's context.
func New(store Querier, timeout time.Duration) *Fetcher {
	return &Fetcher{
		store:   store,
		timeout: timeout,
		now:     time.Now,
	}
}

// FetchPage runs d starting after cursor and returns at most pageSize
// reports. Paginated descriptors fetch one extra document to learn whether
// another page exists; the extra document is neither returned nor used as
// the next cursor. Search descriptors ignore cursor and pageSize and return
// the whole result.
func (f *Fetcher) FetchPage(ctx context.Context, d query.Descriptor, cursor *model.Cursor, pageSize int) (*Page, error) {
	if !d.Paginated {
		docs, err := f.query(ctx, d, nil, 0)
		if err != nil {
			return nil, &FetchError{Op: "search reports", Err: err}
		}
		return &Page{Items: f.lostReports(docs, d)}, nil
	}

	if pageSize <= 0 {
		return nil, &FetchError{Op: "fetch page", Err: errors.New("page size must be positive")}
	}

	docs, err := f.query(ctx, d, cursor, pageSize+1)
	if err != nil {
		return nil, &FetchError{Op: "fetch page", Err: err}
	}

	page := &Page{NextCursor: cursor}
	if len(docs) > pageSize {
		page.HasMore = true
		docs = docs[:pageSize]
	}
	if len(docs) > 0 {
		page.NextCursor = docs[len(docs)-1].Cursor()
	}
	page.Items = f.lostReports(docs, d)
	return page, nil
}

// FetchFound returns every found report, newest first.
func (f *Fetcher) FetchFound(ctx context.Context) ([]model.FoundReport, error) {
	docs, err := f.query(ctx, query.FoundItemsDescriptor(), nil, 0)
	if err != nil {
		return nil, &FetchError{Op: "fetch found reports", Err: err}
	}
	out := make([]model.FoundReport, 0, len(docs))
	for _, doc := range docs {
		out = append(out, model.FoundReport{Report: baseReport(doc)})
	}
	return out, nil
}

func (f *Fetcher) query(ctx context.Context, d query.Descriptor, after *model.Cursor, limit int) ([]storage.Document, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	return f.store.Query(ctx, d, after, limit)
}

func (f *Fetcher) lostReports(docs []storage.Document, d query.Descriptor) []model.LostReport {
	items := make([]model.LostReport, 0, len(docs))
	for _, doc := range docs {
		items = append(items, Normalize(doc))
	}
	return filter.Apply(items, d.Time, d.Sort, f.now())
}

// Normalize converts a raw lost-item document into a LostReport.
func Normalize(doc storage.Document) model.LostReport {
	r := model.LostReport{
		Report:      baseReport(doc),
		Course:      doc.Course,
		YearOfStudy: doc.YearOfStudy,
		DateLost:    doc.DateLost,
		TimeLost:    doc.TimeLost,
	}
	if !doc.DateLost.IsZero() {
		r.DateLostDisplay = doc.DateLost.Format(dateDisplayLayout)
	}
	return r
}

func baseReport(doc storage.Document) model.Report {
	return model.Report{
		ID:          doc.ID,
		Description: doc.Description,
		Location:    doc.Location,
		Fullname:    doc.Fullname,
		Email:       doc.Email,
		PhoneNumber: doc.PhoneNumber,
		ImageURL:    doc.ImageURL,
		IsFound:     doc.IsFound,
		Keywords:    doc.Keywords,
		ExpiresAt:   doc.ExpiresAt,
		CreatedAt:   doc.CreatedAt,
	}
}
