// Package session owns the state of one item list: the query state, the
// loaded items and the in-flight flags. Results of fetches issued under an
// older query state are discarded.
package session

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"findit/internal/debounce"
	"findit/internal/fetcher"
	"findit/internal/keywords"
	"findit/internal/model"
	"findit/internal/query"
	"findit/internal/storage"
)

// PageFetcher runs a listing descriptor.
type PageFetcher interface {
	FetchPage(ctx context.Context, d query.Descriptor, cursor *model.Cursor, pageSize int) (*fetcher.Page, error)
}

// Store is the subset of storage.Store used for verification.
type Store interface {
	Get(ctx context.Context, c query.Collection, id string) (*storage.Document, error)
	SetFound(ctx context.Context, c query.Collection, id string) error
}

// Dimension names a filter a user can change.
type Dimension string

// Filter dimensions.
const (
	DimStatus Dimension = "status"
	DimTime   Dimension = "time"
	DimSort   Dimension = "sort"
)

// Mode is browse when the search text is blank and search otherwise.
type Mode string

// List modes.
const (
	ModeBrowse Mode = "browse"
	ModeSearch Mode = "search"
)

// UpdateKind tells a listener what changed.
type UpdateKind string

// Update kinds.
const (
	UpdateLoaded      UpdateKind = "loaded"
	UpdateAppended    UpdateKind = "appended"
	UpdateFailed      UpdateKind = "failed"
	UpdateItemChanged UpdateKind = "itemChanged"
)

// View is a snapshot of the list.
type View struct {
	Items          []model.LostReport
	State          model.QueryState
	Mode           Mode
	IsFetching     bool
	IsFetchingMore bool
	IsSearching    bool
	Err            error
}

// Update is delivered to the listener after a result has been applied.
type Update struct {
	Kind UpdateKind
	View View
	// New holds the items loaded or appended by this update.
	New []model.LostReport
}

// Config tunes a Controller.
type Config struct {
	PageSize     int
	SearchDelay  time.Duration
	StoreTimeout time.Duration
}

// Controller is the state owner of one list session. Its methods block for
// the duration of the store round trip and are safe for concurrent use.
type Controller struct {
	fetcher  PageFetcher
	store    Store
	search   *debounce.Search
	pageSize int
	timeout  time.Duration
	log      *slog.Logger
	listener func(Update)

	mu           sync.Mutex
	state        model.QueryState
	items        []model.LostReport
	gen          uint64
	fetching     bool
	fetchingMore bool
	searching    bool
	lastErr      error
}

// New creates a Controller in the default query state. listener may be nil.
func New(f PageFetcher, store Store, cfg Config, log *slog.Logger, listener func(Update)) *Controller {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 3
	}
	if listener == nil {
		listener = func(Update) {}
	}

	c := &Controller{
		fetcher:  f,
		store:    store,
		pageSize: cfg.PageSize,
		timeout:  cfg.StoreTimeout,
		log:      log,
		listener: listener,
		state:    model.DefaultQueryState(),
	}
	c.search = debounce.New(cfg.SearchDelay, c.onSearch, c.onClear)
	return c
}

// Start loads the first page, or runs the search when search text is set.
func (c *Controller) Start(ctx context.Context) {
	c.load(ctx, true)
}

// ApplyFilter changes one filter dimension and reloads the list from the
// start. In search mode the search runs again immediately. The list is
// reloaded even when the value is unchanged.
func (c *Controller) ApplyFilter(ctx context.Context, dim Dimension, value string) error {
	c.mu.Lock()
	switch dim {
	case DimStatus:
		v := model.StatusFilter(value)
		if !v.Valid() {
			c.mu.Unlock()
			return ErrInvalidFilter
		}
		c.state.Status = v
	case DimTime:
		v := model.TimeFilter(value)
		if !v.Valid() {
			c.mu.Unlock()
			return ErrInvalidFilter
		}
		c.state.Time = v
	case DimSort:
		v := model.SortBy(value)
		if !v.Valid() {
			c.mu.Unlock()
			return ErrInvalidFilter
		}
		c.state.Sort = v
	default:
		c.mu.Unlock()
		return ErrInvalidFilter
	}
	c.mu.Unlock()

	c.search.Cancel()
	c.load(ctx, true)
	return nil
}

// SetSearchText records new search input. Non-blank text is searched once
// the input settles; blank text returns to browse mode immediately. Input
// that normalizes to the current search is recorded without a fetch.
func (c *Controller) SetSearchText(ctx context.Context, text string) {
	c.mu.Lock()
	if keywords.Probe(text) == keywords.Probe(c.state.SearchText) {
		c.state.SearchText = text
		c.mu.Unlock()
		return
	}
	c.state.SearchText = text
	c.gen++
	c.fetching = false
	c.fetchingMore = false
	c.searching = query.IsSearchText(text)
	c.mu.Unlock()

	c.search.Changed(ctx, text)
}

// LoadMore appends the next page. It does nothing in search mode, when no
// more pages exist or while any fetch is in flight.
func (c *Controller) LoadMore(ctx context.Context) {
	c.mu.Lock()
	if !c.state.HasMore || query.IsSearchText(c.state.SearchText) ||
		c.fetching || c.fetchingMore || c.searching {
		c.mu.Unlock()
		return
	}
	c.fetchingMore = true
	gen := c.gen
	d := query.Build(c.state)
	cursor := c.state.Cursor
	c.mu.Unlock()

	page, err := c.fetcher.FetchPage(ctx, d, cursor, c.pageSize)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug("discarding stale page", "generation", gen)
		return
	}
	c.fetchingMore = false
	if err != nil {
		c.lastErr = err
		v := c.viewLocked()
		c.mu.Unlock()
		c.log.Warn("load more failed", "error", err)
		c.listener(Update{Kind: UpdateFailed, View: v})
		return
	}
	c.items = append(c.items, page.Items...)
	c.state.Cursor = page.NextCursor
	c.state.HasMore = page.HasMore
	c.lastErr = nil
	v := c.viewLocked()
	c.mu.Unlock()

	c.listener(Update{Kind: UpdateAppended, View: v, New: page.Items})
}

// MarkFound flips the isFound flag of a lost report after checking code
// against the stored verification code. Marking an already found report
// again succeeds without writing.
func (c *Controller) MarkFound(ctx context.Context, id, code string) error {
	n, ok := parseCode(code)
	if !ok {
		return &VerificationMismatchError{ID: id, Malformed: true}
	}

	doc, err := c.get(ctx, id)
	if err != nil {
		return &VerificationLookupError{ID: id, Err: err}
	}
	if doc.VerificationCode != n {
		return &VerificationMismatchError{ID: id}
	}

	if !doc.IsFound {
		if err := c.setFound(ctx, id); err != nil {
			return &VerificationLookupError{ID: id, Err: err}
		}
		c.log.Info("report marked found", "item_id", id)
	}

	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].IsFound = true
		}
	}
	v := c.viewLocked()
	c.mu.Unlock()

	c.listener(Update{Kind: UpdateItemChanged, View: v})
	return nil
}

// View returns a snapshot of the list.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Close stops the pending search countdown and discards results of fetches
// still in flight.
func (c *Controller) Close() {
	c.search.Cancel()
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
}

func (c *Controller) onSearch(ctx context.Context, text string) {
	c.mu.Lock()
	current := c.state.SearchText
	c.mu.Unlock()
	if keywords.Probe(current) != keywords.Probe(text) {
		return
	}
	c.load(ctx, false)
}

func (c *Controller) onClear(ctx context.Context) {
	c.load(ctx, true)
}

// load starts over from the first page of the current state. A search
// replaces the list only when its result arrives unless reset is set.
func (c *Controller) load(ctx context.Context, reset bool) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	search := query.IsSearchText(c.state.SearchText)
	c.state.Cursor = nil
	c.state.HasMore = !search
	if reset {
		c.items = nil
	}
	c.fetching = !search
	c.searching = search
	c.fetchingMore = false
	c.lastErr = nil
	d := query.Build(c.state)
	c.mu.Unlock()

	page, err := c.fetcher.FetchPage(ctx, d, nil, c.pageSize)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug("discarding stale result", "generation", gen, "search", search)
		return
	}
	c.fetching = false
	c.searching = false
	if err != nil {
		c.lastErr = err
		v := c.viewLocked()
		c.mu.Unlock()
		c.log.Warn("load list failed", "search", search, "error", err)
		c.listener(Update{Kind: UpdateFailed, View: v})
		return
	}
	c.items = page.Items
	c.state.Cursor = page.NextCursor
	c.state.HasMore = page.HasMore
	v := c.viewLocked()
	c.mu.Unlock()

	c.listener(Update{Kind: UpdateLoaded, View: v, New: page.Items})
}

func (c *Controller) viewLocked() View {
	items := make([]model.LostReport, len(c.items))
	copy(items, c.items)

	mode := ModeBrowse
	if query.IsSearchText(c.state.SearchText) {
		mode = ModeSearch
	}
	return View{
		Items:          items,
		State:          c.state,
		Mode:           mode,
		IsFetching:     c.fetching,
		IsFetchingMore: c.fetchingMore,
		IsSearching:    c.searching,
		Err:            c.lastErr,
	}
}

func (c *Controller) get(ctx context.Context, id string) (*storage.Document, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.store.Get(ctx, query.LostItems, id)
}

func (c *Controller) setFound(ctx context.Context, id string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.store.SetFound(ctx, query.LostItems, id)
}

func (c *Controller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// parseCode accepts exactly six ASCII digits without a leading zero.
func parseCode(code string) (int, bool) {
	if len(code) != 6 || code[0] == '0' {
		return 0, false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, false
	}
	return n, true
}
