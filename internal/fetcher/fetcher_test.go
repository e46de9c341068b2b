package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"findit/internal/model"
	"findit/internal/query"
	"findit/internal/storage"
)

var now = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

type queryCall struct {
	after *model.Cursor
	limit int
}

type mockQuerier struct {
	docs  []storage.Document
	err   error
	calls []queryCall
}

func (m *mockQuerier) Query(_ context.Context, _ query.Descriptor, after *model.Cursor, limit int) ([]storage.Document, error) {
	m.calls = append(m.calls, queryCall{after: after, limit: limit})
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.docs) > limit {
		return m.docs[:limit], nil
	}
	return m.docs, nil
}

func newTestFetcher(q Querier) *Fetcher {
	f := New(q, time.Second)
	f.now = func() time.Time { return now }
	return f
}

func lostDoc(id string, daysAgo int) storage.Document {
	return storage.Document{
		ID:          id,
		Collection:  query.LostItems,
		Description: "item " + id,
		DateLost:    now.AddDate(0, 0, -daysAgo),
	}
}

func itemIDs(items []model.LostReport) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestFetchPage(t *testing.T) {
	start := &model.Cursor{ID: "start"}
	browse := query.Build(model.DefaultQueryState())
	lastWeek := query.Build(model.QueryState{Status: model.StatusAll, Time: model.TimeLastWeek, Sort: model.SortLatest})

	tests := []struct {
		name       string
		d          query.Descriptor
		docs       []storage.Document
		cursor     *model.Cursor
		wantIDs    []string
		wantMore   bool
		wantCursor *model.Cursor
		wantCall   queryCall
	}{
		{
			name:       "sentinel row signals more",
			d:          browse,
			docs:       []storage.Document{lostDoc("a", 1), lostDoc("b", 2), lostDoc("c", 3), lostDoc("d", 4)},
			wantIDs:    []string{"a", "b", "c"},
			wantMore:   true,
			wantCursor: lostDoc("c", 3).Cursor(),
			wantCall:   queryCall{limit: 4},
		},
		{
			name:       "exact page has no more",
			d:          browse,
			docs:       []storage.Document{lostDoc("a", 1), lostDoc("b", 2), lostDoc("c", 3)},
			cursor:     start,
			wantIDs:    []string{"a", "b", "c"},
			wantMore:   false,
			wantCursor: lostDoc("c", 3).Cursor(),
			wantCall:   queryCall{after: start, limit: 4},
		},
		{
			name:       "empty batch keeps cursor",
			d:          browse,
			cursor:     start,
			wantIDs:    []string{},
			wantCursor: start,
			wantCall:   queryCall{after: start, limit: 4},
		},
		{
			name:       "cursor advances past filtered records",
			d:          lastWeek,
			docs:       []storage.Document{lostDoc("a", 2), lostDoc("b", 20), lostDoc("c", 30), lostDoc("d", 40)},
			wantIDs:    []string{"a"},
			wantMore:   true,
			wantCursor: lostDoc("c", 30).Cursor(),
			wantCall:   queryCall{limit: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &mockQuerier{docs: tt.docs}
			page, err := newTestFetcher(q).FetchPage(context.Background(), tt.d, tt.cursor, 3)
			if err != nil {
				t.Fatalf("FetchPage: %v", err)
			}

			if diff := cmp.Diff(tt.wantIDs, itemIDs(page.Items)); diff != "" {
				t.Errorf("items mismatch (-want +got):\n%s", diff)
			}
			if page.HasMore != tt.wantMore {
				t.Errorf("HasMore = %v, want %v", page.HasMore, tt.wantMore)
			}
			if diff := cmp.Diff(tt.wantCursor, page.NextCursor); diff != "" {
				t.Errorf("cursor mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]queryCall{tt.wantCall}, q.calls, cmp.AllowUnexported(queryCall{})); diff != "" {
				t.Errorf("store calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchPageSearch(t *testing.T) {
	state := model.QueryState{Status: model.StatusAll, Time: model.TimeAll, Sort: model.SortOldest, SearchText: "backpack"}
	q := &mockQuerier{docs: []storage.Document{lostDoc("a", 1), lostDoc("b", 9), lostDoc("c", 5), lostDoc("d", 3)}}

	page, err := newTestFetcher(q).FetchPage(context.Background(), query.Build(state), &model.Cursor{ID: "ignored"}, 3)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	if diff := cmp.Diff([]string{"b", "c", "d", "a"}, itemIDs(page.Items)); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	if page.HasMore {
		t.Error("search page must not report more")
	}
	if page.NextCursor != nil {
		t.Errorf("NextCursor = %+v, want nil", page.NextCursor)
	}
	if diff := cmp.Diff([]queryCall{{}}, q.calls, cmp.AllowUnexported(queryCall{})); diff != "" {
		t.Errorf("store calls mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchPageError(t *testing.T) {
	storeErr := errors.New("unavailable")
	q := &mockQuerier{err: storeErr}

	_, err := newTestFetcher(q).FetchPage(context.Background(), query.Build(model.DefaultQueryState()), nil, 3)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if !errors.Is(err, storeErr) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}

func TestFetchPageInvalidSize(t *testing.T) {
	q := &mockQuerier{}
	_, err := newTestFetcher(q).FetchPage(context.Background(), query.Build(model.DefaultQueryState()), nil, 0)
	if err == nil {
		t.Fatal("expected error for zero page size")
	}
	if len(q.calls) != 0 {
		t.Errorf("store called %d times, want 0", len(q.calls))
	}
}

func TestNormalize(t *testing.T) {
	doc := storage.Document{
		ID:               "r1",
		Collection:       query.LostItems,
		Description:      "Blue Nike backpack",
		Location:         "Library",
		Course:           "Physics",
		YearOfStudy:      "3",
		DateLost:         time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		TimeLost:         "10:30",
		VerificationCode: 123456,
		Keywords:         []string{"blue"},
	}

	want := model.LostReport{
		Report: model.Report{
			ID:          "r1",
			Description: "Blue Nike backpack",
			Location:    "Library",
			Keywords:    []string{"blue"},
		},
		Course:          "Physics",
		YearOfStudy:     "3",
		DateLost:        time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		DateLostDisplay: "05/03/2026",
		TimeLost:        "10:30",
	}
	if diff := cmp.Diff(want, Normalize(doc)); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}

	if got := Normalize(storage.Document{ID: "undated"}).DateLostDisplay; got != "" {
		t.Errorf("DateLostDisplay = %q, want empty", got)
	}
}

func TestFetchFound(t *testing.T) {
	q := &mockQuerier{docs: []storage.Document{
		{ID: "f1", Collection: query.FoundItems, Description: "Keys", ImageURL: "https://img.example/1.jpg"},
	}}

	got, err := newTestFetcher(q).FetchFound(context.Background())
	if err != nil {
		t.Fatalf("FetchFound: %v", err)
	}
	want := []model.FoundReport{{Report: model.Report{ID: "f1", Description: "Keys", ImageURL: "https://img.example/1.jpg"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FetchFound mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchPageSQLite(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	for i, id := range []string{"a", "b", "c", "d", "e"} {
		doc := lostDoc(id, i+1)
		doc.DateLost = doc.DateLost.Truncate(time.Second)
		if err := s.Create(ctx, &doc); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	f := newTestFetcher(s)
	d := query.Build(model.DefaultQueryState())

	var got []string
	var cursor *model.Cursor
	var pages int
	for {
		page, err := f.FetchPage(ctx, d, cursor, 2)
		if err != nil {
			t.Fatalf("FetchPage: %v", err)
		}
		pages++
		got = append(got, itemIDs(page.Items)...)
		cursor = page.NextCursor
		if !page.HasMore {
			break
		}
	}

	if diff := cmp.Diff([]string{"a", "b", "c", "d", "e"}, got); diff != "" {
		t.Errorf("paged ids mismatch (-want +got):\n%s", diff)
	}
	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
}

func TestFetchPageSQLiteUndated(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	for i, id := range []string{"u1", "u2", "u3", "u4", "u5"} {
		doc := lostDoc(id, i+1)
		doc.DateLost = time.Time{}
		if err := s.Create(ctx, &doc); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	f := newTestFetcher(s)
	d := query.Build(model.DefaultQueryState())

	var got [][]string
	var hasMore []bool
	var cursor *model.Cursor
	for range 5 {
		page, err := f.FetchPage(ctx, d, cursor, 3)
		if err != nil {
			t.Fatalf("FetchPage: %v", err)
		}
		got = append(got, itemIDs(page.Items))
		hasMore = append(hasMore, page.HasMore)
		cursor = page.NextCursor
		if !page.HasMore {
			break
		}
	}

	if diff := cmp.Diff([][]string{{"u5", "u4", "u3"}, {"u2", "u1"}}, got); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{true, false}, hasMore); diff != "" {
		t.Errorf("hasMore mismatch (-want +got):\n%s", diff)
	}
}
