package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"findit/internal/model"
	"findit/internal/query"
	"findit/internal/storage"
)

var now = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

type mockExpirer struct {
	mu    sync.Mutex
	calls []time.Time
	n     int64
	err   error
}

func (m *mockExpirer) DeleteExpired(_ context.Context, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, at)
	return m.n, m.err
}

func (m *mockExpirer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newTestSweeper(store Expirer, schedule string) *Sweeper {
	s := New(store, schedule, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return now }
	return s
}

func TestSweep(t *testing.T) {
	tests := []struct {
		name    string
		store   *mockExpirer
		want    int64
		wantErr bool
	}{
		{name: "deletes", store: &mockExpirer{n: 3}, want: 3},
		{name: "nothing expired", store: &mockExpirer{}, want: 0},
		{name: "store error", store: &mockExpirer{err: errors.New("locked")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newTestSweeper(tt.store, "").Sweep(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Sweep error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Sweep = %d, want %d", got, tt.want)
			}
			if diff := cmp.Diff([]time.Time{now}, tt.store.calls); diff != "" {
				t.Errorf("DeleteExpired calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSweepCancelled(t *testing.T) {
	store := &mockExpirer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestSweeper(store, "").Sweep(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if store.callCount() != 0 {
		t.Errorf("DeleteExpired called %d times, want 0", store.callCount())
	}
}

func TestRunInvalidSchedule(t *testing.T) {
	err := newTestSweeper(&mockExpirer{}, "every tuesday").Run(context.Background())
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	store := &mockExpirer{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- newTestSweeper(store, "@every 1s").Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for store.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("sweeps = %d, want at least 2", store.callCount())
		case <-time.After(50 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSweepSQLite(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	for id, expires := range map[string]time.Time{
		"expired": now.Add(-time.Hour),
		"live":    now.Add(time.Hour),
	} {
		doc := &storage.Document{
			ID:         id,
			Collection: query.LostItems,
			DateLost:   now.AddDate(0, 0, -1),
			ExpiresAt:  expires,
			CreatedAt:  now.AddDate(0, 0, -1),
		}
		if err := s.Create(ctx, doc); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	n, err := newTestSweeper(s, "").Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	docs, err := s.Query(ctx, query.Build(model.DefaultQueryState()), nil, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "live" {
		t.Errorf("remaining = %+v, want only live", docs)
	}
}
