package bot

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"findit/internal/model"
	"findit/internal/report"
	"findit/internal/session"
)

func TestParseFilterArg(t *testing.T) {
	tests := []struct {
		name    string
		dim     session.Dimension
		arg     string
		want    string
		wantErr bool
	}{
		{name: "status all", dim: session.DimStatus, arg: "all", want: "all"},
		{name: "status found", dim: session.DimStatus, arg: "Found", want: "found"},
		{name: "status not found", dim: session.DimStatus, arg: "notfound", want: "notFound"},
		{name: "status canonical spelling", dim: session.DimStatus, arg: "notFound", want: "notFound"},
		{name: "status missing alias", dim: session.DimStatus, arg: " missing ", want: "notFound"},
		{name: "time week", dim: session.DimTime, arg: "week", want: "lastWeek"},
		{name: "time month", dim: session.DimTime, arg: "lastMonth", want: "lastMonth"},
		{name: "sort newest", dim: session.DimSort, arg: "newest", want: "latest"},
		{name: "sort oldest", dim: session.DimSort, arg: "OLDEST", want: "oldest"},
		{name: "empty", dim: session.DimStatus, arg: "", wantErr: true},
		{name: "value of another dimension", dim: session.DimSort, arg: "week", wantErr: true},
		{name: "unknown dimension", dim: session.Dimension("colour"), arg: "all", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseFilterArg(tc.dim, tc.arg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFoundArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     string
		wantID   string
		wantCode string
		wantErr  bool
	}{
		{name: "id and code", args: "abc123 482913", wantID: "abc123", wantCode: "482913"},
		{name: "extra spaces", args: "  abc   482913 ", wantID: "abc", wantCode: "482913"},
		{name: "code kept verbatim", args: "abc 12x", wantID: "abc", wantCode: "12x"},
		{name: "empty", args: "", wantErr: true},
		{name: "id only", args: "abc", wantErr: true},
		{name: "too many", args: "abc 123456 extra", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, code, err := ParseFoundArgs(tc.args)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff([]string{tc.wantID, tc.wantCode}, []string{id, code}); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseReportArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    report.Input
		wantErr string
	}{
		{
			name: "lost without time",
			args: "lost Black wallet | Library | ada@example.com | 05/03/2026",
			want: report.Input{
				Kind:        model.KindLost,
				Description: "Black wallet",
				Location:    "Library",
				Email:       "ada@example.com",
				DateLost:    time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "lost with time",
			args: "LOST Black wallet|Library|ada@example.com|05/03/2026|09:15",
			want: report.Input{
				Kind:        model.KindLost,
				Description: "Black wallet",
				Location:    "Library",
				Email:       "ada@example.com",
				DateLost:    time.Date(2026, 3, 5, 9, 15, 0, 0, time.UTC),
				TimeLost:    "09:15",
			},
		},
		{
			name: "found",
			args: "found Keys | Gym | bob@example.com | https://img.example.com/k.png",
			want: report.Input{
				Kind:        model.KindFound,
				Description: "Keys",
				Location:    "Gym",
				Email:       "bob@example.com",
				ImageURL:    "https://img.example.com/k.png",
			},
		},
		{
			name:    "lost missing date",
			args:    "lost Keys | Gym | bob@example.com",
			wantErr: "usage: /report lost",
		},
		{
			name:    "lost bad date",
			args:    "lost Keys | Gym | bob@example.com | 31/02/2026",
			wantErr: "use DD/MM/YYYY",
		},
		{
			name:    "lost bad time",
			args:    "lost Keys | Gym | bob@example.com | 05/03/2026 | noon",
			wantErr: "use HH:MM",
		},
		{
			name:    "found missing image",
			args:    "found Keys | Gym | bob@example.com",
			wantErr: "usage: /report found",
		},
		{
			name:    "unknown kind",
			args:    "stolen Keys | Gym",
			wantErr: "usage:",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseReportArgs(tc.args)
			if tc.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q", tc.wantErr)
				}
				requireContains(t, err.Error(), tc.wantErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("input mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatLostItem(t *testing.T) {
	it := model.LostReport{
		Report: model.Report{
			ID:          "abc",
			Description: "Black wallet",
			Location:    "Library",
			Fullname:    "Ada Lovelace",
			Email:       "ada@example.com",
		},
		DateLostDisplay: "05/03/2026",
		TimeLost:        "09:15",
	}

	want := "#abc Black wallet\n" +
		"Location: Library\n" +
		"Lost: 05/03/2026 09:15\n" +
		"Status: not found\n" +
		"Contact: Ada Lovelace, ada@example.com\n"
	if diff := cmp.Diff(want, FormatLostItem(it)); diff != "" {
		t.Errorf("format mismatch (-want +got):\n%s", diff)
	}

	it.IsFound = true
	it.DateLostDisplay = ""
	it.ImageURL = "https://img.example.com/w.png"
	got := FormatLostItem(it)
	requireContains(t, got, "Status: FOUND")
	requireContains(t, got, "https://img.example.com/w.png")
	requireNotContains(t, got, "Lost:")
}

func TestFormatLoaded(t *testing.T) {
	items := []model.LostReport{
		{Report: model.Report{ID: "a", Description: "Wallet", Location: "Gym"}},
		{Report: model.Report{ID: "b", Description: "Keys", Location: "Lab"}},
	}

	t.Run("browse", func(t *testing.T) {
		v := session.View{Items: items, State: model.DefaultQueryState(), Mode: session.ModeBrowse}
		got := FormatLoaded(v)
		requireContains(t, got, "Lost items (status: all, time: all, sort: latest)")
		if strings.Index(got, "#a ") > strings.Index(got, "#b ") {
			t.Errorf("items out of order:\n%s", got)
		}
	})

	t.Run("search", func(t *testing.T) {
		state := model.DefaultQueryState()
		state.SearchText = "  wallet "
		state.Status = model.StatusNotFound
		v := session.View{Items: items[:1], State: state, Mode: session.ModeSearch}
		requireContains(t, FormatLoaded(v), `Search results for "wallet" (status: notFound`)
	})

	t.Run("empty", func(t *testing.T) {
		v := session.View{State: model.DefaultQueryState(), Mode: session.ModeBrowse}
		requireContains(t, FormatLoaded(v), "No items found.")
	})
}

func TestFormatFoundList(t *testing.T) {
	if diff := cmp.Diff("No found items have been reported yet.", FormatFoundList(nil)); diff != "" {
		t.Errorf("empty mismatch (-want +got):\n%s", diff)
	}

	got := FormatFoundList([]model.FoundReport{{Report: model.Report{
		ID:          "f1",
		Description: "Umbrella",
		Location:    "Bus stop",
		Email:       "bob@example.com",
		ImageURL:    "https://img.example.com/u.png",
	}}})
	want := "Found items:\n\n" +
		"#f1 Umbrella\n" +
		"Location: Bus stop\n" +
		"Contact: bob@example.com\n" +
		"https://img.example.com/u.png"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("format mismatch (-want +got):\n%s", diff)
	}
}

func TestListKeyboard(t *testing.T) {
	state := model.DefaultQueryState()

	browse := listKeyboard(session.View{State: state, Mode: session.ModeBrowse})
	if !hasButton(browse, "more:") {
		t.Errorf("browse with more pages should offer load more, got %q", callbackData(browse))
	}
	if !hasButton(browse, "time:lastWeek") || !hasButton(browse, "sort:oldest") {
		t.Errorf("missing filter buttons, got %q", callbackData(browse))
	}

	state.HasMore = false
	if kb := listKeyboard(session.View{State: state, Mode: session.ModeBrowse}); hasButton(kb, "more:") {
		t.Errorf("exhausted list offers load more: %q", callbackData(kb))
	}

	state.HasMore = true
	if kb := listKeyboard(session.View{State: state, Mode: session.ModeSearch}); hasButton(kb, "more:") {
		t.Errorf("search mode offers load more: %q", callbackData(kb))
	}
}

func TestRetryKeyboard(t *testing.T) {
	state := model.DefaultQueryState()
	state.Status = model.StatusFound
	items := []model.LostReport{{Report: model.Report{ID: "a"}}}
	failure := errors.New("unavailable")

	tests := []struct {
		name string
		view session.View
		want []string
	}{
		{
			name: "failed first page reloads",
			view: session.View{State: state, Mode: session.ModeBrowse, Err: failure},
			want: []string{"status:found"},
		},
		{
			name: "failed load more retries the page",
			view: session.View{Items: items, State: state, Mode: session.ModeBrowse, Err: failure},
			want: []string{"more:"},
		},
		{
			name: "failed search reruns",
			view: session.View{Items: items, State: state, Mode: session.ModeSearch, Err: failure},
			want: []string{"status:found"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, callbackData(retryKeyboard(tc.view))); diff != "" {
				t.Errorf("buttons mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	short := "hello"
	if diff := cmp.Diff(short, truncate(short)); diff != "" {
		t.Errorf("short text changed (-want +got):\n%s", diff)
	}

	block := strings.Repeat("x", 990)
	long := strings.Join([]string{block, block, block, block, block}, "\n\n")
	got := truncate(long)
	if len(got) > maxMessageLen+len("\n\n(truncated)") {
		t.Errorf("len = %d, want at most %d", len(got), maxMessageLen)
	}
	if !strings.HasSuffix(got, "\n\n(truncated)") {
		t.Errorf("missing truncation marker: %q", got[len(got)-20:])
	}
	if diff := cmp.Diff(strings.Join([]string{block, block, block, block}, "\n\n")+"\n\n(truncated)", got); diff != "" {
		t.Errorf("should cut at an item boundary (-want +got):\n%s", diff)
	}
}
