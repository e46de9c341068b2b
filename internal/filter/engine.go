// Package filter implements the client-side part of a listing query: the
// recency cutoff and the lost-date ordering applied to a fetched batch.
package filter

import (
	"sort"
	"time"

	"findit/internal/model"
)

// Cutoff returns the earliest lost date admitted by tf, relative to now.
// The second result is false when tf does not restrict by time.
func Cutoff(tf model.TimeFilter, now time.Time) (time.Time, bool) {
	switch tf {
	case model.TimeLastWeek:
		return now.AddDate(0, 0, -7), true
	case model.TimeLastMonth:
		return now.AddDate(0, -1, 0), true
	}
	return time.Time{}, false
}

// ByTime drops reports lost before the cutoff of tf. Reports without a lost
// date are dropped whenever a cutoff applies.
func ByTime(items []model.LostReport, tf model.TimeFilter, now time.Time) []model.LostReport {
	cutoff, ok := Cutoff(tf, now)
	if !ok {
		return items
	}
	kept := items[:0:0]
	for _, it := range items {
		if it.DateLost.IsZero() || it.DateLost.Before(cutoff) {
			continue
		}
		kept = append(kept, it)
	}
	return kept
}

// Order sorts reports by lost date in place, newest first for SortLatest and
// oldest first for SortOldest. The sort is stable; reports without a lost
// date go last.
func Order(items []model.LostReport, by model.SortBy) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].DateLost, items[j].DateLost
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		if by == model.SortOldest {
			return a.Before(b)
		}
		return a.After(b)
	})
}

// Apply runs ByTime and then Order on a batch and returns the result.
func Apply(items []model.LostReport, tf model.TimeFilter, by model.SortBy, now time.Time) []model.LostReport {
	out := ByTime(items, tf, now)
	Order(out, by)
	return out
}
