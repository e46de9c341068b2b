// Package model defines the domain types used across the application.
package model

import "time"

// ReportKind distinguishes lost reports from found reports.
type ReportKind string

// Supported report kinds.
const (
	KindLost  ReportKind = "lost"
	KindFound ReportKind = "found"
)

// Report holds the fields shared by every item report.
type Report struct {
	ID          string
	Description string
	Location    string
	Fullname    string
	Email       string
	PhoneNumber string
	ImageURL    string
	IsFound     bool
	Keywords    []string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// ItemReport is implemented by LostReport and FoundReport.
type ItemReport interface {
	Base() Report
	Kind() ReportKind
}

// LostReport is a report of an item somebody lost.
type LostReport struct {
	Report
	Course      string
	YearOfStudy string
	// DateLost is zero when the stored record carries no date.
	DateLost        time.Time
	DateLostDisplay string
	TimeLost        string
}

// Base returns the shared report fields.
func (r LostReport) Base() Report { return r.Report }

// Kind reports KindLost.
func (r LostReport) Kind() ReportKind { return KindLost }

// FoundReport is a report of an item somebody found.
type FoundReport struct {
	Report
}

// Base returns the shared report fields.
func (r FoundReport) Base() Report { return r.Report }

// Kind reports KindFound.
func (r FoundReport) Kind() ReportKind { return KindFound }

// StatusFilter restricts a listing by the isFound flag.
type StatusFilter string

// Supported status filters.
const (
	StatusAll      StatusFilter = "all"
	StatusFound    StatusFilter = "found"
	StatusNotFound StatusFilter = "notFound"
)

// TimeFilter restricts a listing by how recently the item was lost.
type TimeFilter string

// Supported time filters.
const (
	TimeAll       TimeFilter = "all"
	TimeLastWeek  TimeFilter = "lastWeek"
	TimeLastMonth TimeFilter = "lastMonth"
)

// SortBy orders a listing by lost date.
type SortBy string

// Supported sort orders.
const (
	SortLatest SortBy = "latest"
	SortOldest SortBy = "oldest"
)

// Cursor is the ordering key of the last document of a fetched page.
// Callers treat it as opaque and hand it back to request the next page.
type Cursor struct {
	IsFound  bool
	DateLost time.Time
	ID       string
}

// QueryState is the filter, search and pagination state of one list session.
type QueryState struct {
	Status     StatusFilter
	Time       TimeFilter
	Sort       SortBy
	SearchText string
	Cursor     *Cursor
	HasMore    bool
}

// DefaultQueryState returns the state a freshly mounted list starts with.
func DefaultQueryState() QueryState {
	return QueryState{
		Status:  StatusAll,
		Time:    TimeAll,
		Sort:    SortLatest,
		HasMore: true,
	}
}

// Valid reports whether s is one of the supported status filters.
func (s StatusFilter) Valid() bool {
	switch s {
	case StatusAll, StatusFound, StatusNotFound:
		return true
	}
	return false
}

// Valid reports whether t is one of the supported time filters.
func (t TimeFilter) Valid() bool {
	switch t {
	case TimeAll, TimeLastWeek, TimeLastMonth:
		return true
	}
	return false
}

// Valid reports whether s is one of the supported sort orders.
func (s SortBy) Valid() bool {
	switch s {
	case SortLatest, SortOldest:
		return true
	}
	return false
}
