// Package query translates list state into a store query descriptor.
package query

import (
	"strings"

	"findit/internal/keywords"
	"findit/internal/model"
)

// Collection names a group of documents in the store.
type Collection string

// Collections holding the two report kinds.
const (
	LostItems  Collection = "lostItems"
	FoundItems Collection = "foundItems"
)

// Field is a logical document field a predicate or sort refers to.
type Field string

// Fields that queries push down to the store.
const (
	FieldIsFound   Field = "isFound"
	FieldDateLost  Field = "dateLost"
	FieldKeywords  Field = "keywords"
	FieldCreatedAt Field = "createdAt"
	FieldID        Field = "id"
)

// Op is a predicate operator the store evaluates server-side.
type Op string

// Supported operators.
const (
	OpEqual         Op = "=="
	OpArrayContains Op = "array-contains"
)

// Predicate is a single push-down filter.
type Predicate struct {
	Field Field
	Op    Op
	Value any
}

// Direction is a sort direction.
type Direction int

// Sort directions.
const (
	Asc Direction = iota
	Desc
)

// Sort is a single-field sort clause.
type Sort struct {
	Field     Field
	Direction Direction
}

// Descriptor is a complete description of one listing query: the part the
// store evaluates (predicates, sorts, pagination) and the part applied
// client-side to the fetched batch (time cutoff, sort order).
type Descriptor struct {
	Collection Collection
	Predicates []Predicate
	Sorts      []Sort

	// Paginated descriptors are fetched page by page with a cursor.
	// Search descriptors are not: they fetch the full result at once.
	Paginated bool

	Time model.TimeFilter
	Sort model.SortBy
}

// IsSearch reports whether the descriptor probes the keyword index.
func (d Descriptor) IsSearch() bool {
	for _, p := range d.Predicates {
		if p.Field == FieldKeywords {
			return true
		}
	}
	return false
}

// Build returns the descriptor for the given list state.
//
// A status of found or notFound is pushed down as an equality on isFound.
// A status of all is expressed as an ascending sort on isFound instead,
// because the store needs a consistent leading sort key for cursors. A
// descending sort on dateLost always follows. Non-blank search text replaces
// the predicates with a keyword membership probe (plus the isFound equality,
// if any) and disables pagination.
func Build(state model.QueryState) Descriptor {
	d := Descriptor{
		Collection: LostItems,
		Time:       state.Time,
		Sort:       state.Sort,
	}

	status := statusPredicate(state.Status)
	if status == nil {
		d.Sorts = append(d.Sorts, Sort{Field: FieldIsFound, Direction: Asc})
	}
	d.Sorts = append(d.Sorts, Sort{Field: FieldDateLost, Direction: Desc})

	if probe := keywords.Probe(state.SearchText); probe != "" {
		d.Predicates = []Predicate{{Field: FieldKeywords, Op: OpArrayContains, Value: probe}}
		if status != nil {
			d.Predicates = append(d.Predicates, *status)
		}
		return d
	}

	if status != nil {
		d.Predicates = append(d.Predicates, *status)
	}
	d.Paginated = true
	return d
}

// FoundItemsDescriptor lists every found report, most recently reported first.
func FoundItemsDescriptor() Descriptor {
	return Descriptor{
		Collection: FoundItems,
		Sorts:      []Sort{{Field: FieldCreatedAt, Direction: Desc}},
		Time:       model.TimeAll,
		Sort:       model.SortLatest,
	}
}

// IsSearchText reports whether text puts a list into search mode.
func IsSearchText(text string) bool {
	return strings.TrimSpace(text) != ""
}

func statusPredicate(s model.StatusFilter) *Predicate {
	switch s {
	case model.StatusFound:
		return &Predicate{Field: FieldIsFound, Op: OpEqual, Value: true}
	case model.StatusNotFound:
		return &Predicate{Field: FieldIsFound, Op: OpEqual, Value: false}
	}
	return nil
}
