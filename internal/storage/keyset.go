package storage

import (
	"fmt"

	"findit/internal/model"
	"findit/internal/query"
)

// ordering returns the sort clauses of d followed by a descending id
// tie-break, so that every document has a unique position for cursors.
func ordering(d query.Descriptor) []query.Sort {
	sorts := make([]query.Sort, 0, len(d.Sorts)+1)
	sorts = append(sorts, d.Sorts...)
	for _, s := range sorts {
		if s.Field == query.FieldID {
			return sorts
		}
	}
	return append(sorts, query.Sort{Field: query.FieldID, Direction: query.Desc})
}

// cursorValue returns the cursor's value for f. null is set for a missing
// lost date, which both backends store as an absent value.
func cursorValue(c *model.Cursor, f query.Field) (value any, null bool, err error) {
	switch f {
	case query.FieldIsFound:
		return c.IsFound, false, nil
	case query.FieldDateLost:
		if c.DateLost.IsZero() {
			return nil, true, nil
		}
		return c.DateLost, false, nil
	case query.FieldID:
		return c.ID, false, nil
	}
	return nil, false, fmt.Errorf("field %q cannot be used in a cursor", f)
}

// comparison is the relation a keyset condition requires of a field.
type comparison int

const (
	cmpEqual comparison = iota
	cmpLess
	cmpGreater
	cmpIsNull
	cmpNotNull
)

// keysetCond is one field condition of a keyset term. value is unused for
// cmpIsNull and cmpNotNull.
type keysetCond struct {
	field query.Field
	cmp   comparison
	value any
}

// keysetTerm is one disjunct of a start-after condition: every earlier sort
// key equals the cursor and this key is strictly past it.
type keysetTerm struct {
	conds []keysetCond
}

// keyset expands a start-after cursor into the disjunction of terms
// (k1 past c1) OR (k1 = c1 AND k2 past c2) OR ...
//
// Absent values sort lowest in both backends: first ascending, last
// descending. Equality on an absent value is an IS NULL test. Under a
// descending sort every absent value lies past a present cursor value, and
// nothing lies past an absent one. Ascending is the mirror image.
func keyset(sorts []query.Sort, after *model.Cursor) ([]keysetTerm, error) {
	var terms []keysetTerm
	var prefix []keysetCond
	for _, s := range sorts {
		v, null, err := cursorValue(after, s.Field)
		if err != nil {
			return nil, err
		}

		var past []keysetCond
		switch {
		case null && s.Direction == query.Desc:
		case null:
			past = []keysetCond{{field: s.Field, cmp: cmpNotNull}}
		case s.Direction == query.Desc:
			past = []keysetCond{{field: s.Field, cmp: cmpLess, value: v}}
			if s.Field == query.FieldDateLost {
				past = append(past, keysetCond{field: s.Field, cmp: cmpIsNull})
			}
		default:
			past = []keysetCond{{field: s.Field, cmp: cmpGreater, value: v}}
		}
		for _, p := range past {
			conds := make([]keysetCond, 0, len(prefix)+1)
			conds = append(conds, prefix...)
			terms = append(terms, keysetTerm{conds: append(conds, p)})
		}

		eq := keysetCond{field: s.Field, cmp: cmpEqual, value: v}
		if null {
			eq = keysetCond{field: s.Field, cmp: cmpIsNull}
		}
		prefix = append(prefix, eq)
	}
	return terms, nil
}
