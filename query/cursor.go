package query

import (
	"github.com/syssam/prax/filter"
)

// Cursor resumes a listing relative to a known row: rows strictly after
// (Asc) or strictly before (Desc) the cursor value. Compilation adds the
// comparison to the filter and forces a sort on the cursor field with the
// primary key as tie-breaker, so pages stay stable under equal keys.
type Cursor struct {
	Field     string
	Value     filter.Value
	Direction Direction
}

// clause returns the cursor comparison as a filter.
func (c Cursor) clause() *filter.Filter {
	if c.Direction == Desc {
		return filter.Lt(c.Field, c.Value)
	}
	return filter.Gt(c.Field, c.Value)
}

// orders returns the forced sort: the cursor field first, then every
// primary-key column not already covered, all in the cursor's direction.
func (c Cursor) orders(pk []string) []Order {
	out := []Order{{Field: c.Field, Direction: c.Direction}}
	for _, col := range pk {
		if col == c.Field {
			continue
		}
		out = append(out, Order{Field: col, Direction: c.Direction})
	}
	return out
}
