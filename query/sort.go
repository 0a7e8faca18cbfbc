package query

import (
	"strings"

	"github.com/syssam/prax/dialect"
)

// Direction orders a sort key ascending or descending.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// String returns the SQL keyword.
func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// NullsOrder places NULL values relative to the rest of a sort key.
// NullsDefault leaves the placement to the backend.
type NullsOrder int

const (
	NullsDefault NullsOrder = iota
	NullsFirst
	NullsLast
)

// Order is one ORDER BY key.
type Order struct {
	Field     string
	Direction Direction
	Nulls     NullsOrder
}

// terms renders the key as order terms for the given dialect. Backends
// without NULLS FIRST/LAST get an extra CASE key that partitions rows into
// null and non-null before the real sort applies.
func (o Order) terms(d string) []string {
	col := quoteQualified(d, o.Field)
	if o.Nulls == NullsDefault {
		return []string{col + " " + o.Direction.String()}
	}
	if supportsNullOrdering(d) {
		kw := " NULLS LAST"
		if o.Nulls == NullsFirst {
			kw = " NULLS FIRST"
		}
		return []string{col + " " + o.Direction.String() + kw}
	}
	null, rest := "0", "1"
	if o.Nulls == NullsLast {
		null, rest = "1", "0"
	}
	guard := "(CASE WHEN " + col + " IS NULL THEN " + null + " ELSE " + rest + " END) ASC"
	return []string{guard, col + " " + o.Direction.String()}
}

// supportsNullOrdering reports whether the dialect accepts NULLS
// FIRST/LAST on order terms.
func supportsNullOrdering(d string) bool {
	switch d {
	case dialect.Postgres, dialect.DuckDB, dialect.SQLite:
		return true
	default:
		return false
	}
}

func quoteQualified(d, ident string) string {
	if !strings.ContainsRune(ident, '.') {
		return dialect.Quote(d, ident)
	}
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = dialect.Quote(d, p)
	}
	return strings.Join(parts, ".")
}
