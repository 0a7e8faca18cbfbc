// Package sqlite provides the SQLite query engine over the pure-Go
// modernc driver.
package sqlite

import (
	"errors"
	"strings"

	"modernc.org/sqlite"

	"github.com/syssam/prax"
	"github.com/syssam/prax/dialect"
	praxsql "github.com/syssam/prax/dialect/sql"
	"github.com/syssam/prax/driver/sqlengine"
)

// Open opens an engine for the given DSN. Unless the DSN sets them
// itself, connections get a 10s busy timeout so concurrent writers wait
// instead of failing, and foreign key enforcement is switched on.
func Open(dsn string) (*sqlengine.Engine, error) {
	drv, err := praxsql.Open(dialect.SQLite, normalizeDSN(dsn))
	if err != nil {
		return nil, prax.NewDatabaseError(dialect.SQLite, err)
	}
	return sqlengine.New(drv, sqlengine.WithErrorMapper(mapError)), nil
}

func normalizeDSN(dsn string) string {
	if strings.HasPrefix(dsn, ":memory:") {
		return dsn
	}
	for _, pragma := range []string{"_pragma=busy_timeout(10000)", "_pragma=foreign_keys(1)"} {
		key := pragma[:strings.IndexByte(pragma, '(')]
		if strings.Contains(dsn, key) {
			continue
		}
		if strings.ContainsRune(dsn, '?') {
			dsn += "&" + pragma
		} else {
			dsn += "?" + pragma
		}
	}
	return dsn
}

// sqliteConstraint is the primary result code shared by all constraint
// violations. Extended codes carry the violation kind in the high byte.
const sqliteConstraint = 19

func mapError(err error) error {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return nil
	}
	if serr.Code()&0xff == sqliteConstraint {
		return prax.NewConstraintError(serr.Error(), err)
	}
	return nil
}
