// Package mysql provides the MySQL query engine over go-sql-driver.
package mysql

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/syssam/prax"
	"github.com/syssam/prax/dialect"
	praxsql "github.com/syssam/prax/dialect/sql"
	"github.com/syssam/prax/driver/sqlengine"
)

// Open opens an engine for the given DSN. The DSN is normalized so
// migration files can run as one multi-statement batch and DATETIME
// columns scan as time.Time.
func Open(dsn string) (*sqlengine.Engine, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, prax.NewConfigError("database.url", err)
	}
	return OpenConfig(cfg)
}

// OpenConfig opens an engine from a parsed driver config.
func OpenConfig(cfg *mysql.Config) (*sqlengine.Engine, error) {
	cfg = cfg.Clone()
	cfg.MultiStatements = true
	cfg.ParseTime = true
	drv, err := praxsql.Open(dialect.MySQL, cfg.FormatDSN())
	if err != nil {
		return nil, prax.NewDatabaseError(dialect.MySQL, err)
	}
	return sqlengine.New(drv, sqlengine.WithErrorMapper(mapError)), nil
}

// DSN builds a TCP connection string for the common case.
func DSN(user, password, addr, database string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = addr
	cfg.DBName = database
	return cfg.FormatDSN()
}

// Constraint-class server error numbers.
const (
	errDupEntry        = 1062
	errBadNull         = 1048
	errRowIsReferenced = 1451
	errNoReferencedRow = 1452
	errCheckViolated   = 3819
)

func mapError(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return nil
	}
	switch me.Number {
	case errDupEntry, errBadNull, errRowIsReferenced, errNoReferencedRow, errCheckViolated:
		return prax.NewConstraintError(me.Message, err)
	}
	return nil
}
