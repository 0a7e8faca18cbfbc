// Package mssql provides the SQL Server query engine over go-mssqldb.
// Connections run through the driver's legacy "mssql" entry, which
// binds ? ordinal placeholders as @p1..@pN the way compiled statements
// emit them.
package mssql

import (
	"errors"
	"net"
	"net/url"
	"strconv"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/syssam/prax"
	"github.com/syssam/prax/dialect"
	praxsql "github.com/syssam/prax/dialect/sql"
	"github.com/syssam/prax/driver/sqlengine"
)

// Config holds the common connection parameters. Anything beyond these
// can go through OpenURL with a full connection string.
type Config struct {
	Server   string
	Port     int
	Database string
	User     string
	Password string
	Encrypt  bool
}

// URL renders the config as a sqlserver:// connection string.
func (c Config) URL() string {
	host := c.Server
	if c.Port > 0 {
		host = net.JoinHostPort(c.Server, strconv.Itoa(c.Port))
	}
	u := &url.URL{Scheme: "sqlserver", Host: host}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	q := url.Values{}
	if c.Database != "" {
		q.Set("database", c.Database)
	}
	if c.Encrypt {
		q.Set("encrypt", "true")
	} else {
		q.Set("encrypt", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Open opens an engine for the given config.
func Open(cfg Config) (*sqlengine.Engine, error) {
	return OpenURL(cfg.URL())
}

// OpenURL opens an engine for a full sqlserver:// connection string.
func OpenURL(rawURL string) (*sqlengine.Engine, error) {
	drv, err := praxsql.Open(dialect.MSSQL, rawURL)
	if err != nil {
		return nil, prax.NewDatabaseError(dialect.MSSQL, err)
	}
	return sqlengine.New(drv, sqlengine.WithErrorMapper(mapError)), nil
}

// Constraint-class server error numbers.
const (
	errUniqueConstraint = 2627
	errUniqueIndex      = 2601
	errConstraint       = 547
	errNullInsert       = 515
)

func mapError(err error) error {
	var me mssql.Error
	if !errors.As(err, &me) {
		return nil
	}
	switch me.Number {
	case errUniqueConstraint, errUniqueIndex, errConstraint, errNullInsert:
		return prax.NewConstraintError(me.Message, err)
	}
	return nil
}
