// Package prax provides the shared surface of the prax data-access layer:
// the error kinds used across all subsystems, the optional shared cache
// tier, and a thin Client handle over a dialect.Driver.
package prax

import (
	"context"

	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/dialect/sql"
)

// Client is a handle over a dialect.Driver shared by the prax subsystems.
// Query engines, the tenant runtime and the migration engine attach to the
// client's driver rather than to the client itself.
type Client struct {
	driver dialect.Driver
	log    func(context.Context, ...any)
	debug  bool
}

// Option configures a Client.
type Option func(*Client)

// Driver configures the client driver.
func Driver(driver dialect.Driver) Option {
	return func(c *Client) {
		c.driver = driver
	}
}

// Log sets the logging function used in debug mode.
func Log(fn func(context.Context, ...any)) Option {
	return func(c *Client) {
		c.log = fn
	}
}

// Debug enables statement logging on the client driver.
func Debug() Option {
	return func(c *Client) {
		c.debug = true
	}
}

// Open opens a database/sql connection for the given dialect and returns a
// client bound to it. The database/sql driver matching the dialect name must
// be registered by the caller, usually with a blank import. Document stores
// have no database/sql driver; build their engine in driver/mongo and attach
// it with the Driver option instead.
func Open(driverName, dsn string, opts ...Option) (*Client, error) {
	if err := dialect.Validate(driverName); err != nil {
		return nil, err
	}
	if driverName == dialect.Mongo {
		return nil, NewUnsupportedError(dialect.Mongo, "database/sql connections")
	}
	drv, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return NewClient(append(opts, Driver(drv))...), nil
}

// NewClient creates a client configured with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.debug {
		c.driver = c.debugDriver()
	}
	return c
}

// Debug returns a new client whose driver logs every statement before
// running it. Calling Debug on a debug client returns the client itself.
func (c *Client) Debug() *Client {
	if c.debug {
		return c
	}
	return &Client{driver: c.debugDriver(), log: c.log, debug: true}
}

// debugDriver wraps dialect/sql drivers with debug logging. Drivers from
// other packages pass through unchanged and should be wrapped at
// construction if logging is wanted.
func (c *Client) debugDriver() dialect.Driver {
	drv, ok := c.driver.(*sql.Driver)
	if !ok {
		return c.driver
	}
	if c.log != nil {
		return sql.NewDebugDriver(drv, sql.DebugWithLog(c.log))
	}
	return sql.NewDebugDriver(drv)
}

// Driver returns the underlying driver.
func (c *Client) Driver() dialect.Driver {
	return c.driver
}

// Dialect returns the dialect name of the connected database.
func (c *Client) Dialect() string {
	return c.driver.Dialect()
}

// Tx starts a transaction on the client driver.
func (c *Client) Tx(ctx context.Context) (dialect.Tx, error) {
	return c.driver.Tx(ctx)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.driver.Close()
}
