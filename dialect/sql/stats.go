package sql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/prax/dialect"
)

// QueryStats accumulates execution counters for a StatsDriver. All
// methods are safe for concurrent use.
type QueryStats struct {
	queries atomic.Int64
	execs   atomic.Int64
	nanos   atomic.Int64
	slow    atomic.Int64
	errs    atomic.Int64
}

// Stats returns a point-in-time snapshot of the counters.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.queries.Load(),
		TotalExecs:    s.execs.Load(),
		TotalDuration: time.Duration(s.nanos.Load()),
		SlowQueries:   s.slow.Load(),
		Errors:        s.errs.Load(),
	}
}

// Reset zeroes the counters.
func (s *QueryStats) Reset() {
	s.queries.Store(0)
	s.execs.Store(0)
	s.nanos.Store(0)
	s.slow.Store(0)
	s.errs.Store(0)
}

// StatsSnapshot is one reading of a QueryStats.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the mean statement duration across queries
// and execs, or zero when nothing ran.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	n := s.TotalQueries + s.TotalExecs
	if n == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(n)
}

// String renders the snapshot on one line for periodic log output.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook receives every statement whose duration exceeded the slow
// threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsDriver decorates a Driver with counters and slow statement
// detection. Statements run unchanged; the decorator only measures.
//
//	drv, _ := sql.Open("postgres", dsn)
//	sdrv := sql.NewStatsDriver(drv, sql.WithSlowThreshold(200*time.Millisecond), sql.WithSlowQueryLog())
//	client := prax.NewClient(prax.Driver(sdrv))
//	...
//	fmt.Println(sdrv.QueryStats().Stats())
type StatsDriver struct {
	*Driver
	stats     *QueryStats
	threshold atomic.Int64 // nanoseconds
	slowHook  SlowQueryHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement counts as
// slow. The default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold.Store(int64(d))
	}
}

// WithSlowQueryHook installs the callback invoked for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog reports slow statements through slog at warn level.
func WithSlowQueryLog() StatsOption {
	return WithSlowQueryHook(func(_ context.Context, query string, args []any, duration time.Duration) {
		slog.Warn("slow query", "duration", duration, "query", query, "args", args)
	})
}

// NewStatsDriver wraps the driver with a fresh set of counters.
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, stats: &QueryStats{}}
	s.threshold.Store(int64(100 * time.Millisecond))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the counters shared by the driver and its
// transactions.
func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

// SlowThreshold returns the current slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	return time.Duration(d.threshold.Load())
}

// SetSlowThreshold changes the threshold at runtime.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.threshold.Store(int64(threshold))
}

// Query runs the query and records its duration.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, &d.stats.queries, query, args, start, err)
	return err
}

// Exec runs the statement and records its duration.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, &d.stats.execs, query, args, start, err)
	return err
}

func (d *StatsDriver) record(ctx context.Context, counter *atomic.Int64, query string, args any, start time.Time, err error) {
	duration := time.Since(start)
	counter.Add(1)
	d.stats.nanos.Add(int64(duration))
	if err != nil {
		d.stats.errs.Add(1)
	}
	if duration <= d.SlowThreshold() {
		return
	}
	d.stats.slow.Add(1)
	if d.slowHook != nil {
		argv, _ := args.([]any)
		d.slowHook(ctx, query, argv, duration)
	}
}

// Tx starts a transaction whose statements feed the same counters.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsTx{Tx: tx, driver: d}, nil
}

// StatsTx records statement durations inside a transaction.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

// Query runs the query on the transaction and records its duration.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record(ctx, &tx.driver.stats.queries, query, args, start, err)
	return err
}

// Exec runs the statement on the transaction and records its duration.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.record(ctx, &tx.driver.stats.execs, query, args, start, err)
	return err
}

// DebugDriver decorates a Driver, logging every statement before it runs.
// Client.Debug wraps with it.
type DebugDriver struct {
	*Driver
	logf func(context.Context, ...any)
}

// DebugOption configures a DebugDriver.
type DebugOption func(*DebugDriver)

// DebugWithLog replaces the default slog output with a custom sink.
func DebugWithLog(logFunc func(context.Context, ...any)) DebugOption {
	return func(d *DebugDriver) {
		d.logf = logFunc
	}
}

// NewDebugDriver wraps the driver with statement logging.
func NewDebugDriver(drv *Driver, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{
		Driver: drv,
		logf: func(_ context.Context, v ...any) {
			slog.Info(fmt.Sprint(v...))
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Query logs the query, then runs it.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.logf(ctx, fmt.Sprintf("query: %s args: %v", query, args))
	return d.Driver.Query(ctx, query, args, v)
}

// Exec logs the statement, then runs it.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.logf(ctx, fmt.Sprintf("exec: %s args: %v", query, args))
	return d.Driver.Exec(ctx, query, args, v)
}

// Tx starts a transaction whose statements and lifecycle are logged.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	d.logf(ctx, "begin transaction")
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &DebugTx{Tx: tx, logf: d.logf}, nil
}

// DebugTx logs the statements of one transaction.
type DebugTx struct {
	dialect.Tx
	logf func(context.Context, ...any)
}

// Query logs the query, then runs it on the transaction.
func (tx *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	tx.logf(ctx, fmt.Sprintf("tx query: %s args: %v", query, args))
	return tx.Tx.Query(ctx, query, args, v)
}

// Exec logs the statement, then runs it on the transaction.
func (tx *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	tx.logf(ctx, fmt.Sprintf("tx exec: %s args: %v", query, args))
	return tx.Tx.Exec(ctx, query, args, v)
}

// Commit logs and commits the transaction.
func (tx *DebugTx) Commit() error {
	tx.logf(context.Background(), "commit transaction")
	return tx.Tx.Commit()
}

// Rollback logs and rolls the transaction back.
func (tx *DebugTx) Rollback() error {
	tx.logf(context.Background(), "rollback transaction")
	return tx.Tx.Rollback()
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*DebugTx)(nil)
)

// OpenWithStats opens a connection already wrapped with counters. The
// returned QueryStats is the one the driver records into, handy for a
// periodic stats log:
//
//	drv, stats, err := sql.OpenWithStats("postgres", dsn, sql.WithSlowQueryLog())
//	go func() {
//		for range time.Tick(time.Minute) {
//			slog.Info("db", "stats", stats.Stats())
//		}
//	}()
func OpenWithStats(driverName, source string, opts ...StatsOption) (*StatsDriver, *QueryStats, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, nil, err
	}
	sdrv := NewStatsDriver(OpenDB(driverName, db), opts...)
	return sdrv, sdrv.QueryStats(), nil
}
