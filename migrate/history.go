package migrate

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/dialect/sql"
)

// DefaultHistoryTable is the table recording applied migrations.
const DefaultHistoryTable = "_prax_migrations"

// AppliedMigration is one row of the migration history.
type AppliedMigration struct {
	ID         string
	Checksum   string
	AppliedAt  time.Time
	DurationMs int64
}

// UnlockFunc releases the migration lock. It must be called exactly once
// and is safe to defer; implementations release even when the context that
// acquired the lock is gone.
type UnlockFunc func() error

// History is the repository of applied migrations. Implementations must
// back Lock with a database-enforced lock so that concurrent migrators on
// the same database serialize, whichever host they run on.
type History interface {
	// Initialize creates the history storage when absent.
	Initialize(ctx context.Context) error
	// Applied returns every recorded migration in id order.
	Applied(ctx context.Context) ([]AppliedMigration, error)
	// LastApplied returns the most recently applied migration, or nil when
	// the history is empty.
	LastApplied(ctx context.Context) (*AppliedMigration, error)
	// RecordApplied inserts a history row for an applied migration.
	RecordApplied(ctx context.Context, id, checksum string, durationMs int64) error
	// RecordRollback removes the history row of a rolled-back migration.
	RecordRollback(ctx context.Context, id string) error
	// Lock acquires the migration lock, blocking until it is granted.
	Lock(ctx context.Context) (UnlockFunc, error)
}

// SQLHistory implements History over a SQL driver. The lock uses the
// dialect's server-side advisory mechanism where one exists; on SQLite it
// holds a write transaction on a singleton lock row instead, which excludes
// other writers for the lock's lifetime.
type SQLHistory struct {
	drv   dialect.Driver
	table string
}

// HistoryOption configures a SQLHistory.
type HistoryOption func(*SQLHistory)

// WithTable overrides the history table name.
func WithTable(name string) HistoryOption {
	return func(h *SQLHistory) { h.table = name }
}

// NewSQLHistory returns a SQLHistory on the given driver.
func NewSQLHistory(drv dialect.Driver, opts ...HistoryOption) *SQLHistory {
	h := &SQLHistory{drv: drv, table: DefaultHistoryTable}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *SQLHistory) quote(ident string) string {
	return dialect.Quote(h.drv.Dialect(), ident)
}

func (h *SQLHistory) placeholder(i int) string {
	return dialect.Placeholder(h.drv.Dialect(), i)
}

// Initialize creates the history table if absent. Timestamps are stored as
// unix milliseconds so every dialect scans them the same way.
func (h *SQLHistory) Initialize(ctx context.Context) error {
	idType := "VARCHAR(255)"
	switch h.drv.Dialect() {
	case dialect.SQLite:
		idType = "TEXT"
	case dialect.MSSQL:
		idType = "NVARCHAR(255)"
	}
	columns := fmt.Sprintf(
		"%s %s PRIMARY KEY, %s VARCHAR(64) NOT NULL, %s BIGINT NOT NULL, %s BIGINT NOT NULL DEFAULT 0",
		h.quote("id"), idType, h.quote("checksum"), h.quote("applied_at"), h.quote("duration_ms"),
	)
	var stmt string
	if h.drv.Dialect() == dialect.MSSQL {
		stmt = fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)", h.table, h.quote(h.table), columns)
	} else {
		stmt = fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", h.quote(h.table), columns)
	}
	if err := h.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
		return fmt.Errorf("prax: initializing migration history: %w", err)
	}
	return nil
}

// Applied returns the history rows in id order.
func (h *SQLHistory) Applied(ctx context.Context) ([]AppliedMigration, error) {
	query := fmt.Sprintf(
		"SELECT %s, %s, %s, %s FROM %s ORDER BY %s",
		h.quote("id"), h.quote("checksum"), h.quote("applied_at"), h.quote("duration_ms"),
		h.quote(h.table), h.quote("id"),
	)
	rows := &sql.Rows{}
	if err := h.drv.Query(ctx, query, []any{}, rows); err != nil {
		return nil, fmt.Errorf("prax: reading migration history: %w", err)
	}
	defer rows.Close()
	var applied []AppliedMigration
	for rows.Next() {
		var (
			m  AppliedMigration
			at int64
		)
		if err := rows.Scan(&m.ID, &m.Checksum, &at, &m.DurationMs); err != nil {
			return nil, fmt.Errorf("prax: scanning migration history: %w", err)
		}
		m.AppliedAt = time.UnixMilli(at)
		applied = append(applied, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prax: reading migration history: %w", err)
	}
	return applied, nil
}

// LastApplied returns the most recently applied migration by id order.
func (h *SQLHistory) LastApplied(ctx context.Context) (*AppliedMigration, error) {
	applied, err := h.Applied(ctx)
	if err != nil {
		return nil, err
	}
	if len(applied) == 0 {
		return nil, nil
	}
	return &applied[len(applied)-1], nil
}

// RecordApplied inserts one history row.
func (h *SQLHistory) RecordApplied(ctx context.Context, id, checksum string, durationMs int64) error {
	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s, %s, %s, %s) VALUES (%s, %s, %s, %s)",
		h.quote(h.table),
		h.quote("id"), h.quote("checksum"), h.quote("applied_at"), h.quote("duration_ms"),
		h.placeholder(1), h.placeholder(2), h.placeholder(3), h.placeholder(4),
	)
	args := []any{id, checksum, time.Now().UnixMilli(), durationMs}
	if err := h.drv.Exec(ctx, stmt, args, nil); err != nil {
		return fmt.Errorf("prax: recording migration %s: %w", id, err)
	}
	return nil
}

// RecordRollback deletes the history row of id.
func (h *SQLHistory) RecordRollback(ctx context.Context, id string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", h.quote(h.table), h.quote("id"), h.placeholder(1))
	if err := h.drv.Exec(ctx, stmt, []any{id}, nil); err != nil {
		return fmt.Errorf("prax: recording rollback of %s: %w", id, err)
	}
	return nil
}

// Lock acquires the migration lock for this history's table. The returned
// UnlockFunc releases on a background context, so a canceled caller still
// frees the lock.
func (h *SQLHistory) Lock(ctx context.Context) (UnlockFunc, error) {
	switch h.drv.Dialect() {
	case dialect.Postgres, dialect.DuckDB:
		return h.lockPostgres(ctx)
	case dialect.MySQL:
		return h.lockMySQL(ctx)
	case dialect.MSSQL:
		return h.lockMSSQL(ctx)
	default:
		return h.lockSQLite(ctx)
	}
}

// lockKey derives the advisory lock key from the history table name, so
// histories on distinct tables do not contend.
func (h *SQLHistory) lockKey() int64 {
	hash := fnv.New64a()
	hash.Write([]byte("prax:" + h.table))
	return int64(hash.Sum64())
}

func (h *SQLHistory) lockName() string {
	return "prax:" + h.table
}

func (h *SQLHistory) lockPostgres(ctx context.Context) (UnlockFunc, error) {
	key := h.lockKey()
	if err := h.drv.Exec(ctx, "SELECT pg_advisory_lock($1)", []any{key}, nil); err != nil {
		return nil, fmt.Errorf("prax: acquiring migration lock: %w", err)
	}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.drv.Exec(ctx, "SELECT pg_advisory_unlock($1)", []any{key}, nil); err != nil {
			return fmt.Errorf("prax: releasing migration lock: %w", err)
		}
		return nil
	}, nil
}

func (h *SQLHistory) lockMySQL(ctx context.Context) (UnlockFunc, error) {
	name := h.lockName()
	rows := &sql.Rows{}
	if err := h.drv.Query(ctx, "SELECT GET_LOCK(?, -1)", []any{name}, rows); err != nil {
		return nil, fmt.Errorf("prax: acquiring migration lock: %w", err)
	}
	acquired, err := scanLockResult(rows)
	if err != nil {
		return nil, fmt.Errorf("prax: acquiring migration lock: %w", err)
	}
	if !acquired {
		return nil, ErrLocked
	}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.drv.Exec(ctx, "SELECT RELEASE_LOCK(?)", []any{name}, nil); err != nil {
			return fmt.Errorf("prax: releasing migration lock: %w", err)
		}
		return nil
	}, nil
}

func (h *SQLHistory) lockMSSQL(ctx context.Context) (UnlockFunc, error) {
	name := h.lockName()
	rows := &sql.Rows{}
	query := "DECLARE @r INT; EXEC @r = sp_getapplock @Resource = ?, @LockMode = 'Exclusive', @LockOwner = 'Session', @LockTimeout = -1; SELECT @r"
	if err := h.drv.Query(ctx, query, []any{name}, rows); err != nil {
		return nil, fmt.Errorf("prax: acquiring migration lock: %w", err)
	}
	granted, err := scanLockStatus(rows)
	if err != nil {
		return nil, fmt.Errorf("prax: acquiring migration lock: %w", err)
	}
	if !granted {
		return nil, ErrLocked
	}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stmt := "EXEC sp_releaseapplock @Resource = ?, @LockOwner = 'Session'"
		if err := h.drv.Exec(ctx, stmt, []any{name}, nil); err != nil {
			return fmt.Errorf("prax: releasing migration lock: %w", err)
		}
		return nil
	}, nil
}

// lockSQLite holds an open write transaction on a singleton lock row.
// SQLite allows one writer per database, so the transaction itself is the
// lock; Unlock commits it.
func (h *SQLHistory) lockSQLite(ctx context.Context) (UnlockFunc, error) {
	lockTable := h.quote(h.table + "_lock")
	create := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s INTEGER PRIMARY KEY CHECK (%s = 1), %s BIGINT)",
		lockTable, h.quote("id"), h.quote("id"), h.quote("locked_at"),
	)
	if err := h.drv.Exec(ctx, create, []any{}, nil); err != nil {
		return nil, fmt.Errorf("prax: acquiring migration lock: %w", err)
	}
	seed := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s, %s) VALUES (1, 0)", lockTable, h.quote("id"), h.quote("locked_at"))
	if err := h.drv.Exec(ctx, seed, []any{}, nil); err != nil {
		return nil, fmt.Errorf("prax: acquiring migration lock: %w", err)
	}
	tx, err := h.drv.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("prax: acquiring migration lock: %w", err)
	}
	touch := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = 1", lockTable, h.quote("locked_at"), h.placeholder(1), h.quote("id"))
	if err := tx.Exec(ctx, touch, []any{time.Now().UnixMilli()}, nil); err != nil {
		err = errors.Join(err, tx.Rollback())
		return nil, fmt.Errorf("prax: acquiring migration lock: %w", err)
	}
	return func() error {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("prax: releasing migration lock: %w", err)
		}
		return nil
	}, nil
}

// scanLockResult reads a single 0/1 cell, the GET_LOCK convention.
func scanLockResult(rows *sql.Rows) (bool, error) {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return false, err
		}
		return false, errors.New("no lock result")
	}
	var granted sql.NullInt64
	if err := rows.Scan(&granted); err != nil {
		return false, err
	}
	return granted.Valid && granted.Int64 == 1, nil
}

// scanLockStatus reads an sp_getapplock return value: zero and above means
// granted.
func scanLockStatus(rows *sql.Rows) (bool, error) {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return false, err
		}
		return false, errors.New("no lock result")
	}
	var status int64
	if err := rows.Scan(&status); err != nil {
		return false, err
	}
	return status >= 0, nil
}

var _ History = (*SQLHistory)(nil)

// historySummary formats applied rows for log output.
func historySummary(applied []AppliedMigration) string {
	if len(applied) == 0 {
		return "empty"
	}
	ids := make([]string, len(applied))
	for i, m := range applied {
		ids[i] = m.ID
	}
	return strings.Join(ids, ", ")
}
