package sql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/prax/dialect"
)

func TestStatsDriverCounters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.Postgres, db))

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())

	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, drv.Exec(context.Background(), "UPDATE users SET name = $1", []any{"A"}, nil))

	mock.ExpectQuery("SELECT boom").WillReturnError(assert.AnError)
	require.Error(t, drv.Query(context.Background(), "SELECT boom", []any{}, &Rows{}))

	s := drv.QueryStats().Stats()
	assert.Equal(t, int64(2), s.TotalQueries)
	assert.Equal(t, int64(1), s.TotalExecs)
	assert.Equal(t, int64(1), s.Errors)
	assert.Greater(t, s.TotalDuration, time.Duration(0))
	require.NoError(t, mock.ExpectationsWereMet())

	drv.QueryStats().Reset()
	assert.Equal(t, StatsSnapshot{}, drv.QueryStats().Stats())
}

func TestStatsDriverSlowHook(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var (
		gotQuery string
		gotArgs  []any
	)
	drv := NewStatsDriver(OpenDB(dialect.Postgres, db),
		WithSlowThreshold(0),
		WithSlowQueryHook(func(_ context.Context, query string, args []any, duration time.Duration) {
			gotQuery = query
			gotArgs = args
			assert.Greater(t, duration, time.Duration(0))
		}),
	)

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{42}, rows))
	require.NoError(t, rows.Close())

	assert.Equal(t, "SELECT 1", gotQuery)
	assert.Equal(t, []any{42}, gotArgs)
	assert.Equal(t, int64(1), drv.QueryStats().Stats().SlowQueries)
}

func TestStatsDriverThreshold(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.Postgres, db))
	assert.Equal(t, 100*time.Millisecond, drv.SlowThreshold())

	drv.SetSlowThreshold(time.Second)
	assert.Equal(t, time.Second, drv.SlowThreshold())
}

func TestStatsDriverTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.Postgres, db))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	rows := &Rows{}
	require.NoError(t, tx.Query(context.Background(), "SELECT 1", []any{}, rows))
	require.NoError(t, tx.Exec(context.Background(), "INSERT INTO users DEFAULT VALUES", []any{}, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.QueryStats().Stats()
	assert.Equal(t, int64(1), s.TotalQueries)
	assert.Equal(t, int64(1), s.TotalExecs)
}

func TestStatsSnapshot(t *testing.T) {
	s := StatsSnapshot{
		TotalQueries:  2,
		TotalExecs:    1,
		TotalDuration: 3 * time.Second,
		SlowQueries:   1,
	}
	assert.Equal(t, time.Second, s.AvgQueryDuration())
	assert.Equal(t, "queries=2 execs=1 duration=3s avg=1s slow=1 errors=0", s.String())

	assert.Equal(t, time.Duration(0), StatsSnapshot{}.AvgQueryDuration())
}

func TestOpenWithStats(t *testing.T) {
	db, mock, err := sqlmock.NewWithDSN("stats_dsn")
	require.NoError(t, err)
	defer db.Close()

	drv, stats, err := OpenWithStats("sqlmock", "stats_dsn", WithSlowThreshold(time.Minute))
	require.NoError(t, err)
	defer drv.Close()

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())

	assert.Equal(t, int64(1), stats.Stats().TotalQueries)
	assert.Equal(t, time.Minute, drv.SlowThreshold())
}
