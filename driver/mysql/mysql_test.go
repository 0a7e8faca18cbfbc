package mysql

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/prax"
)

func TestOpen(t *testing.T) {
	t.Run("NormalizesDSN", func(t *testing.T) {
		e, err := Open("root:pass@tcp(localhost:3306)/prax")
		require.NoError(t, err)
		defer e.Close()
		assert.Equal(t, "mysql", e.Dialect())
	})
	t.Run("BadDSN", func(t *testing.T) {
		// No slash before the database name.
		_, err := Open("root:pass@tcp(localhost:3306)")
		require.True(t, prax.IsConfigError(err))
	})
}

func TestOpenConfigLeavesInputAlone(t *testing.T) {
	cfg := mysql.NewConfig()
	cfg.User = "root"
	cfg.Net = "tcp"
	cfg.Addr = "localhost:3306"
	cfg.DBName = "prax"
	e, err := OpenConfig(cfg)
	require.NoError(t, err)
	defer e.Close()
	assert.False(t, cfg.MultiStatements)
	assert.False(t, cfg.ParseTime)
}

func TestDSN(t *testing.T) {
	dsn := DSN("root", "secret", "db.internal:3306", "prax")
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "root", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.Equal(t, "db.internal:3306", cfg.Addr)
	assert.Equal(t, "prax", cfg.DBName)
}

func TestMapError(t *testing.T) {
	t.Run("DupEntry", func(t *testing.T) {
		src := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a8m' for key 'users.email'"}
		err := mapError(src)
		require.True(t, prax.IsConstraintError(err))
		assert.ErrorIs(t, err, src)
	})
	t.Run("ForeignKey", func(t *testing.T) {
		err := mapError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})
		require.True(t, prax.IsConstraintError(err))
	})
	t.Run("Unrecognized", func(t *testing.T) {
		assert.Nil(t, mapError(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}))
		assert.Nil(t, mapError(errors.New("plain")))
	})
}
