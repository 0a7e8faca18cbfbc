package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "", dsn(""))
	assert.Equal(t, "analytics.db", dsn("analytics.db"))
	assert.Equal(t, "analytics.db?access_mode=read_only", dsn("analytics.db", WithReadOnly()))
	assert.Equal(t, "?memory_limit=2GB&threads=4", dsn("", WithThreads(4), WithMemoryLimit("2GB")))
}
