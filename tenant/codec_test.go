package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/prax"
)

func TestContextCodec(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		tc := Context{
			ID:         "acme",
			ShardKey:   "eu-1",
			Database:   "acme_prod",
			Schema:     "tenant_acme",
			Mode:       IsolationHybrid,
			Attributes: map[string]string{"plan": "pro", "region": "eu"},
		}
		b, err := MarshalContext(tc)
		require.NoError(t, err)
		got, err := UnmarshalContext(b)
		require.NoError(t, err)
		assert.Equal(t, tc, got)
	})
	t.Run("ZeroValueFields", func(t *testing.T) {
		b, err := MarshalContext(Context{ID: "solo"})
		require.NoError(t, err)
		got, err := UnmarshalContext(b)
		require.NoError(t, err)
		assert.Equal(t, Context{ID: "solo"}, got)
	})
	t.Run("VersionMismatch", func(t *testing.T) {
		b, err := msgpack.Marshal(&envelope{Version: 99, ID: "acme"})
		require.NoError(t, err)
		_, err = UnmarshalContext(b)
		require.Error(t, err)
		var serr *prax.SerializationError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "msgpack", serr.Format)
		assert.Contains(t, err.Error(), "version 99")
	})
	t.Run("Garbage", func(t *testing.T) {
		_, err := UnmarshalContext([]byte("\x00\x01not msgpack"))
		require.Error(t, err)
		assert.True(t, prax.IsSerializationError(err))
	})
}
