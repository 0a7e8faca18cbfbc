package tenant

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/prax"
)

// codecVersion versions the snapshot envelope; bump when the layout
// changes so older processes reject instead of misreading.
const codecVersion = 1

// envelope is the wire layout of a context snapshot in the shared cache
// tier. It mirrors Context field by field so the public type carries no
// serialization tags.
type envelope struct {
	Version    int               `msgpack:"v"`
	ID         string            `msgpack:"id"`
	ShardKey   string            `msgpack:"shard,omitempty"`
	Database   string            `msgpack:"db,omitempty"`
	Schema     string            `msgpack:"schema,omitempty"`
	Mode       uint8             `msgpack:"mode"`
	Attributes map[string]string `msgpack:"attrs,omitempty"`
}

// MarshalContext encodes a context as a versioned msgpack snapshot for the
// shared byte-cache tier.
func MarshalContext(tc Context) ([]byte, error) {
	b, err := msgpack.Marshal(&envelope{
		Version:    codecVersion,
		ID:         string(tc.ID),
		ShardKey:   tc.ShardKey,
		Database:   tc.Database,
		Schema:     tc.Schema,
		Mode:       uint8(tc.Mode),
		Attributes: tc.Attributes,
	})
	if err != nil {
		return nil, prax.NewSerializationError("msgpack", err)
	}
	return b, nil
}

// UnmarshalContext decodes a snapshot produced by MarshalContext. Snapshots
// written under another codec version fail whole rather than decode
// partially.
func UnmarshalContext(b []byte) (Context, error) {
	var env envelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return Context{}, prax.NewSerializationError("msgpack", err)
	}
	if env.Version != codecVersion {
		return Context{}, prax.NewSerializationError("msgpack", fmt.Errorf("tenant snapshot version %d, want %d", env.Version, codecVersion))
	}
	return Context{
		ID:         ID(env.ID),
		ShardKey:   env.ShardKey,
		Database:   env.Database,
		Schema:     env.Schema,
		Mode:       IsolationMode(env.Mode),
		Attributes: env.Attributes,
	}, nil
}
