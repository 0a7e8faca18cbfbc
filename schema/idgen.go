package schema

import (
	crand "crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lucsky/cuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/oklog/ulid/v2"
)

// IDGenerator produces a fresh identifier for a generated-id default.
type IDGenerator func() (string, error)

var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(crand.Reader, 0)
)

func newULID() (string, error) {
	ulidMu.Lock()
	defer ulidMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), ulidEntropy)
	if err != nil {
		return "", fmt.Errorf("prax: generate ulid: %w", err)
	}
	return id.String(), nil
}

var idGenerators = map[string]IDGenerator{
	"uuid": func() (string, error) {
		return uuid.NewString(), nil
	},
	"cuid": func() (string, error) {
		return cuid.New(), nil
	},
	// cuid2 shares the cuid generator; the two differ only upstream in the
	// source schema language.
	"cuid2": func() (string, error) {
		return cuid.New(), nil
	},
	"nanoid": func() (string, error) {
		id, err := gonanoid.New()
		if err != nil {
			return "", fmt.Errorf("prax: generate nanoid: %w", err)
		}
		return id, nil
	},
	"ulid": newULID,
}

// GeneratorFor returns the client-side generator for a @default function
// name. Functions that are evaluated by the database (now, autoincrement,
// dbgenerated) have no client-side generator and report ok == false.
func GeneratorFor(fn string) (IDGenerator, bool) {
	g, ok := idGenerators[fn]
	return g, ok
}

// GeneratorForKind returns the generator matching a generated-id scalar
// kind, for fields typed Uuid/Cuid/Cuid2/NanoId/Ulid whose default function
// is implied by the type.
func GeneratorForKind(k ScalarKind) (IDGenerator, bool) {
	switch k {
	case ScalarUUID:
		return idGenerators["uuid"], true
	case ScalarCUID:
		return idGenerators["cuid"], true
	case ScalarCUID2:
		return idGenerators["cuid2"], true
	case ScalarNanoID:
		return idGenerators["nanoid"], true
	case ScalarULID:
		return idGenerators["ulid"], true
	default:
		return nil, false
	}
}

// DatabaseGenerated reports whether a @default function is evaluated by the
// database rather than the client.
func DatabaseGenerated(fn string) bool {
	switch fn {
	case "now", "autoincrement", "dbgenerated":
		return true
	default:
		return false
	}
}

// DefaultSQL returns the SQL expression for a database-evaluated @default
// function. autoincrement and dbgenerated are rendered by the DDL generator
// as column attributes, not expressions, and report ok == false here.
func DefaultSQL(fn string) (string, bool) {
	if fn == "now" {
		return "CURRENT_TIMESTAMP", true
	}
	return "", false
}
