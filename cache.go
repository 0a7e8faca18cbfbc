package prax

import (
	"context"
	"time"
)

// Cache is the interface for a shared byte-oriented cache tier. The tenant
// runtime uses it as an optional second level under its in-process cache
// (tenant-context snapshots encoded with msgpack), and the template cache
// uses it to share compiled SQL across processes.
// Users should implement this interface with their preferred caching solution
// (e.g., Redis, Memcached, in-memory).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey generates a cache key for a shared-tier entry.
type CacheKey struct {
	Kind   string // "tenant" or "template"
	Scope  string // tenant ID or template namespace
	Name   string // entry name within the scope
	Digest string // optional content digest for versioned entries
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	s := k.Kind + ":" + k.Scope + ":" + k.Name
	if k.Digest != "" {
		s += ":" + k.Digest
	}
	return s
}

// TenantKey returns the shared-tier key for a tenant-context snapshot.
func TenantKey(id string) CacheKey {
	return CacheKey{Kind: "tenant", Scope: id, Name: "context"}
}

// TemplateKey returns the shared-tier key for a compiled SQL template.
func TemplateKey(namespace, name, digest string) CacheKey {
	return CacheKey{Kind: "template", Scope: namespace, Name: name, Digest: digest}
}
