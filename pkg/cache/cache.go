// Package cache holds fetched dataset results keyed by source and fetch
// parameters, each entry carrying the time it was fetched. Invalidation is
// an explicit operation exposed to the API layer; there is no implicit
// process-wide memoization.
package cache

import (
	"context"
	"strings"
	"time"
)

// Entry is one cached fetch result.
type Entry struct {
	Payload   []byte    `json:"payload"` // JSON-encoded record list
	FetchedAt time.Time `json:"fetchedAt"`
}

// Store is the cache contract shared by the in-memory and Redis backends.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool, error)
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Ping(ctx context.Context) error
	Close() error
}

// Key builds a cache key from a source name and its fetch parameter tuple.
func Key(source string, params ...string) string {
	parts := append([]string{"datasets", source}, params...)
	return strings.Join(parts, ":")
}

// SourcePrefix is the key prefix covering every entry of one source.
func SourcePrefix(source string) string {
	return "datasets:" + source + ":"
}
