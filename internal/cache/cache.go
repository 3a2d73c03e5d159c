// Package cache memoizes completed answers keyed by query text and session.
// Stores never surface errors to callers: faults read as a miss or a
// failed write.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ziadkadry99/shopagent/internal/agent"
)

const (
	DefaultMaxSize       = 1000
	DefaultEvictionBatch = 100
	DefaultTTL           = time.Hour
)

// Store is a TTL-bounded answer cache with capacity-triggered eviction of
// the oldest entries by insertion time.
type Store interface {
	// Get returns the live value for key. An expired entry is purged and
	// reported absent.
	Get(ctx context.Context, key string) (agent.Answer, bool)

	// Set stores value for ttl and reports whether it was stored.
	Set(ctx context.Context, key string, value agent.Answer, ttl time.Duration) bool

	// Clear drops every entry.
	Clear(ctx context.Context)

	// Len returns the number of stored entries, live or not yet purged.
	Len(ctx context.Context) int

	Close() error
}

// Key derives the cache key for a query within a session.
func Key(text, session string) string {
	sum := sha256.Sum256([]byte(text))
	return "query:" + hex.EncodeToString(sum[:]) + ":" + session
}

// Options configures capacity behavior shared by all stores.
type Options struct {
	MaxSize       int
	EvictionBatch int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.EvictionBatch <= 0 {
		o.EvictionBatch = DefaultEvictionBatch
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func alive(storedAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(storedAt) < ttl
}
