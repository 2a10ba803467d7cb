// Package cache holds the response caches used by the ranking engine and the
// LLM router. Entries live in scopes; invalidating a scope drops every entry
// in it at once.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values by scope and key.
type Cache interface {
	Get(ctx context.Context, scope, key string) ([]byte, bool, error)
	Set(ctx context.Context, scope, key string, value []byte, ttl time.Duration) error
	InvalidateScope(ctx context.Context, scope string) error

	// Generation returns the current generation of scope. Values written
	// with SetAt under an older generation are never returned by Get.
	Generation(ctx context.Context, scope string) (uint64, error)
	SetAt(ctx context.Context, scope string, gen uint64, key string, value []byte, ttl time.Duration) error
}
