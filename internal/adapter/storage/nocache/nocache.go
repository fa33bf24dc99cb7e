// Package nocache is the fast tier used when Redis is not configured or not
// reachable at startup. Every read misses and every write is dropped.
package nocache

import (
	"context"
	"time"

	"casino-ledger/internal/core/ports"
)

// Store implements ports.CacheStore as a no-op.
type Store struct{}

func New() Store { return Store{} }

func (Store) Get(context.Context, string) ([]byte, error)              { return nil, nil }
func (Store) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Store) Delete(context.Context, string) error                     { return nil }
func (Store) Enabled() bool                                            { return false }

// RateLimitStore implements ports.RateLimitStore by allowing everything.
type RateLimitStore struct{}

func (RateLimitStore) Allow(_ context.Context, _ string, limit int64, _ time.Duration) (*ports.RateLimitResult, error) {
	return &ports.RateLimitResult{Allowed: true, Limit: limit, Remaining: limit}, nil
}
