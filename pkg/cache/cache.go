package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss  = errors.New("cache: key not found")
	ErrInvalidKey = errors.New("cache: invalid key")
)

// Entry describes one stored key.
type Entry struct {
	Key  string
	Size int64
}

// Service defines cache operations interface.
//
// Keys are colon separated ("indicators:US:AAPL:1d"). Patterns use glob
// syntax where '*' matches within a single segment on every backend, so
// callers spell out one wildcard per segment.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Scan(ctx context.Context, pattern string) ([]Entry, error)
	Close() error
}

// TotalSize sums entry sizes.
func TotalSize(entries []Entry) int64 {
	var n int64
	for _, e := range entries {
		n += e.Size
	}
	return n
}
