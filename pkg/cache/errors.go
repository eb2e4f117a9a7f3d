package cache

import "errors"

var (
	// ErrCacheMiss is returned when a fingerprint is not cached
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidCacheKey is returned for an empty fingerprint
	ErrInvalidCacheKey = errors.New("invalid cache key")
)
