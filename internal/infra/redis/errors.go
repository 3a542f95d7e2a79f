package redis

import "errors"

// ErrCacheMiss reports a miss on the typed cache layer.
var ErrCacheMiss = errors.New("cache: key not found")
