package ratelimit

import (
	"context"
	"time"
)

// Store records hits per key over a sliding window.
type Store interface {
	// Record adds a hit for key, drops hits older than window and returns
	// how many remain.
	Record(ctx context.Context, key string, window time.Duration) (count int64, err error)
}
