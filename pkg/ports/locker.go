package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock acquired by a Locker.
type UnlockFunc func(ctx context.Context) error

// Locker serializes work on a shared resource, such as an export output directory.
type Locker interface {
	// Lock blocks until the lock for key is held or ctx is done.
	// ttl bounds how long a lock outlives a crashed holder; backends without expiry ignore it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
