package shared

import (
	"context"
	"time"
)

// AdvisoryLock grants short-lived exclusive claims on string keys
type AdvisoryLock interface {
	// TryLock claims key for ttl without blocking.
	// Returns the claim token and true if the key was free, false if it is held.
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)

	// Unlock releases key if it is still held with token
	Unlock(ctx context.Context, key, token string) error

	// Close closes the lock store and releases resources
	Close() error
}

// DefaultAdvisoryLockTTL bounds how long a crashed holder keeps a key claimed
const DefaultAdvisoryLockTTL = 15 * time.Minute
