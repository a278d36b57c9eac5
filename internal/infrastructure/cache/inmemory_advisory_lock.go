// Package cache provides the advisory lock stores that guard work order
// splits, backed by Redis or an in-process map.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labflow/backend/internal/domain/shared"
)

// claim represents a held key with its token and expiration
type claim struct {
	token     string
	expiresAt time.Time
}

// InMemoryAdvisoryLock implements AdvisoryLock using an in-memory map.
// This is suitable for single-instance deployments and testing
type InMemoryAdvisoryLock struct {
	mu        sync.Mutex
	claims    map[string]claim
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryAdvisoryLock creates a new in-memory advisory lock store.
// It starts a background goroutine to drop expired claims
func NewInMemoryAdvisoryLock() *InMemoryAdvisoryLock {
	l := &InMemoryAdvisoryLock{
		claims:   make(map[string]claim),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// TryLock claims key for ttl if it is free or its previous claim has expired
func (l *InMemoryAdvisoryLock) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if c, exists := l.claims[key]; exists && now.Before(c.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.claims[key] = claim{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Unlock releases key only if token still owns it
func (l *InMemoryAdvisoryLock) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, exists := l.claims[key]; exists && c.token == token {
		delete(l.claims, key)
	}
	return nil
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times
func (l *InMemoryAdvisoryLock) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

func (l *InMemoryAdvisoryLock) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *InMemoryAdvisoryLock) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, c := range l.claims {
		if !now.Before(c.expiresAt) {
			delete(l.claims, key)
		}
	}
}

// Size returns the number of claims in the store (for testing/monitoring)
func (l *InMemoryAdvisoryLock) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.claims)
}

var _ shared.AdvisoryLock = (*InMemoryAdvisoryLock)(nil)
