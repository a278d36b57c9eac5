package cache

import (
	"testing"

	"github.com/labflow/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRedis points at a port nothing listens on
var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestAdvisoryLockFactory_Memory(t *testing.T) {
	lock, err := NewAdvisoryLockFactory(unreachableRedis).CreateLock(BackendMemory)
	require.NoError(t, err)
	defer lock.Close()

	assert.IsType(t, &InMemoryAdvisoryLock{}, lock)
}

func TestAdvisoryLockFactory_RedisFallsBack(t *testing.T) {
	lock, err := NewAdvisoryLockFactory(unreachableRedis).CreateLock(BackendRedis)
	require.NoError(t, err)
	defer lock.Close()

	assert.IsType(t, &InMemoryAdvisoryLock{}, lock)
}

func TestAdvisoryLockFactory_RedisRequired(t *testing.T) {
	_, err := NewAdvisoryLockFactory(unreachableRedis, WithInMemoryFallback(false)).CreateLock(BackendRedis)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis required for split guard")
}

func TestAdvisoryLockFactory_UnknownBackend(t *testing.T) {
	_, err := NewAdvisoryLockFactory(unreachableRedis).CreateLock("etcd")
	assert.EqualError(t, err, `unknown advisory lock backend "etcd"`)
}
