//go:build integration

package cache

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a running Redis; set OFFCACHE_TEST_REDIS_ADDR to enable.
func redisStorage(t *testing.T) *RedisStorage {
	t.Helper()
	addr := os.Getenv("OFFCACHE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("OFFCACHE_TEST_REDIS_ADDR not set")
	}
	storage := NewRedisStorage(addr, "", 15)
	t.Cleanup(func() {
		names, _ := storage.Names()
		for _, name := range names {
			_ = storage.Delete(name)
		}
	})
	return storage
}

func TestRedisRoundtrip(t *testing.T) {
	storage := redisStorage(t)

	ns, err := storage.Open("app-v1")
	require.NoError(t, err)
	require.NoError(t, ns.Put("GET:/index.html", []byte("hello")))

	entry, ok, err := ns.Get("GET:/index.html")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), entry.Value)
	assert.False(t, entry.StoredAt.IsZero())
}

func TestRedisNamespaceSweep(t *testing.T) {
	storage := redisStorage(t)

	for _, name := range []string{"app-v0", "app-v1", "app-v1-api"} {
		ns, err := storage.Open(name)
		require.NoError(t, err)
		require.NoError(t, ns.Put("k", []byte(name)))
	}

	require.NoError(t, storage.Delete("app-v0"))

	names, err := storage.Names()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app-v1", "app-v1-api"}, names)
}
