//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLocker_Integration(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	locker := NewRedisLocker(client)
	locker.retries = 2
	locker.retryBackoff = 10 * time.Millisecond

	unlock, err := locker.Lock(ctx, "product:p1", time.Minute)
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "product:p1", time.Minute)
	require.True(t, errors.Is(err, ErrLockHeld))

	other, err := locker.Lock(ctx, "product:p2", time.Minute)
	require.NoError(t, err)
	other()

	unlock()
	again, err := locker.Lock(ctx, "product:p1", time.Minute)
	require.NoError(t, err)
	again()
}

func TestRedisLocker_UnlockLeavesForeignLock(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	locker := NewRedisLocker(client)

	unlock, err := locker.Lock(ctx, "seller:s1", time.Minute)
	require.NoError(t, err)

	// Simulate expiry and takeover by another worker.
	require.NoError(t, client.Set(ctx, "row_lock:seller:s1", "someone-else", time.Minute).Err())
	unlock()

	v, err := client.Get(ctx, "row_lock:seller:s1").Result()
	require.NoError(t, err)
	require.Equal(t, "someone-else", v)
}
