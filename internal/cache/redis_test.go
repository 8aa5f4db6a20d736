package cache

import (
	"context"
	"testing"
	"time"

	"tasks-api/internal/models"
	"tasks-api/internal/testutil"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutClientIsNoop(t *testing.T) {
	c := New(nil)
	assert.IsType(t, Noop{}, c)

	ctx := context.Background()
	c.Set(ctx, &models.Task{ID: 1, Title: "x"})
	c.Add(ctx, &models.Task{ID: 1, Title: "x"})
	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)
	c.Delete(ctx, 1)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "task:42", Key(42))
}

func TestRedisTaskCache(t *testing.T) {
	pool := testutil.DockerPool(t)
	resource := testutil.RunContainer(t, pool, "redis", "7-alpine", nil)

	var client *redis.Client
	require.NoError(t, pool.Retry(func() error {
		client = redis.NewClient(&redis.Options{Addr: resource.GetHostPort("6379/tcp")})
		return client.Ping(context.Background()).Err()
	}))
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	c := New(client)

	_, ok := c.Get(ctx, 7)
	assert.False(t, ok)

	desc := "two litres"
	d := models.NewDeadline(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	c.Set(ctx, &models.Task{ID: 7, Title: "Buy milk", Description: &desc, Deadline: &d, Completed: 1, Version: 3})

	got, ok := c.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, "Buy milk", got.Title)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)
	assert.Equal(t, "2025-01-01 09:00", got.Deadline.String())
	assert.Equal(t, 1, got.Completed)
	assert.Equal(t, 3, got.Version)

	ttl, err := client.TTL(ctx, Key(7)).Result()
	require.NoError(t, err)
	assert.InDelta(t, TTL.Seconds(), ttl.Seconds(), 5)

	c.Delete(ctx, 7)
	_, ok = c.Get(ctx, 7)
	assert.False(t, ok)
}

func TestRedisTaskCacheDropsGarbage(t *testing.T) {
	pool := testutil.DockerPool(t)
	resource := testutil.RunContainer(t, pool, "redis", "7-alpine", nil)

	var client *redis.Client
	require.NoError(t, pool.Retry(func() error {
		client = redis.NewClient(&redis.Options{Addr: resource.GetHostPort("6379/tcp")})
		return client.Ping(context.Background()).Err()
	}))
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, Key(9), "not json", time.Minute).Err())

	_, ok := New(client).Get(ctx, 9)
	assert.False(t, ok)
	assert.Zero(t, client.Exists(ctx, Key(9)).Val())
}

func TestRedisTaskCacheAddKeepsNewerEntry(t *testing.T) {
	pool := testutil.DockerPool(t)
	resource := testutil.RunContainer(t, pool, "redis", "7-alpine", nil)

	var client *redis.Client
	require.NoError(t, pool.Retry(func() error {
		client = redis.NewClient(&redis.Options{Addr: resource.GetHostPort("6379/tcp")})
		return client.Ping(context.Background()).Err()
	}))
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	c := New(client)

	// A reader that loaded version 1 finishes after a writer stored version 2.
	c.Set(ctx, &models.Task{ID: 5, Title: "new", Version: 2})
	c.Add(ctx, &models.Task{ID: 5, Title: "old", Version: 1})

	got, ok := c.Get(ctx, 5)
	require.True(t, ok)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, 2, got.Version)

	c.Delete(ctx, 5)
	c.Add(ctx, &models.Task{ID: 5, Title: "filled", Version: 2})
	got, ok = c.Get(ctx, 5)
	require.True(t, ok)
	assert.Equal(t, "filled", got.Title)

	ttl, err := client.TTL(ctx, Key(5)).Result()
	require.NoError(t, err)
	assert.InDelta(t, TTL.Seconds(), ttl.Seconds(), 5)
}
