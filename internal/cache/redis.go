// Package cache keeps recently read tasks in redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tasks-api/internal/models"
	"tasks-api/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// TTL is how long a cached task lives.
const TTL = time.Hour

// TaskCache is a best-effort read cache. Failures are logged, never returned,
// so a broken cache only costs a database round trip.
//
// Writers call Set. Readers filling a miss call Add, which never replaces an
// entry, so a slow reader cannot put back a row a writer already replaced.
type TaskCache interface {
	Get(ctx context.Context, id int) (*models.Task, bool)
	Set(ctx context.Context, t *models.Task)
	Add(ctx context.Context, t *models.Task)
	Delete(ctx context.Context, id int)
}

// New returns a redis-backed cache, or a no-op cache when client is nil.
func New(client *redis.Client) TaskCache {
	if client == nil {
		return Noop{}
	}
	return &RedisTaskCache{client: client, ttl: TTL}
}

type RedisTaskCache struct {
	client *redis.Client
	ttl    time.Duration
}

func Key(id int) string {
	return fmt.Sprintf("task:%d", id)
}

func (c *RedisTaskCache) Get(ctx context.Context, id int) (*models.Task, bool) {
	raw, err := c.client.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logger.ErrorLogger.Error("Error reading task from cache", zap.Int("task_id", id), zap.Error(err))
		return nil, false
	}

	var t cachedTask
	if err := json.Unmarshal(raw, &t); err != nil {
		logger.ErrorLogger.Error("Error decoding cached task", zap.Int("task_id", id), zap.Error(err))
		c.Delete(ctx, id)
		return nil, false
	}
	return t.task(), true
}

func (c *RedisTaskCache) Set(ctx context.Context, t *models.Task) {
	raw, ok := encode(t)
	if !ok {
		return
	}
	if err := c.client.Set(ctx, Key(t.ID), raw, c.ttl).Err(); err != nil {
		logger.ErrorLogger.Error("Error caching task", zap.Int("task_id", t.ID), zap.Error(err))
	}
}

func (c *RedisTaskCache) Add(ctx context.Context, t *models.Task) {
	raw, ok := encode(t)
	if !ok {
		return
	}
	if err := c.client.SetNX(ctx, Key(t.ID), raw, c.ttl).Err(); err != nil {
		logger.ErrorLogger.Error("Error caching task", zap.Int("task_id", t.ID), zap.Error(err))
	}
}

func encode(t *models.Task) ([]byte, bool) {
	raw, err := json.Marshal(newCachedTask(t))
	if err != nil {
		logger.ErrorLogger.Error("Error encoding task for cache", zap.Int("task_id", t.ID), zap.Error(err))
		return nil, false
	}
	return raw, true
}

func (c *RedisTaskCache) Delete(ctx context.Context, id int) {
	if err := c.client.Del(ctx, Key(id)).Err(); err != nil {
		logger.ErrorLogger.Error("Error evicting cached task", zap.Int("task_id", id), zap.Error(err))
	}
}

// cachedTask keeps the version that models.Task hides from API clients.
type cachedTask struct {
	models.Task
	Version int `json:"version"`
}

func newCachedTask(t *models.Task) cachedTask {
	return cachedTask{Task: *t, Version: t.Version}
}

func (c cachedTask) task() *models.Task {
	t := c.Task
	t.Version = c.Version
	return &t
}

// Noop is used when redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, int) (*models.Task, bool) { return nil, false }
func (Noop) Set(context.Context, *models.Task)             {}
func (Noop) Add(context.Context, *models.Task)             {}
func (Noop) Delete(context.Context, int)                   {}
