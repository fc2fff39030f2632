package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vkarpov-dev/portfolio_analyzer/config"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/marketdata"
	"github.com/vkarpov-dev/portfolio_analyzer/internal/model"
	"github.com/vkarpov-dev/portfolio_analyzer/utils"
)

// MetricsKey builds the performance cache key. Like holdings keys it embeds the
// ledger fingerprint, so results for a superseded ledger are never served.
func MetricsKey(userID, metricType, fingerprint string, start, end time.Time) string {
	return fmt.Sprintf("metrics:%s:%s:%s:%s:%s",
		userID, metricType, fingerprint, marketdata.FormatDay(start), marketdata.FormatDay(end))
}

// MetricsCache memoizes performance results. The TTL is long (a day) because a
// performance run replays the whole ledger across a weekly grid.
type MetricsCache struct {
	memory *MemoryStore
	redis  *redis.Client
	cfg    *config.Config
}

func NewMetricsCache(memory *MemoryStore, redisClient *redis.Client, cfg *config.Config) *MetricsCache {
	return &MetricsCache{memory: memory, redis: redisClient, cfg: cfg}
}

func (c *MetricsCache) Get(ctx context.Context, userID, metricType, fingerprint string, start, end time.Time) (model.PerformanceResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	key := MetricsKey(userID, metricType, fingerprint, start, end)

	if value, ok := c.memory.Get(key); ok {
		if result, ok := value.(model.PerformanceResult); ok {
			return result, nil
		}
	}

	res, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.PerformanceResult{}, ErrCacheMiss
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return model.PerformanceResult{}, err
	}

	result := model.PerformanceResult{}
	if err = json.Unmarshal([]byte(res), &result); err != nil {
		slog.Error("can't unmarshall performance result from cache", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return model.PerformanceResult{}, errors.New("can't unmarshall performance result")
	}

	c.memory.Set(key, result, c.cfg.Cache.MetricsExpiration)

	return result, nil
}

func (c *MetricsCache) Set(ctx context.Context, userID, metricType, fingerprint string, start, end time.Time, result model.PerformanceResult) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	key := MetricsKey(userID, metricType, fingerprint, start, end)

	c.memory.Set(key, result, c.cfg.Cache.MetricsExpiration)

	payload, err := json.Marshal(result)
	if err != nil {
		slog.Error("can't marshall performance result for cache", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return errors.New("can't marshall performance result")
	}

	if err = c.redis.Set(ctx, key, payload, c.cfg.Cache.MetricsExpiration).Err(); err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	return nil
}
