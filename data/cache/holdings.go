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

var ErrCacheMiss = errors.New("cache miss")

// HoldingsKey builds the holdings cache key. The ledger fingerprint is part of
// the key: a new upload changes the fingerprint, so stale snapshots are never
// read again and simply age out by TTL.
func HoldingsKey(userID, fingerprint string, date time.Time) string {
	return fmt.Sprintf("holdings:%s:%s:%s", userID, fingerprint, marketdata.FormatDay(date))
}

// HoldingsCache memoizes per-(user, date) holdings snapshots: in-process map
// backed by redis so warm results survive restarts. TTL is short because
// holdings change with every ledger upload.
type HoldingsCache struct {
	memory *MemoryStore
	redis  *redis.Client
	cfg    *config.Config
}

func NewHoldingsCache(memory *MemoryStore, redisClient *redis.Client, cfg *config.Config) *HoldingsCache {
	return &HoldingsCache{memory: memory, redis: redisClient, cfg: cfg}
}

func (c *HoldingsCache) Get(ctx context.Context, userID, fingerprint string, date time.Time) (model.Holdings, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	key := HoldingsKey(userID, fingerprint, date)

	if value, ok := c.memory.Get(key); ok {
		if holdings, ok := value.(model.Holdings); ok {
			return holdings, nil
		}
	}

	res, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return nil, err
	}

	holdings := model.Holdings{}
	if err = json.Unmarshal([]byte(res), &holdings); err != nil {
		slog.Error("can't unmarshall holdings from cache", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return nil, errors.New("can't unmarshall holdings")
	}

	c.memory.Set(key, holdings, c.cfg.Cache.HoldingsExpiration)

	return holdings, nil
}

func (c *HoldingsCache) Set(ctx context.Context, userID, fingerprint string, date time.Time, holdings model.Holdings) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	key := HoldingsKey(userID, fingerprint, date)

	c.memory.Set(key, holdings, c.cfg.Cache.HoldingsExpiration)

	payload, err := json.Marshal(holdings)
	if err != nil {
		slog.Error("can't marshall holdings for cache", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return errors.New("can't marshall holdings")
	}

	if err = c.redis.Set(ctx, key, payload, c.cfg.Cache.HoldingsExpiration).Err(); err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	return nil
}

// FlushUser drops every holdings snapshot for a user, covering callers that
// want invalidation ahead of TTL expiry.
func (c *HoldingsCache) FlushUser(ctx context.Context, userID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	pattern := fmt.Sprintf("holdings:%s:*", userID)

	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		c.memory.Delete(key)
		if err := c.redis.Del(ctx, key).Err(); err != nil {
			slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
			return err
		}
	}
	if err := iter.Err(); err != nil {
		slog.Error("failed on redis.Scan", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("pattern", pattern))
		return err
	}

	return nil
}
