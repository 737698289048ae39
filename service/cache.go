// file: service/cache.go

package service

import (
	"context"
	"encoding/json"
	"go-bank-ledger/logger"
	"go-bank-ledger/metrics"
	"go-bank-ledger/model"
	"time"

	"github.com/redis/go-redis/v9"
)

const penaltySummaryKey = "penalties:summary"

// ICacheClient defines the contract for a cache client. *redis.Client satisfies it.
type ICacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// summaryCache holds the aggregated penalty summary. Balances and loans are
// never cached; they are always read from the locked rows.
type summaryCache struct {
	client  ICacheClient
	ttl     time.Duration
	metrics *metrics.Metrics
}

func (c *summaryCache) get(ctx context.Context) (*model.PenaltySummary, bool) {
	if c.client == nil {
		return nil, false
	}
	cached, err := c.client.Get(ctx, penaltySummaryKey).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).Warn("Failed to read penalty summary from cache")
		}
		c.metrics.IncrCacheMiss("penalty_summary")
		return nil, false
	}
	var summary model.PenaltySummary
	if err := json.Unmarshal([]byte(cached), &summary); err != nil {
		c.metrics.IncrCacheMiss("penalty_summary")
		return nil, false
	}
	c.metrics.IncrCacheHit("penalty_summary")
	return &summary, true
}

func (c *summaryCache) set(ctx context.Context, summary *model.PenaltySummary) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, penaltySummaryKey, data, c.ttl).Err(); err != nil {
		logger.Log.WithError(err).Warn("Failed to store penalty summary in cache")
	}
}

func (c *summaryCache) invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, penaltySummaryKey).Err(); err != nil {
		logger.Log.WithError(err).Warn("Failed to invalidate penalty summary cache")
	}
}
