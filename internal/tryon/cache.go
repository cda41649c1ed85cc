package tryon

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"tryon-api/internal/infra"
)

const (
	statusCachePrefix = "tryon:status:"
	resultCachePrefix = "tryon:result:"

	// Job state changes quickly, so the status view is cached briefly; a
	// completed result is immutable and can live much longer.
	statusCacheTTL = 5 * time.Second
	resultCacheTTL = 24 * time.Hour
)

// Cache stores normalized status responses and completed results in redis.
// Every operation is best-effort: a nil client or an unreachable backend
// degrades to "no cache" instead of surfacing an error.
type Cache struct {
	client *redis.Client
	logger infra.Logger
}

// NewCache wraps a redis client. client may be nil, which disables caching.
func NewCache(client *redis.Client, logger infra.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

func statusKey(requestID string) string { return statusCachePrefix + requestID }
func resultKey(requestID string) string { return resultCachePrefix + requestID }

// GetStatus returns the cached status view for a request, attaching the
// cached result when includeResult is set. A miss or backend failure
// returns nil.
func (c *Cache) GetStatus(ctx context.Context, requestID string, includeResult bool) *StatusResponse {
	if !c.enabled() {
		return nil
	}

	raw, err := c.client.Get(ctx, statusKey(requestID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("tryon cache: status read failed")
		}
		return nil
	}

	var status Response
	if err := json.Unmarshal(raw, &status); err != nil {
		c.logger.Warn().Err(err).Msg("tryon cache: status payload corrupt")
		return nil
	}

	resp := &StatusResponse{Response: status}
	if includeResult {
		resp.Result = c.GetResult(ctx, requestID)
	}
	return resp
}

// SetStatus writes the normalized status view with the short TTL.
func (c *Cache) SetStatus(ctx context.Context, resp *Response) {
	if !c.enabled() || resp == nil {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statusKey(resp.Job.ID), payload, statusCacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("tryon cache: status write failed")
	}
}

// GetResult returns the cached terminal payload, or nil.
func (c *Cache) GetResult(ctx context.Context, requestID string) *Result {
	if !c.enabled() {
		return nil
	}

	raw, err := c.client.Get(ctx, resultKey(requestID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("tryon cache: result read failed")
		}
		return nil
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.Warn().Err(err).Msg("tryon cache: result payload corrupt")
		return nil
	}
	return &result
}

// SetResult writes the terminal payload with the long TTL.
func (c *Cache) SetResult(ctx context.Context, requestID string, result *Result) {
	if !c.enabled() || result == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, resultKey(requestID), payload, resultCacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("tryon cache: result write failed")
	}
}

// Invalidate drops both cache entries for a request. Called when a status
// poll fails, since the local normalized view may now be stale.
func (c *Cache) Invalidate(ctx context.Context, requestID string) {
	if !c.enabled() {
		return
	}
	if err := c.client.Del(ctx, statusKey(requestID), resultKey(requestID)).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("tryon cache: invalidation failed")
	}
}
