// Package cache provides a Redis-backed cache for question answers so
// repeated questions skip the embedding and completion round-trips.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"dcia/internal/errors"
	"dcia/internal/models"
	"github.com/go-redis/redis/v8"
)

const keyPrefix = "dcia:answer:"

type AnswerCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewAnswerCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *AnswerCache {
	return &AnswerCache{
		client: client,
		ttl:    ttl,
		logger: logger.With("source", "cache.AnswerCache"),
	}
}

// Get returns the cached answer for the question. The second return value
// reports whether there was a cache hit. Cache failures are logged and
// reported as misses so answering never fails on a broken cache.
func (c *AnswerCache) Get(ctx context.Context, question string) (models.Answer, bool) {
	payload, err := c.client.Get(ctx, cacheKey(question)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "answer cache read failed", errors.SlogError(err))
		}
		return models.Answer{}, false
	}
	var answer models.Answer
	if err = json.Unmarshal(payload, &answer); err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "discarding malformed cached answer", errors.SlogError(err))
		return models.Answer{}, false
	}
	return answer, true
}

// Set stores the answer for the question. Failures are logged, not returned.
func (c *AnswerCache) Set(ctx context.Context, question string, answer models.Answer) {
	payload, err := json.Marshal(answer)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "marshal answer for cache", errors.SlogError(err))
		return
	}
	if err = c.client.Set(ctx, cacheKey(question), payload, c.ttl).Err(); err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "answer cache write failed", errors.SlogError(err))
	}
}

// cacheKey normalizes the question so trivially different phrasings of the
// same question share an entry.
func cacheKey(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	digest := sha256.Sum256([]byte(normalized))
	return keyPrefix + hex.EncodeToString(digest[:])
}
