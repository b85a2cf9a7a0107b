package experiment

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/ranking"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/resilience"
)

const keyPrefix = "scores:"

// KV is the part of pkg/redis.Client the cache needs.
type KV interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ScoreCache stores the ScoreMap of (engine, corpus, query) so repeated
// experiments over the same corpus skip scoring. Concurrent misses for one
// key compute once.
type ScoreCache struct {
	kv      KV
	ttl     time.Duration
	breaker *resilience.Breaker
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewScoreCache wraps kv. After repeated kv failures the cache stops
// calling kv for a while and every lookup is a miss.
func NewScoreCache(kv KV, ttl time.Duration) *ScoreCache {
	return &ScoreCache{
		kv:      kv,
		ttl:     ttl,
		breaker: resilience.NewBreaker("score-cache", resilience.BreakerConfig{FailureThreshold: 5, Cooldown: 30 * time.Second}),
		logger:  slog.Default().With("component", "score-cache"),
	}
}

func (c *ScoreCache) Get(ctx context.Context, engine, corpusHash, query string) (ranking.ScoreMap, bool) {
	key := buildKey(engine, corpusHash, query)
	var (
		scores ranking.ScoreMap
		found  bool
	)
	err := c.breaker.Do(func() error {
		err := c.kv.GetJSON(ctx, key, &scores)
		if pkgredis.IsNilError(err) {
			return nil
		}
		found = err == nil
		return err
	})
	if !found {
		c.logError("cache get failed", key, err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "engine", engine, "key", key)
	return scores, true
}

func (c *ScoreCache) Set(ctx context.Context, engine, corpusHash, query string, scores ranking.ScoreMap) {
	key := buildKey(engine, corpusHash, query)
	err := c.breaker.Do(func() error {
		return c.kv.SetJSON(ctx, key, scores, c.ttl)
	})
	c.logError("cache set failed", key, err)
}

func (c *ScoreCache) logError(msg, key string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, resilience.ErrBreakerOpen):
		c.logger.Debug(msg, "key", key, "error", err)
	default:
		c.logger.Error(msg, "key", key, "error", err)
	}
}

// GetOrCompute returns the cached scores or runs compute and caches its
// result. The boolean reports a cache hit. Cache failures degrade to
// computing.
func (c *ScoreCache) GetOrCompute(
	ctx context.Context,
	engine, corpusHash, query string,
	compute func() (ranking.ScoreMap, error),
) (ranking.ScoreMap, bool, error) {
	if scores, ok := c.Get(ctx, engine, corpusHash, query); ok {
		return scores, true, nil
	}
	key := buildKey(engine, corpusHash, query)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		scores, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, engine, corpusHash, query, scores)
		return scores, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(ranking.ScoreMap), false, nil
}

// Invalidate drops every cached score map.
func (c *ScoreCache) Invalidate(ctx context.Context) error {
	deleted, err := c.kv.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating score cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *ScoreCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Query tokens keep their order and duplicates; only whitespace is
// normalised, matching how the engines tokenise.
func buildKey(engine, corpusHash, query string) string {
	raw := fmt.Sprintf("%s|%s|%s", engine, corpusHash, strings.Join(strings.Fields(query), " "))
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
