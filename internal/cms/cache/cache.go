// Package cache keeps the published content document in redis.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/redis/go-redis/v9"

	"github.com/Laisky/institute-cms/internal/cms/model"
	rlib "github.com/Laisky/institute-cms/library/db/redis"
)

// DefaultTTL is how long the published document stays cached.
const DefaultTTL = 5 * time.Minute

const (
	publishedKey  = rlib.KeyPrefixContent + "published"
	generationKey = rlib.KeyPrefixContent + "generation"
)

// setIfGeneration writes the document only while the generation read before
// the store read is still current. A missing generation counts as 0.
var setIfGeneration = redis.NewScript(`
local gen = redis.call("GET", KEYS[1]) or "0"
if gen ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// ContentCache is a read-through cache of the published document.
//
// Cache errors are logged and treated as misses, the store stays the source of truth.
type ContentCache struct {
	cli    *redis.Client
	ttl    time.Duration
	logger logSDK.Logger
}

// New creates a cache over cli.
func New(cli *redis.Client, ttl time.Duration, logger logSDK.Logger) *ContentCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &ContentCache{
		cli:    cli,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached published document.
func (c *ContentCache) Get(ctx context.Context) (*model.Content, bool) {
	data, err := c.cli.Get(ctx, publishedKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("content cache get", zap.Error(err))
		}
		return nil, false
	}

	content, err := model.DecodeContent(data)
	if err != nil {
		c.logger.Warn("content cache decode", zap.Error(err))
		return nil, false
	}

	return content, true
}

// Generation returns the current invalidation counter. ok is false when
// redis cannot be read, callers must not fill the cache then.
func (c *ContentCache) Generation(ctx context.Context) (gen int64, ok bool) {
	gen, err := c.cli.Get(ctx, generationKey).Int64()
	switch {
	case err == redis.Nil:
		return 0, true
	case err != nil:
		c.logger.Warn("content cache generation", zap.Error(err))
		return 0, false
	}

	return gen, true
}

// Set stores the published document read under generation gen.
// It is a no-op when Invalidate ran since gen was read.
func (c *ContentCache) Set(ctx context.Context, gen int64, content *model.Content) {
	data, err := json.Marshal(content)
	if err != nil {
		c.logger.Warn("content cache encode", zap.Error(err))
		return
	}

	stored, err := setIfGeneration.Run(ctx, c.cli,
		[]string{generationKey, publishedKey},
		strconv.FormatInt(gen, 10), data, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.logger.Warn("content cache set", zap.Error(err))
		return
	}
	if stored == 0 {
		c.logger.Debug("content cache fill skipped, generation moved", zap.Int64("gen", gen))
	}
}

// Invalidate bumps the generation and drops the cached document.
func (c *ContentCache) Invalidate(ctx context.Context) {
	if _, err := c.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, publishedKey)
		return nil
	}); err != nil {
		c.logger.Warn("content cache invalidate", zap.Error(err))
		return
	}

	c.logger.Debug("content cache invalidated")
}
