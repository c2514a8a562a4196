package layout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cacheKey = "clinicnotes:layout:" + DocumentName

// KV is the subset of the Redis client the cache needs.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedRepository reads through Redis. Save writes the committed layout
// into the cache; a read fill only populates an empty key, so it can never
// replace what a concurrent save put there. Redis failures are logged and
// the store is used directly.
type CachedRepository struct {
	next Repository
	kv   KV
	ttl  time.Duration
}

func NewCachedRepository(next Repository, kv KV, ttl time.Duration) *CachedRepository {
	return &CachedRepository{next: next, kv: kv, ttl: ttl}
}

func (r *CachedRepository) Save(ctx context.Context, cfg Config) error {
	if err := r.next.Save(ctx, cfg); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err == nil {
		err = r.kv.Set(ctx, cacheKey, data, r.ttl).Err()
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("layout cache update failed")
		if derr := r.kv.Del(ctx, cacheKey).Err(); derr != nil {
			zerolog.Ctx(ctx).Warn().Err(derr).Msg("layout cache invalidation failed")
		}
	}
	return nil
}

func (r *CachedRepository) Load(ctx context.Context) (Config, error) {
	log := zerolog.Ctx(ctx)

	raw, err := r.kv.Get(ctx, cacheKey).Bytes()
	switch {
	case err == nil:
		var cfg Config
		if jerr := json.Unmarshal(raw, &cfg); jerr == nil {
			return cfg, nil
		}
		log.Warn().Msg("discarding undecodable cached layout")
	case errors.Is(err, redis.Nil):
	default:
		log.Warn().Err(err).Msg("layout cache read failed")
	}

	cfg, err := r.next.Load(ctx)
	if err != nil {
		return nil, err
	}
	if data, jerr := json.Marshal(cfg); jerr == nil {
		if serr := r.kv.SetNX(ctx, cacheKey, data, r.ttl).Err(); serr != nil {
			log.Warn().Err(serr).Msg("layout cache fill failed")
		}
	}
	return cfg, nil
}
