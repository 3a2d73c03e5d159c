package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ziadkadry99/shopagent/internal/agent"
	"github.com/ziadkadry99/shopagent/internal/logger"
)

// DefaultRedisPrefix namespaces keys written by the Redis store.
const DefaultRedisPrefix = "shopagent:"

// Redis is a Store backed by a Redis server. Each value lives under its own
// key with a PX expiry, and a sorted set scored by insertion time orders
// entries for eviction. Capacity checks are serialized within one process.
type Redis struct {
	client redis.UniversalClient
	prefix string
	opts   Options
	log    logger.Logger
	mu     sync.Mutex
}

type record struct {
	Value    agent.Answer `json:"value"`
	StoredAt int64        `json:"stored_at"`
	TTL      int64        `json:"ttl_ms"`
}

// NewRedis wraps client. An empty prefix uses DefaultRedisPrefix.
func NewRedis(client redis.UniversalClient, prefix string, opts Options, log logger.Logger) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if log == nil {
		log = logger.Default()
	}
	return &Redis{
		client: client,
		prefix: prefix,
		opts:   opts.withDefaults(),
		log:    log,
	}
}

// DialRedis connects to addr and verifies the server responds.
func DialRedis(ctx context.Context, addr, prefix string, opts Options, log logger.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedis(client, prefix, opts, log), nil
}

func (r *Redis) entryKey(key string) string { return r.prefix + "entry:" + key }
func (r *Redis) indexKey() string           { return r.prefix + "index" }

func (r *Redis) Get(ctx context.Context, key string) (agent.Answer, bool) {
	raw, err := r.client.Get(ctx, r.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.client.ZRem(ctx, r.indexKey(), key)
		return agent.Answer{}, false
	}
	if err != nil {
		r.log.Warn("cache get failed", "err", err)
		return agent.Answer{}, false
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		r.log.Warn("cache entry corrupt, dropping", "err", err)
		r.drop(ctx, key)
		return agent.Answer{}, false
	}
	if !alive(time.UnixMilli(rec.StoredAt), r.opts.Now(), time.Duration(rec.TTL)*time.Millisecond) {
		r.drop(ctx, key)
		return agent.Answer{}, false
	}
	return rec.Value, true
}

func (r *Redis) Set(ctx context.Context, key string, value agent.Answer, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	now := r.opts.Now()
	raw, err := json.Marshal(record{
		Value:    value,
		StoredAt: now.UnixMilli(),
		TTL:      ttl.Milliseconds(),
	})
	if err != nil {
		r.log.Warn("cache encode failed", "err", err)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.client.Exists(ctx, r.entryKey(key)).Result()
	if err != nil {
		r.log.Warn("cache set failed", "err", err)
		return false
	}
	if exists == 0 {
		size, err := r.prune(ctx)
		if err != nil {
			r.log.Warn("cache set failed", "err", err)
			return false
		}
		if size >= int64(r.opts.MaxSize) {
			if err := r.evictOldest(ctx, r.opts.EvictionBatch); err != nil {
				r.log.Warn("cache eviction failed", "err", err)
				return false
			}
		}
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.entryKey(key), raw, ttl)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(now.UnixMilli()), Member: key})
		return nil
	})
	if err != nil {
		r.log.Warn("cache set failed", "err", err)
		return false
	}
	return true
}

// prune drops index members whose value key has expired and returns the
// remaining index size.
func (r *Redis) prune(ctx context.Context) (int64, error) {
	members, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, nil
	}

	cmds := make([]*redis.IntCmd, len(members))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, m := range members {
			cmds[i] = pipe.Exists(ctx, r.entryKey(m))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	var stale []any
	for i, cmd := range cmds {
		if cmd.Val() == 0 {
			stale = append(stale, members[i])
		}
	}
	if len(stale) > 0 {
		if err := r.client.ZRem(ctx, r.indexKey(), stale...).Err(); err != nil {
			return 0, err
		}
	}
	return int64(len(members) - len(stale)), nil
}

func (r *Redis) evictOldest(ctx context.Context, n int) error {
	oldest, err := r.client.ZRange(ctx, r.indexKey(), 0, int64(n-1)).Result()
	if err != nil || len(oldest) == 0 {
		return err
	}
	keys := make([]string, len(oldest))
	members := make([]any, len(oldest))
	for i, k := range oldest {
		keys[i] = r.entryKey(k)
		members[i] = k
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, r.indexKey(), members...)
		return nil
	})
	return err
}

func (r *Redis) drop(ctx context.Context, key string) {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.entryKey(key))
		pipe.ZRem(ctx, r.indexKey(), key)
		return nil
	})
	if err != nil {
		r.log.Warn("cache purge failed", "err", err)
	}
}

func (r *Redis) Clear(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := []string{r.indexKey()}
	iter := r.client.Scan(ctx, 0, r.prefix+"entry:*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.log.Warn("cache clear scan failed", "err", err)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.log.Warn("cache clear failed", "err", err)
	}
}

func (r *Redis) Len(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, err := r.prune(ctx)
	if err != nil {
		r.log.Warn("cache len failed", "err", err)
		return 0
	}
	return int(n)
}

func (r *Redis) Close() error { return r.client.Close() }
