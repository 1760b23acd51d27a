package main

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"log"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// cacheKeyPrefixBytes bounds how much of the audio feeds the cache key.
const cacheKeyPrefixBytes = 1 << 20

// cacheKey digests the first 1 MiB of the audio bytes. Byte-identical inputs
// always map to the same key; inputs that share a 1 MiB prefix but diverge
// later collide. That weakening is deliberate and part of this function's
// contract: hashing whole uploads would double large-file I/O for a cache
// whose misses are cheap.
func cacheKey(audio []byte) string {
	if len(audio) > cacheKeyPrefixBytes {
		audio = audio[:cacheKeyPrefixBytes]
	}
	sum := md5.Sum(audio)
	return hex.EncodeToString(sum[:])
}

// resultCache deduplicates recognition calls for identical audio inputs.
// Entries live in a process-lifetime map and are evicted by a per-entry
// timer at TTL; there is no sweep and no LRU. When Redis is configured the
// cache also writes through to it and consults it on memory misses, so
// restarts and sibling processes share results. Redis errors degrade to
// in-memory-only, never fail a request.
//
// Concurrent requests for the same key may both miss and both recognize;
// the second Put wins. Recognition is idempotent, so that race is accepted.
// This is a cache, not a lock.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]*RecognitionResult
	timers  map[string]*time.Timer
	ttl     time.Duration
	rdb     *redis.Client
}

func newResultCache(ttl time.Duration, rdb *redis.Client) *resultCache {
	return &resultCache{
		entries: make(map[string]*RecognitionResult),
		timers:  make(map[string]*time.Timer),
		ttl:     ttl,
		rdb:     rdb,
	}
}

// initRedis connects to Redis if an address is configured. Unreachable Redis
// is not fatal: the cache runs memory-only.
func initRedis(cfg *Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("⚠️  Redis not available, caching in memory only: %v", err)
		return nil
	}
	log.Println("✅ Redis connected successfully")
	return rdb
}

func (c *resultCache) Get(ctx context.Context, key string) *RecognitionResult {
	c.mu.Lock()
	res, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return res
	}
	if c.rdb == nil {
		return nil
	}
	val, err := c.rdb.Get(ctx, "music:"+key).Result()
	if err != nil {
		return nil
	}
	var cached RecognitionResult
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil
	}
	return &cached
}

func (c *resultCache) Put(ctx context.Context, key string, res *RecognitionResult) {
	c.mu.Lock()
	c.entries[key] = res
	if t, ok := c.timers[key]; ok {
		t.Stop()
	}
	c.timers[key] = time.AfterFunc(c.ttl, func() { c.evict(key) })
	c.mu.Unlock()

	if c.rdb != nil {
		data, err := json.Marshal(res)
		if err == nil {
			if err := c.rdb.Set(ctx, "music:"+key, data, c.ttl).Err(); err != nil {
				log.Printf("⚠️  Redis cache write: %v", err)
			}
		}
	}
}

func (c *resultCache) evict(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	delete(c.timers, key)
	c.mu.Unlock()
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
