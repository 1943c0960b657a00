package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"wallet_watcher/internal/models"
)

const cachePrefix = "walletwatcher:"

// sentimentCache bounds search-API usage two ways: a short TTL cache per
// ticker, and a daily query counter against the provider's free quota.
// Redis backs both when configured; otherwise an in-process fallback is
// used (the quota counter then resets on restart, which only risks
// over-counting against the provider, never under-counting executions).
type sentimentCache struct {
	ttl        time.Duration
	dailyQuota int

	rdb *redis.Client

	mu      sync.Mutex
	entries map[string]memEntry
	day     string
	used    int
}

type memEntry struct {
	result  models.SentimentResult
	expires time.Time
}

func newSentimentCache(redisAddr, redisPassword string, ttl time.Duration, dailyQuota int) *sentimentCache {
	c := &sentimentCache{
		ttl:        ttl,
		dailyQuota: dailyQuota,
		entries:    make(map[string]memEntry),
	}
	if redisAddr != "" {
		c.rdb = redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: redisPassword,
		})
		if err := c.rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis unreachable (%v), using in-process cache", err)
			c.rdb = nil
		}
	}
	return c
}

func (c *sentimentCache) get(ctx context.Context, ticker string) (models.SentimentResult, bool) {
	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, cachePrefix+"sentiment:"+ticker).Result()
		if err == nil {
			var r models.SentimentResult
			if json.Unmarshal([]byte(data), &r) == nil {
				return r, true
			}
		} else if err != redis.Nil {
			log.Printf("Warning: Redis get failed: %v", err)
		}
		return models.SentimentResult{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[ticker]
	if !ok || time.Now().After(e.expires) {
		return models.SentimentResult{}, false
	}
	return e.result, true
}

func (c *sentimentCache) put(ctx context.Context, r models.SentimentResult) {
	if c.rdb != nil {
		data, err := json.Marshal(r)
		if err == nil {
			if err := c.rdb.Set(ctx, cachePrefix+"sentiment:"+r.Ticker, data, c.ttl).Err(); err != nil {
				log.Printf("Warning: Redis set failed: %v", err)
			}
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[r.Ticker] = memEntry{result: r, expires: time.Now().Add(c.ttl)}
}

// takeQuota consumes one search query from today's budget. Returns false
// when the daily quota is spent; the caller then degrades to neutral.
func (c *sentimentCache) takeQuota(ctx context.Context) bool {
	today := time.Now().UTC().Format("2006-01-02")

	if c.rdb != nil {
		key := fmt.Sprintf("%squota:%s", cachePrefix, today)
		n, err := c.rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("Warning: Redis quota incr failed: %v", err)
			return c.takeQuotaLocal(today)
		}
		if n == 1 {
			c.rdb.Expire(ctx, key, 48*time.Hour)
		}
		return n <= int64(c.dailyQuota)
	}

	return c.takeQuotaLocal(today)
}

func (c *sentimentCache) takeQuotaLocal(today string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.day != today {
		c.day = today
		c.used = 0
	}
	if c.used >= c.dailyQuota {
		return false
	}
	c.used++
	return true
}
