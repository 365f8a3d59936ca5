package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const scoreKeyPrefix = "credit-score:"

// RedisScoreCache keeps computed credit scores in Redis for the
// read-only eligibility path
type RedisScoreCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisScoreCache creates a cache backed by the Redis server at addr
func NewRedisScoreCache(addr, password string, db int, ttl time.Duration) *RedisScoreCache {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	return &RedisScoreCache{client: client, ttl: ttl}
}

// Ping checks connectivity
func (c *RedisScoreCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get returns the cached score of a customer. Errors count as a miss.
func (c *RedisScoreCache) Get(ctx context.Context, customerID uint) (int, bool) {
	val, err := c.client.Get(ctx, scoreKey(customerID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("⚠️ Score cache read failed for customer %d: %v", customerID, err)
		}
		return 0, false
	}
	score, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return score, true
}

// Set stores a customer's score until the TTL expires
func (c *RedisScoreCache) Set(ctx context.Context, customerID uint, score int) error {
	return c.client.Set(ctx, scoreKey(customerID), strconv.Itoa(score), c.ttl).Err()
}

// Invalidate drops a customer's cached score
func (c *RedisScoreCache) Invalidate(ctx context.Context, customerID uint) error {
	return c.client.Del(ctx, scoreKey(customerID)).Err()
}

// Close closes the Redis client
func (c *RedisScoreCache) Close() error {
	return c.client.Close()
}

func scoreKey(customerID uint) string {
	return fmt.Sprintf("%s%d", scoreKeyPrefix, customerID)
}

// NopScoreCache never caches. It is used when no Redis address is configured.
type NopScoreCache struct{}

func (NopScoreCache) Get(context.Context, uint) (int, bool) { return 0, false }

func (NopScoreCache) Set(context.Context, uint, int) error { return nil }

func (NopScoreCache) Invalidate(context.Context, uint) error { return nil }
