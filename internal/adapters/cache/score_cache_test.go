package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScoreKey(t *testing.T) {
	assert.Equal(t, "credit-score:42", scoreKey(42))
}

func TestNopScoreCache(t *testing.T) {
	ctx := context.Background()
	var c NopScoreCache

	assert.NoError(t, c.Set(ctx, 1, 80))
	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(ctx, 1))
}

func TestRedisScoreCacheUnreachableIsAMiss(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// nothing listens on port 1
	c := NewRedisScoreCache("127.0.0.1:1", "", 0, time.Minute)
	defer c.Close()

	_, ok := c.Get(ctx, 7)
	assert.False(t, ok)
	assert.Error(t, c.Set(ctx, 7, 55))
	assert.Error(t, c.Ping(ctx))
}
