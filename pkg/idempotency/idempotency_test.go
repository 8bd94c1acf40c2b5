package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryFallbackRoundTrips(t *testing.T) {
	cache := New("", time.Minute, nil)

	_, ok := cache.Get(context.Background(), "key-1")
	assert.False(t, ok)

	cache.Put(context.Background(), "key-1", []byte(`{"listing_id":"HER-1"}`))

	value, ok := cache.Get(context.Background(), "key-1")
	require.True(t, ok)
	assert.Equal(t, `{"listing_id":"HER-1"}`, string(value))
}

func TestEmptyKeyIsAlwaysAMiss(t *testing.T) {
	cache := New("", time.Minute, nil)
	cache.Put(context.Background(), "", []byte("ignored"))
	_, ok := cache.Get(context.Background(), "")
	assert.False(t, ok)
}

func TestInvalidRedisURLFallsBackToLocalTier(t *testing.T) {
	cache := New("not a valid url", time.Minute, nil)
	cache.Put(context.Background(), "key-2", []byte("value"))
	value, ok := cache.Get(context.Background(), "key-2")
	require.True(t, ok)
	assert.Equal(t, "value", string(value))
}
