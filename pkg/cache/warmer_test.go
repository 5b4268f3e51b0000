package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheWarmer(t *testing.T) {
	c := setupTestCache(t, nil)

	executed := 0
	executor := func(_ context.Context, query string, _ []interface{}) (interface{}, error) {
		executed++
		if query == "SELECT * FROM broken" {
			return nil, errors.New("table does not exist")
		}
		return "payload:" + query, nil
	}

	warmer := NewCacheWarmer(c, executor, nil)
	ctx := context.Background()

	queries := []string{
		"SELECT * FROM users",
		"SELECT * FROM orders",
		"SELECT * FROM broken",
	}

	results := warmer.Warm(ctx, queries)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.False(t, results[0].FromCache)
	assert.True(t, results[1].Success)
	assert.False(t, results[2].Success)
	assert.Error(t, results[2].Err)

	assert.Equal(t, 3, executed)
	assert.Equal(t, 2, c.Stats().TotalEntries)

	t.Run("second pass is served from cache", func(t *testing.T) {
		executed = 0
		results := warmer.Warm(ctx, queries[:2])
		require.Len(t, results, 2)
		for _, r := range results {
			assert.True(t, r.Success)
			assert.True(t, r.FromCache)
		}
		assert.Equal(t, 0, executed)
	})

	t.Run("canceled context stops the warmup", func(t *testing.T) {
		canceled, cancel := context.WithCancel(context.Background())
		cancel()

		results := warmer.Warm(canceled, queries)
		assert.Empty(t, results)
	})
}
