package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResilientEmbedderDelegates(t *testing.T) {
	inner := NewHashEmbedder(64)
	e := NewResilientEmbedder(inner, DefaultBreakerConfig(), nil)

	assert.Equal(t, 64, e.Dimensions())

	want, err := inner.Embed(context.Background(), "SELECT 1")
	require.NoError(t, err)
	got, err := e.Embed(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResilientEmbedderBreakerOpens(t *testing.T) {
	inner := &stubEmbedder{dims: 4, err: errors.New("model unavailable")}
	e := NewResilientEmbedder(inner, DefaultBreakerConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := e.Embed(ctx, "SELECT 1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	_, err := e.Embed(ctx, "SELECT 1")
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState, "breaker opens after sustained failures")

	calls := inner.calls
	_, _ = e.Embed(ctx, "SELECT 1")
	assert.Equal(t, calls, inner.calls, "open breaker short-circuits without calling the embedder")
}

func TestResilientEmbedderCallTimeout(t *testing.T) {
	slow := &slowEmbedder{dims: 4, delay: 200 * time.Millisecond}
	config := DefaultBreakerConfig()
	config.CallTimeout = 10 * time.Millisecond
	e := NewResilientEmbedder(slow, config, nil)

	_, err := e.Embed(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCacheDegradesWithOpenBreaker(t *testing.T) {
	inner := &stubEmbedder{dims: 4, err: errors.New("model unavailable")}
	e := NewResilientEmbedder(inner, DefaultBreakerConfig(), nil)

	config := DefaultConfig()
	config.EnableMetrics = false
	config.EmbeddingDimensions = 4
	c, err := NewWithEmbedder(config, e, nil)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, found := c.Get(ctx, "SELECT * FROM t WHERE id = ?", []interface{}{i})
		assert.False(t, found)
		assert.NoError(t, c.Set(ctx, "SELECT * FROM t WHERE id = ?", []interface{}{i}, i, nil))
	}

	assert.Equal(t, 0, c.Stats().TotalEntries, "nothing is cached while the embedder is down")
}

// slowEmbedder blocks until its delay elapses or the context is canceled.
type slowEmbedder struct {
	dims  int
	delay time.Duration
}

func (s *slowEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	select {
	case <-time.After(s.delay):
		return make([]float32, s.dims), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *slowEmbedder) Dimensions() int { return s.dims }
