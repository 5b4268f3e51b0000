package cache

import (
	"context"
	"time"

	"github.com/developer-mesh/querycache/pkg/observability"
)

// CacheWarmer pre-loads the cache with common queries so the first real
// requests after startup hit instead of miss.
type CacheWarmer struct {
	cache    *SemanticQueryCache
	executor QueryExecutor
	logger   observability.Logger
}

// NewCacheWarmer creates a new cache warmer
func NewCacheWarmer(cache *SemanticQueryCache, executor QueryExecutor, logger observability.Logger) *CacheWarmer {
	if logger == nil {
		logger = observability.NewLogger("querycache.warmer")
	}

	return &CacheWarmer{
		cache:    cache,
		executor: executor,
		logger:   logger,
	}
}

// WarmupResult represents the result of warming a single query
type WarmupResult struct {
	Query     string
	Success   bool
	FromCache bool
	Duration  time.Duration
	Err       error
}

// Warm executes and caches each query that is not already cached. Failures
// are recorded per query and do not stop the rest of the warmup.
func (w *CacheWarmer) Warm(ctx context.Context, queries []string) []WarmupResult {
	results := make([]WarmupResult, 0, len(queries))

	for _, query := range queries {
		select {
		case <-ctx.Done():
			return results
		default:
		}

		start := time.Now()
		result := WarmupResult{Query: query}

		if _, ok := w.cache.Get(ctx, query, nil); ok {
			result.Success = true
			result.FromCache = true
			result.Duration = time.Since(start)
			results = append(results, result)
			continue
		}

		payload, err := w.executor(ctx, query, nil)
		if err != nil {
			result.Err = err
			result.Duration = time.Since(start)
			results = append(results, result)
			w.logger.Warn("Warmup query failed", map[string]interface{}{
				"query": query,
				"error": err.Error(),
			})
			continue
		}

		if err := w.cache.Set(ctx, query, nil, payload, nil); err != nil {
			result.Err = err
		} else {
			result.Success = true
		}
		result.Duration = time.Since(start)
		results = append(results, result)
	}

	return results
}
