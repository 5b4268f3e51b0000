package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/developer-mesh/querycache/pkg/observability"
)

// SemanticQueryCache is a result cache keyed by query meaning rather than
// exact text equality. Queries with the same shape and intent but different
// literal parameters hit the same entry via embedding similarity.
//
// The cache is a soft dependency: embedding failures degrade to misses on
// Get and skipped stores on Set, never to errors on the caller's main query
// path. Contents live in process memory only and are not persisted.
//
// SemanticQueryCache is safe for concurrent use by multiple goroutines.
type SemanticQueryCache struct {
	config     *Config
	normalizer QueryNormalizer
	embedder   Embedder
	validator  *QueryValidator
	logger     observability.Logger
	metrics    observability.MetricsClient

	// mu guards index, memoryBytes, and the similarity running mean.
	// Insertion, eviction selection, and removal are serialized here so the
	// population never exceeds MaxCacheSize and access bookkeeping is atomic
	// with respect to removal of the same entry.
	mu          sync.RWMutex
	index       *similarityIndex
	memoryBytes int64

	avgSimilarity float64
	simSamples    int64

	expiry expirationPolicy

	// Atomic counters for stats
	hitCount  atomic.Int64
	missCount atomic.Int64

	// Memoizes normalized query -> embedding for the deterministic embedder
	embedCache *lru.Cache[string, []float32]
}

// New creates a semantic query cache with the built-in hash embedder.
// A nil config uses DefaultConfig; a nil logger gets a default logger.
func New(config *Config, logger observability.Logger) (*SemanticQueryCache, error) {
	var embedder Embedder
	if config == nil {
		embedder = NewHashEmbedder(DefaultEmbeddingDimensions)
	} else {
		embedder = NewHashEmbedder(config.EmbeddingDimensions)
	}
	return NewWithEmbedder(config, embedder, logger)
}

// NewWithEmbedder creates a semantic query cache backed by the given
// embedder, allowing a remote or learned model to be substituted for the
// built-in one. The embedder's dimension must agree with the configured
// EmbeddingDimensions.
func NewWithEmbedder(config *Config, embedder Embedder, logger observability.Logger) (*SemanticQueryCache, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}

	if config == nil {
		config = DefaultConfig()
	}

	if config.SimilarityThreshold < 0 || config.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("%w: similarity threshold must be between 0 and 1", ErrInvalidConfig)
	}
	if config.EmbeddingDimensions <= 0 {
		config.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	if config.Prefix == "" {
		config.Prefix = DefaultConfig().Prefix
	}
	switch config.InvalidationStrategy {
	case StrategySmart, StrategyTime, StrategyManual:
	case "":
		config.InvalidationStrategy = StrategySmart
	default:
		return nil, fmt.Errorf("%w: unknown invalidation strategy %q", ErrInvalidConfig, config.InvalidationStrategy)
	}

	if dims := embedder.Dimensions(); dims > 0 && dims != config.EmbeddingDimensions {
		return nil, &DimensionMismatchError{Want: config.EmbeddingDimensions, Got: dims}
	}

	if logger == nil {
		logger = observability.NewLogger("querycache")
	}

	c := &SemanticQueryCache{
		config:     config,
		normalizer: NewQueryNormalizer(),
		embedder:   embedder,
		validator:  NewQueryValidator(),
		logger:     logger,
		index:      newSimilarityIndex(),
		expiry: expirationPolicy{
			strategy: config.InvalidationStrategy,
			ttl:      config.TTL,
		},
	}

	if config.EnableMetrics {
		c.metrics = observability.NewMetricsClient()
	}

	if config.EmbedCacheSize > 0 {
		embedCache, err := lru.New[string, []float32](config.EmbedCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding cache: %w", err)
		}
		c.embedCache = embedCache
	}

	return c, nil
}

// Get retrieves the cached payload for a semantically equivalent query.
// It normalizes the query with its parameters, embeds it, and scans for the
// best match above the similarity threshold. An expired match is removed and
// reported as a miss. Hits update access statistics used by expiration and
// eviction.
//
// Get never returns an error: validation and embedding failures are treated
// as misses.
func (c *SemanticQueryCache) Get(ctx context.Context, query string, params []interface{}) (interface{}, bool) {
	if !c.config.Enabled {
		return nil, false
	}

	start := time.Now()
	hit := false
	defer func() { c.recordOperation("get", hit, start) }()

	ctx, span := observability.StartSpan(ctx, "semantic_cache.get")
	defer span.End()

	if err := c.validator.Validate(query); err != nil {
		c.recordMiss("invalid_query")
		return nil, false
	}

	normalized := c.normalizer.Normalize(c.validator.Sanitize(query), params)
	if normalized == "" {
		c.recordMiss("empty_normalized")
		return nil, false
	}
	span.SetAttribute("normalized_query", normalized)

	embedding, err := c.embedQuery(ctx, normalized)
	if err != nil {
		c.logger.Warn("Failed to embed query, treating as miss", map[string]interface{}{
			"error": err.Error(),
		})
		span.RecordError(err)
		c.recordMiss("embedding_error")
		return nil, false
	}

	now := time.Now()

	c.mu.Lock()
	entry, similarity, ok := c.index.findBestMatch(embedding, c.config.SimilarityThreshold)
	if !ok {
		c.mu.Unlock()
		c.recordMiss("no_match")
		return nil, false
	}

	if !c.expiry.isValid(entry, now) {
		c.removeLocked(entry.Key)
		size := c.index.len()
		c.mu.Unlock()
		c.recordMiss("expired")
		c.recordEntryCount(size)
		return nil, false
	}

	entry.AccessCount++
	entry.LastAccessedAt = now
	c.observeSimilarityLocked(similarity)
	payload := entry.Payload
	c.mu.Unlock()

	span.SetAttribute("similarity", similarity)
	hit = true
	c.recordHit("similarity")
	return payload, true
}

// Set stores a query result together with optional caller-supplied metadata
// (for example source table names). The entry overwrites any existing entry
// for the same normalized query. When the cache is at capacity the lowest
// access-rate entry is evicted strictly before admission.
//
// Set is a no-op when the cache is disabled or MaxCacheSize is not positive,
// and silently skips the store when embedding fails. An embedding of the
// wrong dimension is rejected with DimensionMismatchError.
func (c *SemanticQueryCache) Set(ctx context.Context, query string, params []interface{}, result interface{}, metadata map[string]interface{}) error {
	if !c.config.Enabled || c.config.MaxCacheSize <= 0 {
		return nil
	}

	start := time.Now()
	stored := false
	defer func() { c.recordOperation("set", stored, start) }()

	ctx, span := observability.StartSpan(ctx, "semantic_cache.set")
	defer span.End()

	if err := c.validator.Validate(query); err != nil {
		return err
	}

	query = c.validator.Sanitize(query)
	normalized := c.normalizer.Normalize(query, params)
	if normalized == "" {
		return nil
	}

	embedding, err := c.embedQuery(ctx, normalized)
	if err != nil {
		var dimErr *DimensionMismatchError
		if errors.As(err, &dimErr) {
			return err
		}
		c.logger.Warn("Failed to embed query, skipping cache store", map[string]interface{}{
			"error": err.Error(),
		})
		span.RecordError(err)
		return nil
	}

	now := time.Now()
	entry := &CacheEntry{
		Key:             cacheKey(normalized),
		Query:           query,
		NormalizedQuery: normalized,
		Embedding:       embedding,
		Payload:         result,
		Metadata:        metadata,
		CreatedAt:       now,
		AccessCount:     1,
		LastAccessedAt:  now,
	}
	entry.SizeBytes = estimateEntrySize(entry)

	c.mu.Lock()
	if c.index.get(entry.Key) != nil {
		c.removeLocked(entry.Key)
	}

	evicted := 0
	for c.index.len() >= c.config.MaxCacheSize {
		victim := selectVictim(c.index.entries, now)
		if victim == "" {
			break
		}
		c.removeLocked(victim)
		evicted++
	}

	c.index.insert(entry)
	c.memoryBytes += entry.SizeBytes
	size := c.index.len()
	c.mu.Unlock()
	stored = true

	if evicted > 0 && c.metrics != nil {
		c.metrics.IncrementCounterWithLabels("semantic_cache.evictions", float64(evicted), nil)
	}
	c.recordEntryCount(size)

	return nil
}

// InvalidateByTable removes every entry whose normalized query reads the
// named table and returns the number removed. It is deliberately blunt: it
// may over-invalidate entries that merely mention the table, but never leaves
// a stale reader of the table's data behind.
func (c *SemanticQueryCache) InvalidateByTable(ctx context.Context, table string) int {
	return c.InvalidateByPattern(ctx, "FROM "+strings.ToUpper(table))
}

// InvalidateByPattern removes every entry whose normalized query contains
// the upper-cased pattern as a substring and returns the number removed.
// A pattern matching nothing returns 0.
func (c *SemanticQueryCache) InvalidateByPattern(ctx context.Context, pattern string) int {
	_, span := observability.StartSpan(ctx, "semantic_cache.invalidate")
	defer span.End()

	upper := strings.ToUpper(pattern)

	c.mu.Lock()
	removed := 0
	for key, entry := range c.index.entries {
		if strings.Contains(entry.NormalizedQuery, upper) {
			c.removeLocked(key)
			removed++
		}
	}
	size := c.index.len()
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug("Invalidated cache entries", map[string]interface{}{
			"pattern": upper,
			"removed": removed,
		})
		if c.metrics != nil {
			c.metrics.IncrementCounterWithLabels("semantic_cache.invalidations", float64(removed), nil)
		}
	}
	c.recordEntryCount(size)
	span.SetAttribute("removed", removed)

	return removed
}

// Optimize proactively drops entries with an access rate below 0.001/s that
// are older than half the base TTL, independent of lazy expiration. It
// returns the number of entries removed.
func (c *SemanticQueryCache) Optimize(ctx context.Context) int {
	_, span := observability.StartSpan(ctx, "semantic_cache.optimize")
	defer span.End()

	now := time.Now()
	minAge := c.config.TTL / 2

	c.mu.Lock()
	removed := 0
	for key, entry := range c.index.entries {
		if accessRate(entry, now) < 0.001 && now.Sub(entry.CreatedAt) > minAge {
			c.removeLocked(key)
			removed++
		}
	}
	size := c.index.len()
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Info("Optimized cache", map[string]interface{}{
			"removed": removed,
		})
		if c.metrics != nil {
			c.metrics.IncrementCounter("semantic_cache.optimize_removed", float64(removed))
		}
	}
	c.recordEntryCount(size)
	span.SetAttribute("removed", removed)

	return removed
}

// Clear removes all entries and resets statistics.
func (c *SemanticQueryCache) Clear(ctx context.Context) {
	_, span := observability.StartSpan(ctx, "semantic_cache.clear")
	defer span.End()

	c.mu.Lock()
	c.index.clear()
	c.memoryBytes = 0
	c.avgSimilarity = 0
	c.simSamples = 0
	c.mu.Unlock()

	c.hitCount.Store(0)
	c.missCount.Store(0)

	if c.embedCache != nil {
		c.embedCache.Purge()
	}

	c.recordEntryCount(0)
}

// Helper methods

// cacheKey derives a stable, collision-resistant key from the normalized
// query text.
func cacheKey(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// embedQuery embeds a normalized query, memoizing results for the common
// case of a deterministic embedder. Embeddings of the wrong dimension are
// rejected.
func (c *SemanticQueryCache) embedQuery(ctx context.Context, normalized string) ([]float32, error) {
	if c.embedCache != nil {
		if vec, ok := c.embedCache.Get(normalized); ok {
			return vec, nil
		}
	}

	vec, err := c.embedder.Embed(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vec) != c.config.EmbeddingDimensions {
		return nil, &DimensionMismatchError{Want: c.config.EmbeddingDimensions, Got: len(vec)}
	}

	if c.embedCache != nil {
		c.embedCache.Add(normalized, vec)
	}
	return vec, nil
}

// removeLocked removes an entry and its memory accounting. Callers hold mu.
func (c *SemanticQueryCache) removeLocked(key string) {
	if entry := c.index.remove(key); entry != nil {
		c.memoryBytes -= entry.SizeBytes
		if c.memoryBytes < 0 {
			c.memoryBytes = 0
		}
	}
}

func (c *SemanticQueryCache) recordHit(hitType string) {
	c.hitCount.Add(1)
	if c.metrics != nil {
		c.metrics.IncrementCounterWithLabels("semantic_cache.hit", 1, map[string]string{
			"type": hitType,
		})
	}
}

func (c *SemanticQueryCache) recordMiss(missType string) {
	c.missCount.Add(1)
	if c.metrics != nil {
		c.metrics.IncrementCounterWithLabels("semantic_cache.miss", 1, map[string]string{
			"type": missType,
		})
	}
}

// recordOperation emits the operation latency pair for a completed Get or
// Set: the cache-operation histogram labeled by outcome and the plain
// latency histogram.
func (c *SemanticQueryCache) recordOperation(op string, success bool, start time.Time) {
	if c.metrics == nil {
		return
	}
	elapsed := time.Since(start)
	c.metrics.RecordCacheOperation(op, success, elapsed.Seconds())
	c.metrics.RecordLatency("semantic_cache."+op, elapsed)
}

func (c *SemanticQueryCache) recordEntryCount(size int) {
	if c.metrics != nil {
		c.metrics.RecordGauge("semantic_cache.entries", float64(size), nil)
	}
}
