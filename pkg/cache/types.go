package cache

import (
	"context"
	"time"
)

// InvalidationStrategy selects how cached entries expire.
type InvalidationStrategy string

const (
	// StrategySmart scales each entry's time-to-live with its access
	// frequency: hot entries survive longer since their last hit.
	StrategySmart InvalidationStrategy = "smart"
	// StrategyTime expires entries a fixed TTL after insertion.
	StrategyTime InvalidationStrategy = "time"
	// StrategyManual never expires entries by time; only explicit
	// invalidation or eviction removes them.
	StrategyManual InvalidationStrategy = "manual"
)

// CacheEntry represents a cached query result with associated metadata.
// It stores the original query, its normalized form, embedding vector,
// the cached payload, and usage statistics for cache management.
type CacheEntry struct {
	Key             string                 `json:"key"`
	Query           string                 `json:"query"`
	NormalizedQuery string                 `json:"normalized_query"`
	Embedding       []float32              `json:"embedding"`
	Payload         interface{}            `json:"payload"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	AccessCount     int64                  `json:"access_count"`
	LastAccessedAt  time.Time              `json:"last_accessed_at"`
	SizeBytes       int64                  `json:"size_bytes"`
}

// Config configures the semantic query cache behavior.
//
// Use DefaultConfig() to get a configuration with sensible defaults,
// then customize specific fields as needed.
type Config struct {
	// Enabled toggles the cache; when false Get always misses and Set is a no-op
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// SimilarityThreshold is the minimum cosine similarity for a cache hit (0.0 to 1.0)
	SimilarityThreshold float64 `json:"similarity_threshold" mapstructure:"similarity_threshold"`
	// MaxCacheSize is the maximum number of entries to keep in cache
	MaxCacheSize int `json:"max_cache_size" mapstructure:"max_cache_size"`
	// TTL is the base cache entry time-to-live
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`
	// EmbeddingDimensions is the fixed dimension of query embeddings
	EmbeddingDimensions int `json:"embedding_dimensions" mapstructure:"embedding_dimensions"`
	// InvalidationStrategy selects the expiration strategy (smart, time, manual)
	InvalidationStrategy InvalidationStrategy `json:"invalidation_strategy" mapstructure:"invalidation_strategy"`
	// Prefix namespaces the invalidation pub/sub channel
	Prefix string `json:"prefix" mapstructure:"prefix"`
	// EnableMetrics enables metrics collection
	EnableMetrics bool `json:"enable_metrics" mapstructure:"enable_metrics"`
	// EmbedCacheSize bounds the embedding memoization cache (0 disables it)
	EmbedCacheSize int `json:"embed_cache_size" mapstructure:"embed_cache_size"`
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:              true,
		SimilarityThreshold:  0.85,
		MaxCacheSize:         1000,
		TTL:                  5 * time.Minute,
		EmbeddingDimensions:  384,
		InvalidationStrategy: StrategySmart,
		Prefix:               "querycache",
		EnableMetrics:        true,
		EmbedCacheSize:       2048,
	}
}

// CacheStats represents cache statistics at a point in time.
// Counters are cumulative; TotalEntries tracks the current population.
type CacheStats struct {
	TotalEntries     int       `json:"total_entries"`
	TotalHits        int64     `json:"total_hits"`
	TotalMisses      int64     `json:"total_misses"`
	HitRate          float64   `json:"hit_rate"`
	AvgSimilarity    float64   `json:"avg_similarity"`
	MemoryUsageBytes int64     `json:"memory_usage_bytes"`
	Timestamp        time.Time `json:"timestamp"`
}

// QueryExecutor is a function type for executing queries when cache misses
// occur. It takes a query with its positional parameters and returns the
// result payload to cache.
type QueryExecutor func(ctx context.Context, query string, params []interface{}) (interface{}, error)
