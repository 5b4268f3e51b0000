package cache

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads the semantic query cache configuration from
// viper, layered over DefaultConfig. Recognized keys live under
// "cache.query".
func LoadConfigFromViper() (*Config, error) {
	config := DefaultConfig()

	if viper.IsSet("cache.query.enabled") {
		config.Enabled = viper.GetBool("cache.query.enabled")
	}

	if threshold := viper.GetFloat64("cache.query.similarity_threshold"); threshold > 0 {
		config.SimilarityThreshold = threshold
	}

	if maxEntries := viper.GetInt("cache.query.max_entries"); maxEntries > 0 {
		config.MaxCacheSize = maxEntries
	}

	if ttl := viper.GetDuration("cache.query.ttl"); ttl > 0 {
		config.TTL = ttl
	}

	if dims := viper.GetInt("cache.query.embedding_dimensions"); dims > 0 {
		config.EmbeddingDimensions = dims
	}

	if strategy := viper.GetString("cache.query.invalidation_strategy"); strategy != "" {
		switch InvalidationStrategy(strategy) {
		case StrategySmart, StrategyTime, StrategyManual:
			config.InvalidationStrategy = InvalidationStrategy(strategy)
		default:
			return nil, fmt.Errorf("%w: invalid invalidation strategy: %s", ErrInvalidConfig, strategy)
		}
	}

	if prefix := viper.GetString("cache.query.prefix"); prefix != "" {
		config.Prefix = prefix
	}

	if viper.IsSet("cache.query.metrics_enabled") {
		config.EnableMetrics = viper.GetBool("cache.query.metrics_enabled")
	}

	if size := viper.GetInt("cache.query.embed_cache_size"); size > 0 {
		config.EmbedCacheSize = size
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.SimilarityThreshold < 0 || config.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity threshold must be between 0 and 1", ErrInvalidConfig)
	}
	if config.TTL <= 0 {
		return fmt.Errorf("%w: ttl must be positive", ErrInvalidConfig)
	}
	if config.EmbeddingDimensions <= 0 {
		return fmt.Errorf("%w: embedding dimensions must be positive", ErrInvalidConfig)
	}
	return nil
}
