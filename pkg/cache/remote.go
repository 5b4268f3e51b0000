package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/developer-mesh/querycache/pkg/observability"
)

// BreakerConfig configures the circuit breaker protecting a remote embedder.
type BreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	// CallTimeout bounds each individual embedding call
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// DefaultBreakerConfig returns default circuit breaker settings
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  5,
		Interval:     30 * time.Second,
		Timeout:      60 * time.Second,
		FailureRatio: 0.5,
		CallTimeout:  2 * time.Second,
	}
}

// ResilientEmbedder wraps an Embedder with a circuit breaker and a per-call
// timeout, intended for embedders backed by a remote model. When the breaker
// is open or a call fails, the error surfaces to the cache, which degrades to
// a miss rather than caching a negative result.
type ResilientEmbedder struct {
	inner   Embedder
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  observability.Logger
}

// NewResilientEmbedder wraps the given embedder with circuit breaker
// protection.
func NewResilientEmbedder(inner Embedder, config BreakerConfig, logger observability.Logger) *ResilientEmbedder {
	if logger == nil {
		logger = observability.NewLogger("querycache.embedder")
	}

	if config.MaxRequests == 0 {
		config.MaxRequests = DefaultBreakerConfig().MaxRequests
	}
	if config.Interval == 0 {
		config.Interval = DefaultBreakerConfig().Interval
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultBreakerConfig().Timeout
	}
	if config.FailureRatio == 0 {
		config.FailureRatio = DefaultBreakerConfig().FailureRatio
	}
	if config.CallTimeout == 0 {
		config.CallTimeout = DefaultBreakerConfig().CallTimeout
	}

	settings := gobreaker.Settings{
		Name:        "querycache.embedder",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= config.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Embedder circuit breaker state change", map[string]interface{}{
				"from": from.String(),
				"to":   to.String(),
			})
		},
	}

	return &ResilientEmbedder{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		timeout: config.CallTimeout,
		logger:  logger,
	}
}

// Embed calls the wrapped embedder through the circuit breaker with a
// bounded per-call timeout.
func (e *ResilientEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := e.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		return e.inner.Embed(callCtx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("embedder unavailable: %w", err)
	}
	return result.([]float32), nil
}

// Dimensions returns the wrapped embedder's dimension
func (e *ResilientEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}
