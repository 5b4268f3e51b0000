package cache

import (
	"errors"
	"fmt"
)

var (
	// Query errors
	ErrInvalidQuery = errors.New("invalid query")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")

	// Embedding errors
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// DimensionMismatchError reports an embedding whose length differs from the
// cache-wide configured dimension. Such embeddings are rejected rather than
// padded or truncated.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
}
