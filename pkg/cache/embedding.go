package cache

import (
	"context"
	"math"
	"strings"
)

// DefaultEmbeddingDimensions is the embedding dimension used when none is
// configured.
const DefaultEmbeddingDimensions = 384

// Embedder maps normalized query text to a fixed-dimension embedding vector.
// Implementations must be safe for concurrent use. A production implementation
// backed by a remote model can be substituted behind this interface without
// touching the rest of the cache; see ResilientEmbedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// HashEmbedder is a deterministic hash-based embedder. It blends lexical
// signal (weighted character folding per token) with structural signal
// (join/group/order/limit/aggregation flags and table and predicate counts
// written into the tail of the vector), then L2-normalizes the result.
//
// Embed is pure: identical input always yields a bit-identical vector.
type HashEmbedder struct {
	dims    int
	weights map[string]float64
}

// NewHashEmbedder creates a hash embedder producing vectors of the given
// dimension (DefaultEmbeddingDimensions if dims <= 0).
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultEmbeddingDimensions
	}
	return &HashEmbedder{
		dims:    dims,
		weights: defaultKeywordWeights(),
	}
}

// Dimensions returns the embedding dimension
func (e *HashEmbedder) Dimensions() int {
	return e.dims
}

// Embed generates the embedding for the given text. The error is always nil;
// it exists to satisfy the Embedder contract shared with remote
// implementations.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, e.dims)

	tokens := strings.Fields(text)
	for i, token := range tokens {
		weight := e.weights[strings.ToUpper(token)]
		if weight == 0 {
			weight = 1.0
		}
		for j, r := range []rune(token) {
			idx := (int(r) + i + j) % e.dims
			vec[idx] += math.Sin(float64(r)*0.1) * weight
		}
	}

	e.foldStructuralFeatures(vec, strings.ToUpper(text))

	l2Normalize(vec)

	out := make([]float32, e.dims)
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out, nil
}

// foldStructuralFeatures writes query-shape features into the tail region
// (last ~10% of dimensions): presence flags contribute 0.5 each, table and
// predicate counts contribute 0.1 per occurrence.
func (e *HashEmbedder) foldStructuralFeatures(vec []float64, upper string) {
	tail := e.dims / 10
	if tail < 1 {
		tail = 1
	}
	tailStart := e.dims - tail

	slot := func(k int) int {
		return tailStart + k%tail
	}

	tokens := strings.Fields(upper)

	if containsToken(tokens, "JOIN") {
		vec[slot(0)] += 0.5
	}
	if strings.Contains(upper, "GROUP BY") {
		vec[slot(1)] += 0.5
	}
	if strings.Contains(upper, "ORDER BY") {
		vec[slot(2)] += 0.5
	}
	if containsToken(tokens, "LIMIT") {
		vec[slot(3)] += 0.5
	}
	if hasAggregation(upper) {
		vec[slot(4)] += 0.5
	}

	tableRefs := countTokens(tokens, "FROM") + countTokens(tokens, "JOIN")
	vec[slot(5)] += float64(tableRefs) * 0.1

	predicates := countTokens(tokens, "WHERE") + countTokens(tokens, "AND") + countTokens(tokens, "OR")
	vec[slot(6)] += float64(predicates) * 0.1
}

var aggregationFuncs = []string{"COUNT(", "SUM(", "AVG(", "MIN(", "MAX("}

func hasAggregation(upper string) bool {
	for _, fn := range aggregationFuncs {
		if strings.Contains(upper, fn) {
			return true
		}
	}
	return false
}

func containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}

func countTokens(tokens []string, want string) int {
	count := 0
	for _, t := range tokens {
		if t == want {
			count++
		}
	}
	return count
}

// l2Normalize divides every component by the vector's Euclidean norm.
// A zero vector is left unchanged.
func l2Normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

// defaultKeywordWeights returns elevated weights for query-shape keywords.
// Unknown tokens default to 1.0.
func defaultKeywordWeights() map[string]float64 {
	return map[string]float64{
		"SELECT": 2.0,
		"FROM":   1.8,
		"WHERE":  1.8,
		"JOIN":   1.6,
		"GROUP":  1.5,
		"ORDER":  1.5,
		"HAVING": 1.4,
		"BY":     1.3,
		"LIMIT":  1.3,
		"COUNT":  1.4,
		"SUM":    1.4,
		"AVG":    1.4,
		"MIN":    1.4,
		"MAX":    1.4,
		"INSERT": 1.7,
		"UPDATE": 1.7,
		"DELETE": 1.7,
	}
}
