package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0.0},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestSimilarityIndexFindBestMatch(t *testing.T) {
	now := time.Now()

	makeEntry := func(key string, embedding []float32, lastAccessed time.Time) *CacheEntry {
		return &CacheEntry{
			Key:            key,
			Embedding:      embedding,
			LastAccessedAt: lastAccessed,
		}
	}

	t.Run("returns highest similarity above threshold", func(t *testing.T) {
		idx := newSimilarityIndex()
		idx.insert(makeEntry("far", []float32{0, 1, 0}, now))
		idx.insert(makeEntry("near", []float32{1, 0.1, 0}, now))

		entry, sim, ok := idx.findBestMatch([]float32{1, 0, 0}, 0.5)
		require.True(t, ok)
		assert.Equal(t, "near", entry.Key)
		assert.Greater(t, sim, 0.9)
	})

	t.Run("nothing above threshold", func(t *testing.T) {
		idx := newSimilarityIndex()
		idx.insert(makeEntry("a", []float32{0, 1}, now))

		_, _, ok := idx.findBestMatch([]float32{1, 0}, 0.85)
		assert.False(t, ok)
	})

	t.Run("exact threshold is a match", func(t *testing.T) {
		idx := newSimilarityIndex()
		idx.insert(makeEntry("a", []float32{1, 0}, now))

		_, sim, ok := idx.findBestMatch([]float32{1, 0}, 1.0)
		require.True(t, ok)
		assert.InDelta(t, 1.0, sim, 1e-9)
	})

	t.Run("ties break toward most recently accessed", func(t *testing.T) {
		idx := newSimilarityIndex()
		idx.insert(makeEntry("old", []float32{1, 0}, now.Add(-time.Hour)))
		idx.insert(makeEntry("recent", []float32{1, 0}, now))

		entry, _, ok := idx.findBestMatch([]float32{1, 0}, 0.85)
		require.True(t, ok)
		assert.Equal(t, "recent", entry.Key)
	})

	t.Run("empty index", func(t *testing.T) {
		idx := newSimilarityIndex()
		_, _, ok := idx.findBestMatch([]float32{1, 0}, 0)
		assert.False(t, ok)
	})
}

func TestSimilarityIndexLifecycle(t *testing.T) {
	idx := newSimilarityIndex()

	idx.insert(&CacheEntry{Key: "a"})
	idx.insert(&CacheEntry{Key: "b"})
	assert.Equal(t, 2, idx.len())
	assert.NotNil(t, idx.get("a"))

	removed := idx.remove("a")
	require.NotNil(t, removed)
	assert.Equal(t, "a", removed.Key)
	assert.Nil(t, idx.get("a"))
	assert.Nil(t, idx.remove("a"))

	idx.clear()
	assert.Equal(t, 0, idx.len())
}
