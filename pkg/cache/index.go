package cache

import "math"

// CosineSimilarity computes the cosine similarity between two vectors.
// It returns 0 when either vector has zero norm. Vectors of different
// lengths are compared over their common prefix.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}

	var normA, normB float64
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// similarityIndex holds all live cache entries keyed by cache key and answers
// best-match queries with an exhaustive cosine scan. The index performs no
// locking of its own; the owning cache serializes access.
type similarityIndex struct {
	entries map[string]*CacheEntry
}

func newSimilarityIndex() *similarityIndex {
	return &similarityIndex{
		entries: make(map[string]*CacheEntry),
	}
}

func (idx *similarityIndex) insert(entry *CacheEntry) {
	idx.entries[entry.Key] = entry
}

func (idx *similarityIndex) get(key string) *CacheEntry {
	return idx.entries[key]
}

func (idx *similarityIndex) remove(key string) *CacheEntry {
	entry := idx.entries[key]
	delete(idx.entries, key)
	return entry
}

func (idx *similarityIndex) len() int {
	return len(idx.entries)
}

func (idx *similarityIndex) clear() {
	idx.entries = make(map[string]*CacheEntry)
}

// findBestMatch scans every live entry and returns the one with the highest
// cosine similarity at or above the threshold. Equal similarities are broken
// by preferring the more recently accessed entry. O(n) per lookup; callers
// targeting large cache sizes may swap in an approximate nearest-neighbor
// index behind the same contract.
func (idx *similarityIndex) findBestMatch(embedding []float32, threshold float64) (*CacheEntry, float64, bool) {
	var (
		best    *CacheEntry
		bestSim float64
	)

	for _, entry := range idx.entries {
		sim := CosineSimilarity(embedding, entry.Embedding)
		if sim < threshold {
			continue
		}
		switch {
		case best == nil || sim > bestSim:
			best = entry
			bestSim = sim
		case sim == bestSim && entry.LastAccessedAt.After(best.LastAccessedAt):
			best = entry
		}
	}

	if best == nil {
		return nil, 0, false
	}
	return best, bestSim, true
}
