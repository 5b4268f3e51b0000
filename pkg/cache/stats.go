package cache

import (
	"container/heap"
	"encoding/json"
	"time"
)

// entryOverheadBytes approximates per-entry bookkeeping cost beyond the
// measured fields.
const entryOverheadBytes = 128

// Stats returns a snapshot of cache statistics. It is best-effort by design
// and never fails.
func (c *SemanticQueryCache) Stats() *CacheStats {
	hits := c.hitCount.Load()
	misses := c.missCount.Load()

	c.mu.RLock()
	entries := c.index.len()
	memory := c.memoryBytes
	avgSim := c.avgSimilarity
	c.mu.RUnlock()

	stats := &CacheStats{
		TotalEntries:     entries,
		TotalHits:        hits,
		TotalMisses:      misses,
		AvgSimilarity:    avgSim,
		MemoryUsageBytes: memory,
		Timestamp:        time.Now(),
	}

	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}

	return stats
}

// TopQueries returns the most frequently accessed entries, ordered by
// descending access count, using a min heap for efficient top-K selection.
func (c *SemanticQueryCache) TopQueries(limit int) []*CacheEntry {
	if limit <= 0 {
		return nil
	}

	h := &entryHeap{}
	heap.Init(h)

	c.mu.RLock()
	for _, entry := range c.index.entries {
		if h.Len() < limit {
			heap.Push(h, entry)
		} else if entry.AccessCount > (*h)[0].AccessCount {
			heap.Pop(h)
			heap.Push(h, entry)
		}
	}
	c.mu.RUnlock()

	results := make([]*CacheEntry, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(*CacheEntry)
	}

	return results
}

// observeSimilarityLocked folds a hit similarity into the running mean.
// Callers hold mu.
func (c *SemanticQueryCache) observeSimilarityLocked(similarity float64) {
	c.simSamples++
	c.avgSimilarity += (similarity - c.avgSimilarity) / float64(c.simSamples)
}

// estimateEntrySize approximates an entry's memory footprint using a
// serialized-size proxy for the payload. Unserializable payloads contribute
// only the fixed overhead; the estimate never fails.
func estimateEntrySize(entry *CacheEntry) int64 {
	size := int64(len(entry.Query) + len(entry.NormalizedQuery))
	size += int64(len(entry.Embedding) * 4)
	size += entryOverheadBytes

	if entry.Payload != nil {
		if data, err := json.Marshal(entry.Payload); err == nil {
			size += int64(len(data))
		}
	}
	if entry.Metadata != nil {
		if data, err := json.Marshal(entry.Metadata); err == nil {
			size += int64(len(data))
		}
	}

	return size
}

// Min heap implementation for top-K selection
type entryHeap []*CacheEntry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return h[i].AccessCount < h[j].AccessCount }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(*CacheEntry))
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
