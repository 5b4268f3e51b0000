package cache

import (
	"math"
	"time"
)

// expirationPolicy decides whether a found entry is still valid. Expired
// entries are removed lazily by the Get path that discovers them; there is
// no background sweep.
type expirationPolicy struct {
	strategy InvalidationStrategy
	ttl      time.Duration
}

// isValid reports whether the entry is still valid at the given time.
//
// Under StrategySmart the validity window since the last access is
// ttl * ln(accessCount + 1), so frequently accessed entries survive
// proportionally longer while rarely accessed ones expire close to the
// base TTL.
func (p expirationPolicy) isValid(entry *CacheEntry, now time.Time) bool {
	switch p.strategy {
	case StrategyManual:
		return true
	case StrategyTime:
		return now.Sub(entry.CreatedAt) <= p.ttl
	default: // StrategySmart
		adaptive := adaptiveTTL(p.ttl, entry.AccessCount)
		return now.Sub(entry.LastAccessedAt) < adaptive
	}
}

// adaptiveTTL scales the base TTL with the natural log of the access count.
func adaptiveTTL(ttl time.Duration, accessCount int64) time.Duration {
	return time.Duration(float64(ttl) * math.Log(float64(accessCount)+1))
}
