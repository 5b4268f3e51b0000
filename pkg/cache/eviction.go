package cache

import "time"

// minIdleSeconds floors the idle time used in access-rate scoring so a
// just-accessed entry does not divide by zero.
const minIdleSeconds = 0.001

// accessRate estimates how useful an entry is as accesses per second since
// its last hit. Higher is better.
func accessRate(entry *CacheEntry, now time.Time) float64 {
	idle := now.Sub(entry.LastAccessedAt).Seconds()
	if idle < minIdleSeconds {
		idle = minIdleSeconds
	}
	return float64(entry.AccessCount) / idle
}

// selectVictim returns the key of the entry with the lowest access-rate
// score, i.e. the least frequently and least recently useful entry.
// It returns "" for an empty table. Exactly one victim is selected per
// admission that needs room; callers needing bulk room call it repeatedly.
func selectVictim(entries map[string]*CacheEntry, now time.Time) string {
	var (
		victim     string
		lowestRate float64
		first      = true
	)

	for key, entry := range entries {
		rate := accessRate(entry, now)
		if first || rate < lowestRate {
			victim = key
			lowestRate = rate
			first = false
		}
	}

	return victim
}
