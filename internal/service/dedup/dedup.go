package dedup

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Guard decides whether a delivery attempt for an (event type, user)
// pair is a near-duplicate of a very recent one and should be
// suppressed before it enters the queue.
type Guard interface {
	Accept(eventType, userID string) bool
}

// MemoryGuard is the default in-process guard. State is volatile by
// design: duplicates are expected to come from rapid repeated calls
// within one process lifetime, not cross-restart replay.
type MemoryGuard struct {
	seen *cache.Cache
}

// NewMemoryGuard builds a guard with the given suppression window and
// cleanup horizon. The cache janitor purges expired entries every
// cleanup interval, bounding memory under sustained traffic.
func NewMemoryGuard(window, cleanup time.Duration) *MemoryGuard {
	return &MemoryGuard{
		seen: cache.New(window, cleanup),
	}
}

// Accept records the pair and returns true, unless the pair was already
// accepted within the window. A rejected call leaves state unchanged:
// Add never overwrites a live entry, so a burst of duplicates does not
// keep extending the window.
func (g *MemoryGuard) Accept(eventType, userID string) bool {
	key := eventType + ":" + userID
	return g.seen.Add(key, time.Now(), cache.DefaultExpiration) == nil
}
