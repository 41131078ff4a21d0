package services

import (
	"sync"
	"time"

	"github.com/gamerfie/game-vault/metrics"
	"github.com/gamerfie/game-vault/models"
)

// leaderboardCache keeps computed leaderboards per challenge for a short TTL.
// A non-positive TTL disables caching.
type leaderboardCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cachedLeaderboard
}

type cachedLeaderboard struct {
	entries   []models.LeaderboardEntry
	expiresAt time.Time
}

func newLeaderboardCache(ttl time.Duration) *leaderboardCache {
	return &leaderboardCache{
		ttl:     ttl,
		entries: make(map[string]cachedLeaderboard),
	}
}

func (c *leaderboardCache) get(challengeID string, now time.Time) ([]models.LeaderboardEntry, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.RLock()
	cached, ok := c.entries[challengeID]
	c.mu.RUnlock()

	if !ok || !now.Before(cached.expiresAt) {
		metrics.LeaderboardCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.LeaderboardCacheLookups.WithLabelValues("hit").Inc()
	return append([]models.LeaderboardEntry(nil), cached.entries...), true
}

func (c *leaderboardCache) set(challengeID string, entries []models.LeaderboardEntry, now time.Time) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for id, cached := range c.entries {
		if !now.Before(cached.expiresAt) {
			delete(c.entries, id)
		}
	}

	c.entries[challengeID] = cachedLeaderboard{
		entries:   append([]models.LeaderboardEntry(nil), entries...),
		expiresAt: now.Add(c.ttl),
	}
}

// invalidate drops the cached leaderboard of a challenge
func (c *leaderboardCache) invalidate(challengeID string) {
	c.mu.Lock()
	delete(c.entries, challengeID)
	c.mu.Unlock()
}
