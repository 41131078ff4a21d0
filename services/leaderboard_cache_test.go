package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gamerfie/game-vault/models"
)

func TestLeaderboardCache(t *testing.T) {
	cache := newLeaderboardCache(time.Minute)
	entries := []models.LeaderboardEntry{{Rank: 1, UserID: "alice", Progress: 50}}

	_, ok := cache.get("c1", t0)
	assert.False(t, ok)

	cache.set("c1", entries, t0)
	got, ok := cache.get("c1", t0.Add(30*time.Second))
	assert.True(t, ok)
	assert.Equal(t, entries, got)

	// Callers get their own copy
	got[0].Progress = 99
	again, _ := cache.get("c1", t0)
	assert.Equal(t, 50, again[0].Progress)

	_, ok = cache.get("c1", t0.Add(time.Minute))
	assert.False(t, ok, "expired")

	cache.set("c1", entries, t0)
	cache.invalidate("c1")
	_, ok = cache.get("c1", t0)
	assert.False(t, ok, "invalidated")
}

func TestLeaderboardCacheDisabled(t *testing.T) {
	cache := newLeaderboardCache(0)
	cache.set("c1", []models.LeaderboardEntry{{Rank: 1}}, t0)

	_, ok := cache.get("c1", t0)
	assert.False(t, ok)
}

func TestLeaderboardCacheSweepsExpired(t *testing.T) {
	cache := newLeaderboardCache(time.Minute)
	cache.set("old", nil, t0)
	cache.set("new", nil, t0.Add(2*time.Minute))

	cache.mu.RLock()
	defer cache.mu.RUnlock()
	assert.NotContains(t, cache.entries, "old")
	assert.Contains(t, cache.entries, "new")
}
