package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamerfie/game-vault/models"
	"github.com/gamerfie/game-vault/repository"
)

func TestLifecycleServiceRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t, nil)

	var invalidated []string
	lifecycle := NewLifecycleService(time.Minute, repository.NewChallengeRepository(), f.events, func(id string) {
		invalidated = append(invalidated, id)
	})
	lifecycle.now = func() time.Time { return f.now }

	changed, err := lifecycle.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, changed, "still upcoming")

	f.advance(2 * time.Hour)
	changed, err = lifecycle.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, recordedEvent{"challenge_status_changed", c.ID, "", models.ChallengeStatusActive}, f.events.last())
	assert.Equal(t, []string{c.ID}, invalidated)

	changed, err = lifecycle.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, changed, "stored status is current")

	f.advance(72 * time.Hour)
	changed, err = lifecycle.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	stored, err := repository.NewChallengeRepository().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusCompleted, stored.Status)

	open, err := repository.NewChallengeRepository().ListNonCompleted(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestLifecycleServiceStartStop(t *testing.T) {
	newFixture(t)

	lifecycle := NewLifecycleService(10*time.Millisecond, repository.NewChallengeRepository(), nil, nil)
	lifecycle.Start()
	time.Sleep(30 * time.Millisecond)
	lifecycle.Stop()
}
