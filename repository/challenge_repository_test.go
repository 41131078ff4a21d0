package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamerfie/game-vault/database/dbtest"
	"github.com/gamerfie/game-vault/models"
)

var baseTime = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func newChallenge(creator string) *models.Challenge {
	return &models.Challenge{
		Title:       "Summer Marathon",
		Description: "Play as much as you can",
		Type:        models.ChallengeTypeCompetitive,
		Status:      models.ChallengeStatusUpcoming,
		StartDate:   baseTime.Add(24 * time.Hour),
		EndDate:     baseTime.Add(30 * 24 * time.Hour),
		CreatorID:   creator,
		Goals: []models.ChallengeGoal{
			{Type: models.GoalTypePlayTime, Target: 10, Description: strPtr("Ten hours")},
			{Type: models.GoalTypeCompleteGames, Target: 2},
		},
		Rewards: []models.ChallengeReward{
			{Type: models.RewardTypeBadge, Name: "Marathoner", Description: "Finished"},
		},
		Rules:     []string{"Complete 1 game", "Reach level 3"},
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
}

func TestChallengeRepositoryCreateAndGet(t *testing.T) {
	dbtest.Setup(t)
	ctx := context.Background()
	repo := NewChallengeRepository()

	c := newChallenge("user-1")
	c.MaxParticipants = intPtr(10)
	require.NoError(t, repo.Create(ctx, c))
	require.NotEmpty(t, c.ID)
	require.NotEmpty(t, c.Goals[0].ID)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, c.Title, got.Title)
	assert.Equal(t, models.ChallengeTypeCompetitive, got.Type)
	assert.True(t, c.StartDate.Equal(got.StartDate))
	assert.True(t, c.EndDate.Equal(got.EndDate))
	assert.Nil(t, got.MinParticipants)
	require.NotNil(t, got.MaxParticipants)
	assert.Equal(t, 10, *got.MaxParticipants)
	assert.Nil(t, got.CoverURL)

	require.Len(t, got.Goals, 2)
	assert.Equal(t, c.Goals[0].ID, got.Goals[0].ID)
	assert.Equal(t, models.GoalTypePlayTime, got.Goals[0].Type)
	assert.Equal(t, "Ten hours", *got.Goals[0].Description)
	assert.Nil(t, got.Goals[1].Description)
	require.Len(t, got.Rewards, 1)
	assert.Equal(t, "Marathoner", got.Rewards[0].Name)
	assert.Equal(t, []string{"Complete 1 game", "Reach level 3"}, got.Rules)
	assert.Equal(t, 0, got.ParticipantCount)
}

func TestChallengeRepositoryGetMissing(t *testing.T) {
	dbtest.Setup(t)

	got, err := NewChallengeRepository().GetByID(context.Background(), "does-not-exist")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestChallengeRepositoryList(t *testing.T) {
	dbtest.Setup(t)
	ctx := context.Background()
	repo := NewChallengeRepository()

	first := newChallenge("user-1")
	second := newChallenge("user-2")
	second.Type = models.ChallengeTypeCollaborative
	second.Status = models.ChallengeStatusActive
	second.CreatedAt = baseTime.Add(time.Hour)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	all, err := repo.List(ctx, models.ChallengeListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")
	assert.Len(t, all[1].Goals, 2)

	// Stored status is not a query filter
	byStatus, err := repo.List(ctx, models.ChallengeListFilter{Status: models.ChallengeStatusActive})
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	byType, err := repo.List(ctx, models.ChallengeListFilter{Type: models.ChallengeTypeCompetitive})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, first.ID, byType[0].ID)

	paged, err := repo.List(ctx, models.ChallengeListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, first.ID, paged[0].ID)

	open, err := repo.ListNonCompleted(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestChallengeRepositoryUpdate(t *testing.T) {
	dbtest.Setup(t)
	ctx := context.Background()
	repo := NewChallengeRepository()

	c := newChallenge("user-1")
	require.NoError(t, repo.Create(ctx, c))
	oldGoalID := c.Goals[0].ID

	c.Title = "Winter Marathon"
	c.CoverURL = strPtr("https://cdn.example.com/winter.png")
	c.Goals = []models.ChallengeGoal{{Type: models.GoalTypeReachLevel, Target: 5}}
	c.Rules = []string{}
	c.UpdatedAt = baseTime.Add(time.Minute)
	require.NoError(t, repo.Update(ctx, c, ReplaceSet{Goals: true, Rules: true}))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Winter Marathon", got.Title)
	assert.Equal(t, "https://cdn.example.com/winter.png", *got.CoverURL)
	require.Len(t, got.Goals, 1)
	assert.NotEqual(t, oldGoalID, got.Goals[0].ID)
	assert.Empty(t, got.Rules)
	assert.Len(t, got.Rewards, 1, "rewards untouched")
}

func TestChallengeRepositoryUpdateStatus(t *testing.T) {
	dbtest.Setup(t)
	ctx := context.Background()
	repo := NewChallengeRepository()

	c := newChallenge("user-1")
	require.NoError(t, repo.Create(ctx, c))
	require.NoError(t, repo.UpdateStatus(ctx, c.ID, models.ChallengeStatusCompleted))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusCompleted, got.Status)

	open, err := repo.ListNonCompleted(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestChallengeRepositoryDeleteCascades(t *testing.T) {
	dbtest.Setup(t)
	ctx := context.Background()
	repo := NewChallengeRepository()
	participants := NewParticipantRepository()

	c := newChallenge("user-1")
	require.NoError(t, repo.Create(ctx, c))
	p := &models.Participant{ChallengeID: c.ID, UserID: "user-2", JoinedAt: baseTime}
	require.NoError(t, participants.Add(ctx, p, nil))
	require.NoError(t, participants.SetProgress(ctx, p.ID, c.Goals[0].ID, 3, baseTime))

	deleted, err := repo.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	member, err := participants.Get(ctx, c.ID, "user-2")
	require.NoError(t, err)
	assert.Nil(t, member)

	deleted, err = repo.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
