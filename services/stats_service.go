package services

import (
	"context"
	"time"

	"github.com/gamerfie/game-vault/models"
	"github.com/gamerfie/game-vault/repository"
)

// StatsService manages the per-user statistics used for challenge rules
type StatsService struct {
	stats *repository.UserStatsRepository
	now   func() time.Time
}

// NewStatsService creates a new stats service
func NewStatsService(stats *repository.UserStatsRepository) *StatsService {
	return &StatsService{
		stats: stats,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the user's statistics; unknown users get an empty snapshot
func (s *StatsService) Get(ctx context.Context, userID string) (*models.UserStats, error) {
	stats, err := s.stats.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return &models.UserStats{UserID: userID}, nil
	}
	return stats, nil
}

// Replace stores a full statistics snapshot for the user. Omitted fields become unknown.
func (s *StatsService) Replace(ctx context.Context, userID string, req models.UpdateUserStatsRequest) (*models.UserStats, error) {
	stats := &models.UserStats{
		UserID:         userID,
		CompletedGames: req.CompletedGames,
		Achievements:   req.Achievements,
		Playtime:       req.Playtime,
		Level:          req.Level,
		Score:          req.Score,
		UpdatedAt:      s.now(),
	}
	if err := s.stats.Upsert(ctx, stats); err != nil {
		return nil, err
	}
	return stats, nil
}
