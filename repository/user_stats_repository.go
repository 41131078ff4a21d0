package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gamerfie/game-vault/database"
	"github.com/gamerfie/game-vault/models"
)

// UserStatsRepository handles the statistics challenge rules are checked against
type UserStatsRepository struct{}

// NewUserStatsRepository creates a new user stats repository
func NewUserStatsRepository() *UserStatsRepository {
	return &UserStatsRepository{}
}

// Get returns a user's statistics, nil when none were recorded
func (r *UserStatsRepository) Get(ctx context.Context, userID string) (*models.UserStats, error) {
	var s models.UserStats
	err := queryRowContext(ctx, database.DB, `
		SELECT user_id, completed_games, achievements, playtime, level, score, updated_at
		FROM user_stats WHERE user_id = ?`, userID,
	).Scan(&s.UserID, &s.CompletedGames, &s.Achievements, &s.Playtime, &s.Level, &s.Score, &s.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	s.UpdatedAt = utc(s.UpdatedAt)
	return &s, nil
}

// Upsert replaces a user's statistics
func (r *UserStatsRepository) Upsert(ctx context.Context, s *models.UserStats) error {
	return database.WithTransaction(ctx, func(tx *sql.Tx) error {
		var exists int
		err := queryRowContext(ctx, tx, `SELECT 1 FROM user_stats WHERE user_id = ?`, s.UserID).Scan(&exists)

		switch {
		case err == sql.ErrNoRows:
			_, err = execContext(ctx, tx, `
				INSERT INTO user_stats (user_id, completed_games, achievements, playtime, level, score, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				s.UserID, s.CompletedGames, s.Achievements, s.Playtime, s.Level, s.Score, utc(s.UpdatedAt))
		case err == nil:
			_, err = execContext(ctx, tx, `
				UPDATE user_stats
				SET completed_games = ?, achievements = ?, playtime = ?, level = ?, score = ?, updated_at = ?
				WHERE user_id = ?`,
				s.CompletedGames, s.Achievements, s.Playtime, s.Level, s.Score, utc(s.UpdatedAt), s.UserID)
		}
		if err != nil {
			return fmt.Errorf("failed to upsert user stats: %w", err)
		}
		return nil
	})
}
