package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gamerfie/game-vault/database"
	"github.com/gamerfie/game-vault/models"
)

// RewardClaimRepository handles claimed challenge rewards
type RewardClaimRepository struct{}

// NewRewardClaimRepository creates a new reward claim repository
func NewRewardClaimRepository() *RewardClaimRepository {
	return &RewardClaimRepository{}
}

// Create records a claim. Returns ErrDuplicate when the user already holds the reward.
func (r *RewardClaimRepository) Create(ctx context.Context, claim *models.RewardClaim) error {
	if claim.ID == "" {
		claim.ID = uuid.NewString()
	}

	return database.WithRetryContext(ctx, func() error {
		_, err := execContext(ctx, database.DB, `
			INSERT INTO reward_claims (id, challenge_id, reward_id, user_id, claimed_at)
			VALUES (?, ?, ?, ?, ?)`,
			claim.ID, claim.ChallengeID, claim.RewardID, claim.UserID, utc(claim.ClaimedAt),
		)
		if database.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("failed to create reward claim: %w", err)
		}
		return nil
	})
}

// CountByChallenge returns the number of claims on a challenge's rewards
func (r *RewardClaimRepository) CountByChallenge(ctx context.Context, challengeID string) (int, error) {
	var count int
	err := queryRowContext(ctx, database.DB, `
		SELECT COUNT(*) FROM reward_claims WHERE challenge_id = ?`, challengeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reward claims: %w", err)
	}
	return count, nil
}

// ListByUser returns a user's claims for one challenge
func (r *RewardClaimRepository) ListByUser(ctx context.Context, challengeID, userID string) ([]models.RewardClaim, error) {
	rows, err := queryContext(ctx, database.DB, `
		SELECT id, challenge_id, reward_id, user_id, claimed_at
		FROM reward_claims WHERE challenge_id = ? AND user_id = ?
		ORDER BY claimed_at`, challengeID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reward claims: %w", err)
	}
	defer rows.Close()

	claims := []models.RewardClaim{}
	for rows.Next() {
		var c models.RewardClaim
		if err := rows.Scan(&c.ID, &c.ChallengeID, &c.RewardID, &c.UserID, &c.ClaimedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reward claim row: %w", err)
		}
		c.ClaimedAt = utc(c.ClaimedAt)
		claims = append(claims, c)
	}
	return claims, rows.Err()
}
