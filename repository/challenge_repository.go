package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gamerfie/game-vault/database"
	"github.com/gamerfie/game-vault/models"
)

const challengeColumns = `
	c.id, c.title, c.description, c.type, c.status, c.start_date, c.end_date,
	c.min_participants, c.max_participants, c.cover_url, c.creator_id, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM challenge_participants p WHERE p.challenge_id = c.id)`

// ChallengeRepository handles challenge database operations
type ChallengeRepository struct{}

// NewChallengeRepository creates a new challenge repository
func NewChallengeRepository() *ChallengeRepository {
	return &ChallengeRepository{}
}

// ReplaceSet selects which child collections an update rewrites
type ReplaceSet struct {
	Goals   bool
	Rewards bool
	Rules   bool
}

// Create stores a challenge with its goals, rewards and rules in one transaction.
// Missing IDs are generated.
func (r *ChallengeRepository) Create(ctx context.Context, c *models.Challenge) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	return database.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := execContext(ctx, tx, `
			INSERT INTO challenges (id, title, description, type, status, start_date, end_date,
				min_participants, max_participants, cover_url, creator_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Title, c.Description, c.Type, c.Status, utc(c.StartDate), utc(c.EndDate),
			c.MinParticipants, c.MaxParticipants, c.CoverURL, c.CreatorID, utc(c.CreatedAt), utc(c.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to create challenge: %w", err)
		}

		if err := insertGoals(ctx, tx, c); err != nil {
			return err
		}
		if err := insertRewards(ctx, tx, c); err != nil {
			return err
		}
		return insertRules(ctx, tx, c)
	})
}

// GetByID returns a challenge with its children, nil when it does not exist
func (r *ChallengeRepository) GetByID(ctx context.Context, id string) (*models.Challenge, error) {
	var c models.Challenge
	err := scanChallenge(queryRowContext(ctx, database.DB, `
		SELECT `+challengeColumns+`
		FROM challenges c WHERE c.id = ?`, id), &c)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge by id: %w", err)
	}

	if err := r.loadChildren(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns challenges matching the type and creator of the filter, newest
// first. The stored status can lag the clock, so filter.Status is left to the caller.
func (r *ChallengeRepository) List(ctx context.Context, filter models.ChallengeListFilter) ([]models.Challenge, error) {
	var where []string
	var args []interface{}

	if filter.Type != "" {
		where = append(where, "c.type = ?")
		args = append(args, filter.Type)
	}
	if filter.CreatorID != "" {
		where = append(where, "c.creator_id = ?")
		args = append(args, filter.CreatorID)
	}

	stmt := `SELECT ` + challengeColumns + ` FROM challenges c`
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY c.created_at DESC, c.id"

	if filter.Limit > 0 {
		stmt += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	challenges, err := r.queryChallenges(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}

	for i := range challenges {
		if err := r.loadChildren(ctx, &challenges[i]); err != nil {
			return nil, err
		}
	}
	return challenges, nil
}

// ListNonCompleted returns challenges whose stored status is not completed.
// Children are not loaded.
func (r *ChallengeRepository) ListNonCompleted(ctx context.Context) ([]models.Challenge, error) {
	challenges, err := r.queryChallenges(ctx, `
		SELECT `+challengeColumns+`
		FROM challenges c WHERE c.status <> ?
		ORDER BY c.start_date`, models.ChallengeStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list open challenges: %w", err)
	}
	return challenges, nil
}

// Update writes the challenge's scalar fields and rewrites the selected children
func (r *ChallengeRepository) Update(ctx context.Context, c *models.Challenge, replace ReplaceSet) error {
	return database.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := execContext(ctx, tx, `
			UPDATE challenges
			SET title = ?, description = ?, status = ?, start_date = ?, end_date = ?,
				min_participants = ?, max_participants = ?, cover_url = ?, updated_at = ?
			WHERE id = ?`,
			c.Title, c.Description, c.Status, utc(c.StartDate), utc(c.EndDate),
			c.MinParticipants, c.MaxParticipants, c.CoverURL, utc(c.UpdatedAt), c.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update challenge: %w", err)
		}

		if replace.Goals {
			// Progress rows reference goals and cascade with them
			if _, err := execContext(ctx, tx, `DELETE FROM challenge_goals WHERE challenge_id = ?`, c.ID); err != nil {
				return fmt.Errorf("failed to clear challenge goals: %w", err)
			}
			if err := insertGoals(ctx, tx, c); err != nil {
				return err
			}
		}
		if replace.Rewards {
			if _, err := execContext(ctx, tx, `DELETE FROM challenge_rewards WHERE challenge_id = ?`, c.ID); err != nil {
				return fmt.Errorf("failed to clear challenge rewards: %w", err)
			}
			if err := insertRewards(ctx, tx, c); err != nil {
				return err
			}
		}
		if replace.Rules {
			if _, err := execContext(ctx, tx, `DELETE FROM challenge_rules WHERE challenge_id = ?`, c.ID); err != nil {
				return fmt.Errorf("failed to clear challenge rules: %w", err)
			}
			if err := insertRules(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateStatus stores a recomputed lifecycle status
func (r *ChallengeRepository) UpdateStatus(ctx context.Context, id string, status models.ChallengeStatus) error {
	return database.WithRetryContext(ctx, func() error {
		_, err := execContext(ctx, database.DB, `UPDATE challenges SET status = ? WHERE id = ?`, status, id)
		if err != nil {
			return fmt.Errorf("failed to update challenge status: %w", err)
		}
		return nil
	})
}

// Delete removes a challenge; goals, rewards, rules, participants, progress and
// claims cascade. Returns false when nothing was deleted.
func (r *ChallengeRepository) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := database.WithRetryContext(ctx, func() error {
		result, err := execContext(ctx, database.DB, `DELETE FROM challenges WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete challenge: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

func (r *ChallengeRepository) queryChallenges(ctx context.Context, stmt string, args ...interface{}) ([]models.Challenge, error) {
	rows, err := queryContext(ctx, database.DB, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	challenges := []models.Challenge{}
	for rows.Next() {
		var c models.Challenge
		if err := scanChallenge(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan challenge row: %w", err)
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

func (r *ChallengeRepository) loadChildren(ctx context.Context, c *models.Challenge) error {
	goals, err := r.goals(ctx, c.ID)
	if err != nil {
		return err
	}
	rewards, err := r.rewards(ctx, c.ID)
	if err != nil {
		return err
	}
	rules, err := r.rules(ctx, c.ID)
	if err != nil {
		return err
	}

	c.Goals, c.Rewards, c.Rules = goals, rewards, rules
	return nil
}

func (r *ChallengeRepository) goals(ctx context.Context, challengeID string) ([]models.ChallengeGoal, error) {
	rows, err := queryContext(ctx, database.DB, `
		SELECT id, challenge_id, type, target, description
		FROM challenge_goals WHERE challenge_id = ?
		ORDER BY position`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge goals: %w", err)
	}
	defer rows.Close()

	goals := []models.ChallengeGoal{}
	for rows.Next() {
		var g models.ChallengeGoal
		if err := rows.Scan(&g.ID, &g.ChallengeID, &g.Type, &g.Target, &g.Description); err != nil {
			return nil, fmt.Errorf("failed to scan goal row: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *ChallengeRepository) rewards(ctx context.Context, challengeID string) ([]models.ChallengeReward, error) {
	rows, err := queryContext(ctx, database.DB, `
		SELECT id, challenge_id, type, name, description, badge_id
		FROM challenge_rewards WHERE challenge_id = ?
		ORDER BY position`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge rewards: %w", err)
	}
	defer rows.Close()

	rewards := []models.ChallengeReward{}
	for rows.Next() {
		var rw models.ChallengeReward
		if err := rows.Scan(&rw.ID, &rw.ChallengeID, &rw.Type, &rw.Name, &rw.Description, &rw.BadgeID); err != nil {
			return nil, fmt.Errorf("failed to scan reward row: %w", err)
		}
		rewards = append(rewards, rw)
	}
	return rewards, rows.Err()
}

func (r *ChallengeRepository) rules(ctx context.Context, challengeID string) ([]string, error) {
	rows, err := queryContext(ctx, database.DB, `
		SELECT rule FROM challenge_rules WHERE challenge_id = ?
		ORDER BY position`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge rules: %w", err)
	}
	defer rows.Close()

	rules := []string{}
	for rows.Next() {
		var rule string
		if err := rows.Scan(&rule); err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func insertGoals(ctx context.Context, tx *sql.Tx, c *models.Challenge) error {
	for i := range c.Goals {
		g := &c.Goals[i]
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		g.ChallengeID = c.ID
		_, err := execContext(ctx, tx, `
			INSERT INTO challenge_goals (id, challenge_id, type, target, description, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			g.ID, g.ChallengeID, g.Type, g.Target, g.Description, i,
		)
		if err != nil {
			return fmt.Errorf("failed to create challenge goal: %w", err)
		}
	}
	return nil
}

func insertRewards(ctx context.Context, tx *sql.Tx, c *models.Challenge) error {
	for i := range c.Rewards {
		rw := &c.Rewards[i]
		if rw.ID == "" {
			rw.ID = uuid.NewString()
		}
		rw.ChallengeID = c.ID
		_, err := execContext(ctx, tx, `
			INSERT INTO challenge_rewards (id, challenge_id, type, name, description, badge_id, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rw.ID, rw.ChallengeID, rw.Type, rw.Name, rw.Description, rw.BadgeID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to create challenge reward: %w", err)
		}
	}
	return nil
}

func insertRules(ctx context.Context, tx *sql.Tx, c *models.Challenge) error {
	for i, rule := range c.Rules {
		_, err := execContext(ctx, tx, `
			INSERT INTO challenge_rules (id, challenge_id, rule, position)
			VALUES (?, ?, ?, ?)`,
			uuid.NewString(), c.ID, rule, i,
		)
		if err != nil {
			return fmt.Errorf("failed to create challenge rule: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChallenge(row rowScanner, c *models.Challenge) error {
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Type, &c.Status, &c.StartDate, &c.EndDate,
		&c.MinParticipants, &c.MaxParticipants, &c.CoverURL, &c.CreatorID, &c.CreatedAt, &c.UpdatedAt,
		&c.ParticipantCount)
	if err != nil {
		return err
	}
	c.StartDate, c.EndDate = utc(c.StartDate), utc(c.EndDate)
	c.CreatedAt, c.UpdatedAt = utc(c.CreatedAt), utc(c.UpdatedAt)
	return nil
}
