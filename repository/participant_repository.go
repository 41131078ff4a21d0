package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gamerfie/game-vault/database"
	"github.com/gamerfie/game-vault/models"
)

// ParticipantRepository handles challenge membership and goal progress
type ParticipantRepository struct{}

// NewParticipantRepository creates a new participant repository
func NewParticipantRepository() *ParticipantRepository {
	return &ParticipantRepository{}
}

// Add inserts a participant. With a non-nil capacity the current participant
// count is checked inside the same transaction, so concurrent joins cannot
// overfill the challenge. Returns ErrDuplicate or ErrCapacityReached.
func (r *ParticipantRepository) Add(ctx context.Context, p *models.Participant, capacity *int) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	return database.WithTransaction(ctx, func(tx *sql.Tx) error {
		// Serializes joins on the same challenge for MySQL and Postgres
		var id string
		err := queryRowContext(ctx, tx, `SELECT id FROM challenges WHERE id = ?`+lockClause(), p.ChallengeID).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to lock challenge: %w", err)
		}

		if capacity != nil {
			var count int
			err := queryRowContext(ctx, tx, `
				SELECT COUNT(*) FROM challenge_participants WHERE challenge_id = ?`, p.ChallengeID).Scan(&count)
			if err != nil {
				return fmt.Errorf("failed to count participants: %w", err)
			}
			if count >= *capacity {
				return ErrCapacityReached
			}
		}

		_, err = execContext(ctx, tx, `
			INSERT INTO challenge_participants (id, challenge_id, user_id, joined_at)
			VALUES (?, ?, ?, ?)`,
			p.ID, p.ChallengeID, p.UserID, utc(p.JoinedAt),
		)
		if database.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("failed to add participant: %w", err)
		}
		return nil
	})
}

// Get returns the membership of a user in a challenge, nil when absent
func (r *ParticipantRepository) Get(ctx context.Context, challengeID, userID string) (*models.Participant, error) {
	var p models.Participant
	err := queryRowContext(ctx, database.DB, `
		SELECT id, challenge_id, user_id, joined_at, completed_at
		FROM challenge_participants WHERE challenge_id = ? AND user_id = ?`,
		challengeID, userID,
	).Scan(&p.ID, &p.ChallengeID, &p.UserID, &p.JoinedAt, &p.CompletedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	normalizeParticipant(&p)
	return &p, nil
}

// Remove deletes a membership together with its goal progress.
// Returns false when the user was not a participant.
func (r *ParticipantRepository) Remove(ctx context.Context, challengeID, userID string) (bool, error) {
	var removed bool
	err := database.WithTransaction(ctx, func(tx *sql.Tx) error {
		var participantID string
		err := queryRowContext(ctx, tx, `
			SELECT id FROM challenge_participants WHERE challenge_id = ? AND user_id = ?`,
			challengeID, userID).Scan(&participantID)
		if err == sql.ErrNoRows {
			removed = false
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to find participant: %w", err)
		}

		if _, err := execContext(ctx, tx, `DELETE FROM challenge_goal_progress WHERE participant_id = ?`, participantID); err != nil {
			return fmt.Errorf("failed to delete participant progress: %w", err)
		}
		if _, err := execContext(ctx, tx, `DELETE FROM challenge_participants WHERE id = ?`, participantID); err != nil {
			return fmt.Errorf("failed to delete participant: %w", err)
		}

		removed = true
		return nil
	})
	return removed, err
}

// Count returns the number of participants of a challenge
func (r *ParticipantRepository) Count(ctx context.Context, challengeID string) (int, error) {
	var count int
	err := queryRowContext(ctx, database.DB, `
		SELECT COUNT(*) FROM challenge_participants WHERE challenge_id = ?`, challengeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

// ListByChallenge returns all participants of a challenge in join order
func (r *ParticipantRepository) ListByChallenge(ctx context.Context, challengeID string) ([]models.Participant, error) {
	return r.list(ctx, `
		SELECT id, challenge_id, user_id, joined_at, completed_at
		FROM challenge_participants WHERE challenge_id = ?
		ORDER BY joined_at, id`, challengeID)
}

// ListByUser returns every membership of a user, most recent first
func (r *ParticipantRepository) ListByUser(ctx context.Context, userID string) ([]models.Participant, error) {
	return r.list(ctx, `
		SELECT id, challenge_id, user_id, joined_at, completed_at
		FROM challenge_participants WHERE user_id = ?
		ORDER BY joined_at DESC, id`, userID)
}

func (r *ParticipantRepository) list(ctx context.Context, stmt string, args ...interface{}) ([]models.Participant, error) {
	rows, err := queryContext(ctx, database.DB, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	participants := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.ChallengeID, &p.UserID, &p.JoinedAt, &p.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		normalizeParticipant(&p)
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// SetProgress stores the current value of one goal for a participant
func (r *ParticipantRepository) SetProgress(ctx context.Context, participantID, goalID string, value float64, at time.Time) error {
	return database.WithTransaction(ctx, func(tx *sql.Tx) error {
		// MySQL reports zero affected rows for unchanged values, so check for the row first
		var exists int
		err := queryRowContext(ctx, tx, `
			SELECT 1 FROM challenge_goal_progress WHERE participant_id = ? AND goal_id = ?`,
			participantID, goalID).Scan(&exists)

		switch {
		case err == sql.ErrNoRows:
			_, err = execContext(ctx, tx, `
				INSERT INTO challenge_goal_progress (participant_id, goal_id, value, updated_at)
				VALUES (?, ?, ?, ?)`,
				participantID, goalID, value, utc(at))
		case err == nil:
			_, err = execContext(ctx, tx, `
				UPDATE challenge_goal_progress SET value = ?, updated_at = ?
				WHERE participant_id = ? AND goal_id = ?`,
				value, utc(at), participantID, goalID)
		}
		if err != nil {
			return fmt.Errorf("failed to set goal progress: %w", err)
		}
		return nil
	})
}

// GetProgress returns the recorded goal values of a participant
func (r *ParticipantRepository) GetProgress(ctx context.Context, participantID string) (models.GoalProgress, error) {
	rows, err := queryContext(ctx, database.DB, `
		SELECT goal_id, value FROM challenge_goal_progress WHERE participant_id = ?`, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get goal progress: %w", err)
	}
	defer rows.Close()

	progress := models.GoalProgress{}
	for rows.Next() {
		var goalID string
		var value float64
		if err := rows.Scan(&goalID, &value); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		progress[goalID] = value
	}
	return progress, rows.Err()
}

// ProgressByChallenge returns the goal values of every participant of a
// challenge, keyed by participant ID
func (r *ParticipantRepository) ProgressByChallenge(ctx context.Context, challengeID string) (map[string]models.GoalProgress, error) {
	rows, err := queryContext(ctx, database.DB, `
		SELECT gp.participant_id, gp.goal_id, gp.value
		FROM challenge_goal_progress gp
		JOIN challenge_participants p ON p.id = gp.participant_id
		WHERE p.challenge_id = ?`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge progress: %w", err)
	}
	defer rows.Close()

	byParticipant := make(map[string]models.GoalProgress)
	for rows.Next() {
		var participantID, goalID string
		var value float64
		if err := rows.Scan(&participantID, &goalID, &value); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		if byParticipant[participantID] == nil {
			byParticipant[participantID] = models.GoalProgress{}
		}
		byParticipant[participantID][goalID] = value
	}
	return byParticipant, rows.Err()
}

// MarkCompleted sets completed_at once; later calls keep the first timestamp.
// Returns true when this call set it.
func (r *ParticipantRepository) MarkCompleted(ctx context.Context, participantID string, at time.Time) (bool, error) {
	var marked bool
	err := database.WithRetryContext(ctx, func() error {
		result, err := execContext(ctx, database.DB, `
			UPDATE challenge_participants SET completed_at = ?
			WHERE id = ? AND completed_at IS NULL`, utc(at), participantID)
		if err != nil {
			return fmt.Errorf("failed to mark participant completed: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		marked = n > 0
		return nil
	})
	return marked, err
}

func normalizeParticipant(p *models.Participant) {
	p.JoinedAt = utc(p.JoinedAt)
	p.CompletedAt = utcPtr(p.CompletedAt)
}
