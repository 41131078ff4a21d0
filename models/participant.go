package models

import "time"

// Participant is a user who joined a challenge
type Participant struct {
	ID          string     `json:"id"`
	ChallengeID string     `json:"challenge_id"`
	UserID      string     `json:"user_id"`
	JoinedAt    time.Time  `json:"joined_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GoalProgress maps goal IDs to the accumulated value for that goal
type GoalProgress map[string]float64

// GoalProgressEntry is the progress of a participant on a single goal
type GoalProgressEntry struct {
	GoalID     string   `json:"goal_id"`
	Type       GoalType `json:"type"`
	Target     float64  `json:"target"`
	Value      float64  `json:"value"`
	Percentage int      `json:"percentage"`
}

// ParticipantProgress is a participant's full progress on a challenge
type ParticipantProgress struct {
	ChallengeID string              `json:"challenge_id"`
	UserID      string              `json:"user_id"`
	Goals       []GoalProgressEntry `json:"goals"`
	Progress    int                 `json:"progress"`
	JoinedAt    time.Time           `json:"joined_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// LeaderboardEntry is a participant's position on a challenge leaderboard
type LeaderboardEntry struct {
	Rank        int        `json:"rank"`
	UserID      string     `json:"user_id"`
	Progress    int        `json:"progress"`
	JoinedAt    time.Time  `json:"joined_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JoinedChallenge is a challenge as seen by one of its participants
type JoinedChallenge struct {
	Challenge   *Challenge `json:"challenge"`
	Progress    int        `json:"progress"`
	JoinedAt    time.Time  `json:"joined_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RewardClaim records that a user claimed a challenge reward
type RewardClaim struct {
	ID          string    `json:"id"`
	ChallengeID string    `json:"challenge_id"`
	RewardID    string    `json:"reward_id"`
	UserID      string    `json:"user_id"`
	ClaimedAt   time.Time `json:"claimed_at"`
}

// RecordProgressRequest is the request body for recording goal progress
type RecordProgressRequest struct {
	GoalID string   `json:"goal_id" binding:"required"`
	Value  *float64 `json:"value" binding:"required"`
}
