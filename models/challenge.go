package models

import "time"

// ChallengeType decides how participants relate to each other
type ChallengeType string

const (
	ChallengeTypeCompetitive   ChallengeType = "competitive"
	ChallengeTypeCollaborative ChallengeType = "collaborative"
)

// ChallengeStatus is derived from the challenge's start and end dates
type ChallengeStatus string

const (
	ChallengeStatusUpcoming  ChallengeStatus = "upcoming"
	ChallengeStatusActive    ChallengeStatus = "active"
	ChallengeStatusCompleted ChallengeStatus = "completed"
)

// IsValidChallengeStatus checks if a status filter value is known
func IsValidChallengeStatus(s string) bool {
	switch ChallengeStatus(s) {
	case ChallengeStatusUpcoming, ChallengeStatusActive, ChallengeStatusCompleted:
		return true
	}
	return false
}

// GoalType is the measurable quantity a goal tracks
type GoalType string

const (
	GoalTypePlayTime        GoalType = "play_time"
	GoalTypeCompleteGames   GoalType = "complete_games"
	GoalTypeAchieveTrophies GoalType = "achieve_trophies"
	GoalTypeReviewGames     GoalType = "review_games"
	GoalTypeScorePoints     GoalType = "score_points"
	GoalTypeReachLevel      GoalType = "reach_level"
)

// RewardType is the kind of incentive granted on completion
type RewardType string

const (
	RewardTypeBadge  RewardType = "badge"
	RewardTypePoints RewardType = "points"
	RewardTypeTitle  RewardType = "title"
)

// Challenge is a time-boxed, goal-based community activity
type Challenge struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Type             ChallengeType     `json:"type"`
	Status           ChallengeStatus   `json:"status"`
	StartDate        time.Time         `json:"start_date"`
	EndDate          time.Time         `json:"end_date"`
	MinParticipants  *int              `json:"min_participants,omitempty"`
	MaxParticipants  *int              `json:"max_participants,omitempty"`
	CoverURL         *string           `json:"cover_url,omitempty"`
	CreatorID        string            `json:"creator_id"`
	Goals            []ChallengeGoal   `json:"goals"`
	Rewards          []ChallengeReward `json:"rewards"`
	Rules            []string          `json:"rules"`
	ParticipantCount int               `json:"participant_count"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// StatusAt returns the lifecycle status of the challenge at the given time
func (c *Challenge) StatusAt(now time.Time) ChallengeStatus {
	return StatusBetween(c.StartDate, c.EndDate, now)
}

// HasEnded reports whether the challenge end date has passed
func (c *Challenge) HasEnded(now time.Time) bool {
	return now.After(c.EndDate)
}

// HasStarted reports whether the challenge start date has been reached
func (c *Challenge) HasStarted(now time.Time) bool {
	return !now.Before(c.StartDate)
}

// StatusBetween computes the status for a start/end window
func StatusBetween(start, end, now time.Time) ChallengeStatus {
	switch {
	case now.Before(start):
		return ChallengeStatusUpcoming
	case now.After(end):
		return ChallengeStatusCompleted
	default:
		return ChallengeStatusActive
	}
}

// ChallengeGoal is one measurable objective of a challenge
type ChallengeGoal struct {
	ID          string   `json:"id"`
	ChallengeID string   `json:"challenge_id"`
	Type        GoalType `json:"type"`
	Target      float64  `json:"target"`
	Description *string  `json:"description,omitempty"`
}

// ChallengeReward is an incentive granted on challenge completion
type ChallengeReward struct {
	ID          string     `json:"id"`
	ChallengeID string     `json:"challenge_id"`
	Type        RewardType `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	BadgeID     *string    `json:"badge_id,omitempty"`
}

// ChallengeListFilter narrows down challenge listings
type ChallengeListFilter struct {
	Status    ChallengeStatus // matched against the live status, not the stored column
	Type      ChallengeType
	CreatorID string
	Limit     int
	Offset    int
}
