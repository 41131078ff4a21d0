package models

import "time"

// UserStats is the statistics snapshot that challenge rules are evaluated against.
// A nil field means the statistic is unknown for the user.
type UserStats struct {
	UserID         string    `json:"user_id"`
	CompletedGames *int      `json:"completed_games"`
	Achievements   *int      `json:"achievements"`
	Playtime       *float64  `json:"playtime"`
	Level          *int      `json:"level"`
	Score          *int      `json:"score"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UpdateUserStatsRequest is the request body for replacing a user's statistics
type UpdateUserStatsRequest struct {
	CompletedGames *int     `json:"completed_games" binding:"omitempty,gte=0"`
	Achievements   *int     `json:"achievements" binding:"omitempty,gte=0"`
	Playtime       *float64 `json:"playtime" binding:"omitempty,gte=0"`
	Level          *int     `json:"level" binding:"omitempty,gte=0"`
	Score          *int     `json:"score" binding:"omitempty,gte=0"`
}
