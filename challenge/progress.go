package challenge

import (
	"math"

	"github.com/gamerfie/game-vault/models"
)

// CalculateProgress returns the completion percentage of a challenge in [0, 100].
//
// Every goal weighs the same regardless of its target. A goal's share is capped
// at 100% so over-achieving one goal cannot make up for another. Goals without
// recorded progress count as 0%. A goal with a non-positive target is treated as
// already met, and negative or NaN progress values count as 0.
func CalculateProgress(goals []models.ChallengeGoal, progress models.GoalProgress) int {
	if len(goals) == 0 {
		return 0
	}

	total := 0.0
	for _, goal := range goals {
		total += GoalPercentage(goal, progress[goal.ID])
	}

	return int(math.Floor(total / float64(len(goals))))
}

// GoalPercentage returns the clamped completion of a single goal as a float in [0, 100]
func GoalPercentage(goal models.ChallengeGoal, current float64) float64 {
	if goal.Target <= 0 || math.IsNaN(goal.Target) {
		return 100
	}
	if math.IsNaN(current) || current < 0 {
		current = 0
	}
	return math.Min(100, current/goal.Target*100)
}
