package services

import "errors"

// Errors returned by the challenge services. Handlers map them to status codes.
var (
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrNotCreator          = errors.New("only the challenge creator can do this")
	ErrChallengeEnded      = errors.New("challenge has ended")
	ErrChallengeNotStarted = errors.New("challenge has not started yet")
	ErrAlreadyJoined       = errors.New("already joined this challenge")
	ErrChallengeFull       = errors.New("challenge has reached its maximum number of participants")
	ErrRulesNotMet         = errors.New("you do not meet the requirements of this challenge")
	ErrNotParticipant      = errors.New("not a participant of this challenge")
	ErrGoalNotFound        = errors.New("goal not found in this challenge")
	ErrGoalsLocked         = errors.New("goals cannot be changed after the challenge has started")
	ErrRewardsLocked       = errors.New("rewards cannot be changed after they have been claimed")
	ErrRewardNotFound      = errors.New("reward not found in this challenge")
	ErrNotCompleted        = errors.New("challenge is not completed yet")
	ErrAlreadyClaimed      = errors.New("reward already claimed")
	ErrInvalidProgress     = errors.New("progress value must be a finite, non-negative number")
)
