package services

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"
	"time"

	"github.com/gamerfie/game-vault/challenge"
	"github.com/gamerfie/game-vault/config"
	"github.com/gamerfie/game-vault/metrics"
	"github.com/gamerfie/game-vault/models"
	"github.com/gamerfie/game-vault/repository"
)

const defaultListLimit = 50

// EventBroadcaster pushes challenge changes to connected clients
type EventBroadcaster interface {
	BroadcastParticipantJoined(challengeID, userID string, participantCount int)
	BroadcastParticipantLeft(challengeID, userID string, participantCount int)
	BroadcastProgressUpdated(challengeID, userID string, progress int)
	BroadcastChallengeStatusChanged(challengeID string, status models.ChallengeStatus)
	BroadcastChallengeDeleted(challengeID string)
}

// ChallengeService implements challenge creation, membership, progress and rewards
type ChallengeService struct {
	cfg          *config.Config
	challenges   *repository.ChallengeRepository
	participants *repository.ParticipantRepository
	stats        *repository.UserStatsRepository
	claims       *repository.RewardClaimRepository
	events       EventBroadcaster
	leaderboards *leaderboardCache
	now          func() time.Time
}

// NewChallengeService creates a new challenge service. events may be nil.
func NewChallengeService(
	cfg *config.Config,
	challenges *repository.ChallengeRepository,
	participants *repository.ParticipantRepository,
	stats *repository.UserStatsRepository,
	claims *repository.RewardClaimRepository,
	events EventBroadcaster,
) *ChallengeService {
	if events == nil {
		events = noopBroadcaster{}
	}
	return &ChallengeService{
		cfg:          cfg,
		challenges:   challenges,
		participants: participants,
		stats:        stats,
		claims:       claims,
		events:       events,
		leaderboards: newLeaderboardCache(cfg.LeaderboardCacheTTL),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a validated challenge owned by creatorID
func (s *ChallengeService) Create(ctx context.Context, creatorID string, in *challenge.CreateChallengeInput) (*models.Challenge, error) {
	now := s.now()
	start, end := in.StartTime(), in.EndTime()

	c := &models.Challenge{
		Title:           in.Title,
		Description:     in.Description,
		Type:            models.ChallengeType(in.Type),
		Status:          models.StatusBetween(start, end, now),
		StartDate:       start,
		EndDate:         end,
		MinParticipants: in.MinParticipants,
		MaxParticipants: in.MaxParticipants,
		CoverURL:        in.CoverURL,
		CreatorID:       creatorID,
		Goals:           goalsFromInput(in.Goals),
		Rewards:         rewardsFromInput(in.Rewards),
		Rules:           rulesFromInput(in.Rules),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.challenges.Create(ctx, c); err != nil {
		return nil, err
	}

	metrics.ChallengeEvents.WithLabelValues(metrics.EventCreated).Inc()
	log.Printf("Challenge %s created by %s", c.ID, creatorID)
	return c, nil
}

// Get returns a challenge with its current lifecycle status
func (s *ChallengeService) Get(ctx context.Context, id string) (*models.Challenge, error) {
	c, err := s.challenges.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrChallengeNotFound
	}

	c.Status = c.StatusAt(s.now())
	return c, nil
}

// List returns challenges matching the filter. The limit is capped by configuration.
func (s *ChallengeService) List(ctx context.Context, filter models.ChallengeListFilter) ([]models.Challenge, error) {
	maxLimit := s.cfg.ChallengeListLimit
	if maxLimit <= 0 {
		maxLimit = defaultListLimit
	}
	if filter.Limit <= 0 || filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Stored status may lag the lifecycle ticker, so a status filter is applied to
	// the live status and the page is cut afterwards
	query := filter
	if filter.Status != "" {
		query.Limit, query.Offset = 0, 0
	}
	challenges, err := s.challenges.List(ctx, query)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := make([]models.Challenge, 0, len(challenges))
	for _, c := range challenges {
		c.Status = c.StatusAt(now)
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		result = append(result, c)
	}
	if filter.Status == "" {
		return result, nil
	}

	if filter.Offset >= len(result) {
		return []models.Challenge{}, nil
	}
	result = result[filter.Offset:]
	if len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Update applies a validated partial update. Only the creator may update.
func (s *ChallengeService) Update(ctx context.Context, userID, id string, in *challenge.UpdateChallengeInput) (*models.Challenge, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.CreatorID != userID {
		return nil, ErrNotCreator
	}

	now := s.now()
	if in.Goals != nil && c.HasStarted(now) {
		return nil, ErrGoalsLocked
	}
	if in.Rewards != nil {
		// Replacing rewards drops their claims
		claimed, err := s.claims.CountByChallenge(ctx, id)
		if err != nil {
			return nil, err
		}
		if claimed > 0 {
			return nil, ErrRewardsLocked
		}
	}

	previousStatus := c.Status
	if in.Title != nil {
		c.Title = *in.Title
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.StartTime() != nil {
		c.StartDate = *in.StartTime()
	}
	if in.EndTime() != nil {
		c.EndDate = *in.EndTime()
	}
	if in.MinParticipants != nil {
		c.MinParticipants = in.MinParticipants
	}
	if in.MaxParticipants != nil {
		c.MaxParticipants = in.MaxParticipants
	}
	if in.CoverURL != nil {
		c.CoverURL = in.CoverURL
	}

	replace := repository.ReplaceSet{
		Goals:   in.Goals != nil,
		Rewards: in.Rewards != nil,
		Rules:   in.Rules != nil,
	}
	if replace.Goals {
		c.Goals = goalsFromInput(in.Goals)
	}
	if replace.Rewards {
		c.Rewards = rewardsFromInput(in.Rewards)
	}
	if replace.Rules {
		c.Rules = rulesFromInput(in.Rules)
	}

	// The merged challenge must still satisfy the cross-field rules
	var verrs challenge.ValidationErrors
	if in.StartTime() != nil || in.EndTime() != nil {
		verrs = append(verrs, challenge.CheckWindow(c.StartDate, c.EndDate)...)
	}
	if in.MinParticipants != nil || in.MaxParticipants != nil {
		verrs = append(verrs, challenge.CheckParticipantBounds(c.MinParticipants, c.MaxParticipants)...)
	}
	if len(verrs) > 0 {
		return nil, verrs
	}

	c.Status = c.StatusAt(now)
	c.UpdatedAt = now
	if err := s.challenges.Update(ctx, c, replace); err != nil {
		return nil, err
	}

	s.leaderboards.invalidate(c.ID)
	if c.Status != previousStatus {
		s.events.BroadcastChallengeStatusChanged(c.ID, c.Status)
	}
	metrics.ChallengeEvents.WithLabelValues(metrics.EventUpdated).Inc()

	return s.Get(ctx, c.ID)
}

// Delete removes a challenge and everything attached to it. Only the creator may delete.
func (s *ChallengeService) Delete(ctx context.Context, userID, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.CreatorID != userID {
		return ErrNotCreator
	}

	deleted, err := s.challenges.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrChallengeNotFound
	}

	s.leaderboards.invalidate(id)
	s.events.BroadcastChallengeDeleted(id)
	metrics.ChallengeEvents.WithLabelValues(metrics.EventDeleted).Inc()
	log.Printf("Challenge %s deleted by %s", id, userID)
	return nil
}

// Join adds the user to a challenge after checking its window, capacity and rules
func (s *ChallengeService) Join(ctx context.Context, userID, id string) (*models.Participant, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if c.HasEnded(now) {
		return nil, ErrChallengeEnded
	}

	existing, err := s.participants.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyJoined
	}

	if c.MaxParticipants != nil && c.ParticipantCount >= *c.MaxParticipants {
		return nil, ErrChallengeFull
	}

	stats, err := s.stats.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &models.UserStats{UserID: userID}
	}
	if !challenge.CheckRules(c.Rules, *stats) {
		return nil, ErrRulesNotMet
	}

	p := &models.Participant{ChallengeID: id, UserID: userID, JoinedAt: now}
	err = s.participants.Add(ctx, p, c.MaxParticipants)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return nil, ErrAlreadyJoined
	case errors.Is(err, repository.ErrCapacityReached):
		return nil, ErrChallengeFull
	case err != nil:
		return nil, err
	}

	s.leaderboards.invalidate(id)
	s.events.BroadcastParticipantJoined(id, userID, s.participantCount(ctx, id, c.ParticipantCount+1))
	metrics.ChallengeEvents.WithLabelValues(metrics.EventJoined).Inc()
	return p, nil
}

// Leave removes the user and their progress from a challenge
func (s *ChallengeService) Leave(ctx context.Context, userID, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.participants.Remove(ctx, id, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotParticipant
	}

	s.leaderboards.invalidate(id)
	s.events.BroadcastParticipantLeft(id, userID, s.participantCount(ctx, id, c.ParticipantCount-1))
	metrics.ChallengeEvents.WithLabelValues(metrics.EventLeft).Inc()
	return nil
}

// RecordProgress stores the current value of one goal for the calling participant
// and returns the participant's updated progress
func (s *ChallengeService) RecordProgress(ctx context.Context, userID, id, goalID string, value float64) (*models.ParticipantProgress, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return nil, ErrInvalidProgress
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if c.HasEnded(now) {
		return nil, ErrChallengeEnded
	}
	if !c.HasStarted(now) {
		return nil, ErrChallengeNotStarted
	}

	p, err := s.participants.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotParticipant
	}

	if !hasGoal(c, goalID) {
		return nil, ErrGoalNotFound
	}

	if err := s.participants.SetProgress(ctx, p.ID, goalID, value, now); err != nil {
		return nil, err
	}

	progress, err := s.participants.GetProgress(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	percentage := challenge.CalculateProgress(c.Goals, progress)
	if percentage >= 100 && p.CompletedAt == nil {
		marked, err := s.participants.MarkCompleted(ctx, p.ID, now)
		if err != nil {
			return nil, err
		}
		if marked {
			p.CompletedAt = &now
			metrics.ChallengeEvents.WithLabelValues(metrics.EventComplete).Inc()
			log.Printf("Challenge %s completed by %s", id, userID)
		}
	}

	s.leaderboards.invalidate(id)
	s.events.BroadcastProgressUpdated(id, userID, percentage)
	metrics.ChallengeEvents.WithLabelValues(metrics.EventProgress).Inc()

	return buildProgress(c, p, progress), nil
}

// GetProgress returns the calling participant's progress on a challenge
func (s *ChallengeService) GetProgress(ctx context.Context, userID, id string) (*models.ParticipantProgress, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p, err := s.participants.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotParticipant
	}

	progress, err := s.participants.GetProgress(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return buildProgress(c, p, progress), nil
}

// Leaderboard ranks all participants by progress, earlier finishers and then
// earlier joiners first on ties
func (s *ChallengeService) Leaderboard(ctx context.Context, id string) ([]models.LeaderboardEntry, error) {
	now := s.now()
	if cached, ok := s.leaderboards.get(id, now); ok {
		return cached, nil
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	participants, err := s.participants.ListByChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	progress, err := s.participants.ProgressByChallenge(ctx, id)
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, models.LeaderboardEntry{
			UserID:      p.UserID,
			Progress:    challenge.CalculateProgress(c.Goals, progress[p.ID]),
			JoinedAt:    p.JoinedAt,
			CompletedAt: p.CompletedAt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Progress != b.Progress {
			return a.Progress > b.Progress
		}
		if !completedAtEqual(a.CompletedAt, b.CompletedAt) {
			return completedBefore(a.CompletedAt, b.CompletedAt)
		}
		return a.JoinedAt.Before(b.JoinedAt)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	s.leaderboards.set(id, entries, now)
	return entries, nil
}

// ClaimReward grants a reward of a challenge the user has fully completed
func (s *ChallengeService) ClaimReward(ctx context.Context, userID, id, rewardID string) (*models.RewardClaim, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !hasReward(c, rewardID) {
		return nil, ErrRewardNotFound
	}

	p, err := s.participants.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotParticipant
	}

	progress, err := s.participants.GetProgress(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if challenge.CalculateProgress(c.Goals, progress) < 100 {
		return nil, ErrNotCompleted
	}

	claim := &models.RewardClaim{
		ChallengeID: id,
		RewardID:    rewardID,
		UserID:      userID,
		ClaimedAt:   s.now(),
	}
	if err := s.claims.Create(ctx, claim); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyClaimed
		}
		return nil, err
	}

	metrics.ChallengeEvents.WithLabelValues(metrics.EventClaimed).Inc()
	return claim, nil
}

// MyClaims returns the rewards the user claimed on a challenge
func (s *ChallengeService) MyClaims(ctx context.Context, userID, id string) ([]models.RewardClaim, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.claims.ListByUser(ctx, id, userID)
}

// MyChallenges returns every challenge the user joined together with their progress
func (s *ChallengeService) MyChallenges(ctx context.Context, userID string) ([]models.JoinedChallenge, error) {
	memberships, err := s.participants.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	joined := make([]models.JoinedChallenge, 0, len(memberships))
	for _, p := range memberships {
		c, err := s.challenges.GetByID(ctx, p.ChallengeID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			// Deleted between the two queries
			continue
		}
		c.Status = c.StatusAt(now)

		progress, err := s.participants.GetProgress(ctx, p.ID)
		if err != nil {
			return nil, err
		}

		joined = append(joined, models.JoinedChallenge{
			Challenge:   c,
			Progress:    challenge.CalculateProgress(c.Goals, progress),
			JoinedAt:    p.JoinedAt,
			CompletedAt: p.CompletedAt,
		})
	}
	return joined, nil
}

// InvalidateLeaderboard drops the cached leaderboard of a challenge
func (s *ChallengeService) InvalidateLeaderboard(challengeID string) {
	s.leaderboards.invalidate(challengeID)
}

// participantCount returns the fresh participant count, falling back to an
// estimate when the count query fails
func (s *ChallengeService) participantCount(ctx context.Context, id string, estimate int) int {
	count, err := s.participants.Count(ctx, id)
	if err != nil {
		log.Printf("Warning: failed to count participants of %s: %v", id, err)
		if estimate < 0 {
			return 0
		}
		return estimate
	}
	return count
}

func buildProgress(c *models.Challenge, p *models.Participant, progress models.GoalProgress) *models.ParticipantProgress {
	goals := make([]models.GoalProgressEntry, 0, len(c.Goals))
	for _, g := range c.Goals {
		value := progress[g.ID]
		goals = append(goals, models.GoalProgressEntry{
			GoalID:     g.ID,
			Type:       g.Type,
			Target:     g.Target,
			Value:      value,
			Percentage: int(math.Floor(challenge.GoalPercentage(g, value))),
		})
	}

	return &models.ParticipantProgress{
		ChallengeID: c.ID,
		UserID:      p.UserID,
		Goals:       goals,
		Progress:    challenge.CalculateProgress(c.Goals, progress),
		JoinedAt:    p.JoinedAt,
		CompletedAt: p.CompletedAt,
	}
}

func hasGoal(c *models.Challenge, goalID string) bool {
	for _, g := range c.Goals {
		if g.ID == goalID {
			return true
		}
	}
	return false
}

func hasReward(c *models.Challenge, rewardID string) bool {
	for _, r := range c.Rewards {
		if r.ID == rewardID {
			return true
		}
	}
	return false
}

func completedAtEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// completedBefore orders finishers by completion time, unfinished last
func completedBefore(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.Before(*b)
}

func goalsFromInput(in []challenge.GoalInput) []models.ChallengeGoal {
	goals := make([]models.ChallengeGoal, 0, len(in))
	for _, g := range in {
		goals = append(goals, models.ChallengeGoal{
			Type:        models.GoalType(g.Type),
			Target:      *g.Target,
			Description: g.Description,
		})
	}
	return goals
}

func rewardsFromInput(in []challenge.RewardInput) []models.ChallengeReward {
	rewards := make([]models.ChallengeReward, 0, len(in))
	for _, r := range in {
		rewards = append(rewards, models.ChallengeReward{
			Type:        models.RewardType(r.Type),
			Name:        r.Name,
			Description: r.Description,
			BadgeID:     r.BadgeID,
		})
	}
	return rewards
}

func rulesFromInput(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string(nil), in...)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastParticipantJoined(string, string, int)                 {}
func (noopBroadcaster) BroadcastParticipantLeft(string, string, int)                   {}
func (noopBroadcaster) BroadcastProgressUpdated(string, string, int)                   {}
func (noopBroadcaster) BroadcastChallengeStatusChanged(string, models.ChallengeStatus) {}
func (noopBroadcaster) BroadcastChallengeDeleted(string)                               {}
