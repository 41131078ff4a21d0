package services

import (
	"context"
	"log"
	"time"

	"github.com/gamerfie/game-vault/repository"
)

// LifecycleService moves stored challenge statuses from upcoming to active to
// completed as their dates pass, and announces each change
type LifecycleService struct {
	interval   time.Duration
	challenges *repository.ChallengeRepository
	events     EventBroadcaster
	onChange   func(challengeID string)
	ticker     *time.Ticker
	done       chan bool
	now        func() time.Time
}

// NewLifecycleService creates a new lifecycle service. onChange, when set, is
// called for every challenge whose status changed.
func NewLifecycleService(interval time.Duration, challenges *repository.ChallengeRepository, events EventBroadcaster, onChange func(challengeID string)) *LifecycleService {
	if interval <= 0 {
		interval = time.Minute
	}
	if events == nil {
		events = noopBroadcaster{}
	}
	return &LifecycleService{
		interval:   interval,
		challenges: challenges,
		events:     events,
		onChange:   onChange,
		done:       make(chan bool),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start begins refreshing statuses on the configured interval
func (s *LifecycleService) Start() {
	s.ticker = time.NewTicker(s.interval)
	go s.watch()
	log.Printf("Lifecycle: service started (interval %v)", s.interval)
}

// Stop stops the status watcher
func (s *LifecycleService) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.done <- true
	log.Println("Lifecycle: service stopped")
}

func (s *LifecycleService) watch() {
	// Catch up right away instead of waiting for the first tick
	s.refreshLogged()
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			s.refreshLogged()
		}
	}
}

func (s *LifecycleService) refreshLogged() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if _, err := s.Refresh(ctx); err != nil {
		log.Printf("Lifecycle: failed to refresh challenge statuses: %v", err)
	}
}

// Refresh recomputes the status of every challenge that is not completed yet
// and returns how many changed
func (s *LifecycleService) Refresh(ctx context.Context) (int, error) {
	challenges, err := s.challenges.ListNonCompleted(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	changed := 0
	for _, c := range challenges {
		status := c.StatusAt(now)
		if status == c.Status {
			continue
		}

		if err := s.challenges.UpdateStatus(ctx, c.ID, status); err != nil {
			return changed, err
		}
		changed++

		log.Printf("Lifecycle: challenge %s is now %s", c.ID, status)
		s.events.BroadcastChallengeStatusChanged(c.ID, status)
		if s.onChange != nil {
			s.onChange(c.ID)
		}
	}
	return changed, nil
}
