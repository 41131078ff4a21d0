// Package metrics holds the Prometheus collectors of the service
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Challenge activity labels
const (
	EventCreated  = "created"
	EventUpdated  = "updated"
	EventDeleted  = "deleted"
	EventJoined   = "joined"
	EventLeft     = "left"
	EventProgress = "progress"
	EventComplete = "completed"
	EventClaimed  = "claimed"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	AuthRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Total number of unauthorized requests",
		},
		[]string{"reason"},
	)
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
	ChallengeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_events_total",
			Help: "Challenge activity by kind",
		},
		[]string{"event"},
	)
	LeaderboardCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_cache_lookups_total",
			Help: "Leaderboard cache lookups by result",
		},
		[]string{"result"},
	)
	WebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Number of connected websocket clients",
		},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AuthRejections,
			RateLimited,
			ChallengeEvents,
			LeaderboardCacheLookups,
			WebSocketClients,
		)
	})
}
