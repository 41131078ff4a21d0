package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamerfie/game-vault/auth"
	"github.com/gamerfie/game-vault/config"
	"github.com/gamerfie/game-vault/database"
	"github.com/gamerfie/game-vault/database/dbtest"
	"github.com/gamerfie/game-vault/middleware"
	"github.com/gamerfie/game-vault/models"
	"github.com/gamerfie/game-vault/repository"
	"github.com/gamerfie/game-vault/services"
	"github.com/gamerfie/game-vault/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	jwt    *auth.JWTService
	hub    *websocket.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dbtest.Setup(t)

	cfg := &config.Config{LeaderboardCacheTTL: time.Minute, ChallengeListLimit: 50}
	jwtService := auth.NewJWTService("handler-test-secret", 1)
	statsRepo := repository.NewUserStatsRepository()

	challengeService := services.NewChallengeService(cfg,
		repository.NewChallengeRepository(),
		repository.NewParticipantRepository(),
		statsRepo,
		repository.NewRewardClaimRepository(),
		nil,
	)
	// Cover origins in these tests are httptest servers on loopback
	challengeHandler := NewChallengeHandler(challengeService, services.NewCoverCacheService(t.TempDir(), true))
	statsHandler := NewStatsHandler(services.NewStatsService(statsRepo))
	authHandler := NewAuthHandler(jwtService)

	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	wsHandler := NewWebSocketHandler(hub, auth.NewChainVerifier(jwtService), "")

	r := gin.New()
	r.GET("/health", Health(database.Ping, hub.GetConnectedUserCount))

	api := r.Group("/api/v1")
	api.POST("/auth/dev-token", authHandler.DevToken)
	api.GET("/challenges", challengeHandler.List)
	api.GET("/challenges/:id", challengeHandler.Get)
	api.GET("/challenges/:id/leaderboard", challengeHandler.Leaderboard)
	api.GET("/challenges/:id/cover", challengeHandler.Cover)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(auth.NewChainVerifier(jwtService)))
	protected.GET("/auth/me", authHandler.Me)
	protected.POST("/challenges", challengeHandler.Create)
	protected.PATCH("/challenges/:id", challengeHandler.Update)
	protected.DELETE("/challenges/:id", challengeHandler.Delete)
	protected.POST("/challenges/:id/join", challengeHandler.Join)
	protected.POST("/challenges/:id/leave", challengeHandler.Leave)
	protected.GET("/challenges/:id/progress", challengeHandler.GetProgress)
	protected.PUT("/challenges/:id/progress", challengeHandler.RecordProgress)
	protected.POST("/challenges/:id/rewards/:rewardId/claim", challengeHandler.ClaimReward)
	protected.GET("/challenges/:id/claims", challengeHandler.MyClaims)
	protected.GET("/ws/status", wsHandler.Status)
	protected.GET("/me/challenges", challengeHandler.MyChallenges)
	protected.GET("/me/stats", statsHandler.Get)
	protected.PUT("/me/stats", statsHandler.Replace)

	return &testServer{t: t, router: r, jwt: jwtService, hub: hub}
}

// do sends a request as userID; an empty userID sends no Authorization header
func (s *testServer) do(method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		encoded, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := s.jwt.GenerateToken(userID, userID+"@example.com", "authenticated")
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.NotEmpty(t, env.Data, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func challengePayload(overrides map[string]interface{}) map[string]interface{} {
	now := time.Now().UTC()
	payload := map[string]interface{}{
		"title":       "Backlog Breaker",
		"description": "Clear two games from your backlog this week",
		"type":        "competitive",
		"start_date":  now.Add(-time.Hour).Format(time.RFC3339),
		"end_date":    now.Add(7 * 24 * time.Hour).Format(time.RFC3339),
		"goals": []map[string]interface{}{
			{"type": "complete_games", "target": 2},
		},
		"rewards": []map[string]interface{}{
			{"type": "badge", "name": "Backlog Breaker", "description": "Cleared the backlog"},
		},
	}
	for k, v := range overrides {
		payload[k] = v
	}
	return payload
}

func (s *testServer) createChallenge(userID string, overrides map[string]interface{}) models.Challenge {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/challenges", userID, challengePayload(overrides))
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	var ch models.Challenge
	decodeData(s.t, rec, &ch)
	return ch
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"connected_users":0`)
}

func TestWebSocketStatus(t *testing.T) {
	s := newTestServer(t)

	s.hub.Register(websocket.NewClient(s.hub, nil, "user-1", ""))

	type status struct {
		Connected      bool `json:"connected"`
		ConnectedUsers int  `json:"connected_users"`
	}
	// Registration is processed by the hub loop
	require.Eventually(t, func() bool { return s.hub.IsUserConnected("user-1") }, time.Second, 10*time.Millisecond)

	rec := s.do(http.MethodGet, "/api/v1/ws/status", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var self status
	decodeData(t, rec, &self)
	assert.True(t, self.Connected)
	assert.Equal(t, 1, self.ConnectedUsers)

	rec = s.do(http.MethodGet, "/api/v1/ws/status", "user-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var other status
	decodeData(t, rec, &other)
	assert.False(t, other.Connected)
	assert.Equal(t, 1, other.ConnectedUsers)

	rec = s.do(http.MethodGet, "/health", "", nil)
	assert.Contains(t, rec.Body.String(), `"connected_users":1`)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/ws/status", "", nil).Code)
}

func TestHealthReportsDatabaseFailure(t *testing.T) {
	r := gin.New()
	r.GET("/health", Health(func(context.Context) error { return errors.New("down") }, nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unhealthy")
}

func TestCreateChallenge(t *testing.T) {
	s := newTestServer(t)

	t.Run("requires auth", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/challenges", "", challengePayload(nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Authorization header required", decodeEnvelope(t, rec).Error)
	})

	t.Run("reports every field error", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/challenges", "user-1", challengePayload(map[string]interface{}{
			"title": "ab",
			"goals": []map[string]interface{}{},
		}))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		env := decodeEnvelope(t, rec)
		assert.Equal(t, "Validation failed", env.Error)

		var details []map[string]string
		require.NoError(t, json.Unmarshal(env.Details, &details))
		fields := make([]string, 0, len(details))
		for _, d := range details {
			fields = append(fields, d["field"])
		}
		assert.Contains(t, fields, "title")
		assert.Contains(t, fields, "goals")
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/challenges", "user-1", "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("stores the creator", func(t *testing.T) {
		ch := s.createChallenge("user-1", nil)
		assert.NotEmpty(t, ch.ID)
		assert.Equal(t, "user-1", ch.CreatorID)
		assert.Equal(t, models.ChallengeStatusActive, ch.Status)
		require.Len(t, ch.Goals, 1)
		require.Len(t, ch.Rewards, 1)
		assert.Equal(t, []string{}, ch.Rules)
	})
}

func TestGetAndListChallenges(t *testing.T) {
	s := newTestServer(t)
	ch := s.createChallenge("user-1", nil)

	rec := s.do(http.MethodGet, "/api/v1/challenges/"+ch.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Challenge
	decodeData(t, rec, &got)
	assert.Equal(t, ch.Title, got.Title)

	rec = s.do(http.MethodGet, "/api/v1/challenges/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "challenge not found", decodeEnvelope(t, rec).Error)

	rec = s.do(http.MethodGet, "/api/v1/challenges?status=active&type=competitive", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Challenge
	decodeData(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, ch.ID, list[0].ID)

	rec = s.do(http.MethodGet, "/api/v1/challenges?status=upcoming", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	for _, query := range []string{"status=finished", "type=solo", "limit=abc", "offset=-1"} {
		rec = s.do(http.MethodGet, "/api/v1/challenges?"+query, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestJoinLeaveAndLeaderboard(t *testing.T) {
	s := newTestServer(t)
	ch := s.createChallenge("user-1", map[string]interface{}{"max_participants": 2})
	path := "/api/v1/challenges/" + ch.ID

	rec := s.do(http.MethodPost, path+"/join", "user-2", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, path+"/join", "user-2", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, path+"/join", "user-3", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, path+"/join", "user-4", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Error, "maximum number of participants")

	rec = s.do(http.MethodPost, "/api/v1/challenges/missing/join", "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, path+"/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var board []models.LeaderboardEntry
	decodeData(t, rec, &board)
	require.Len(t, board, 2)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "user-2", board[0].UserID, "earlier joiner wins the tie")

	rec = s.do(http.MethodPost, path+"/leave", "user-3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, path+"/leave", "user-3", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, services.ErrNotParticipant.Error(), decodeEnvelope(t, rec).Error)

	rec = s.do(http.MethodGet, path, "", nil)
	var got models.Challenge
	decodeData(t, rec, &got)
	assert.Equal(t, 1, got.ParticipantCount)
}

func TestJoinChecksRulesAgainstStats(t *testing.T) {
	s := newTestServer(t)
	ch := s.createChallenge("user-1", map[string]interface{}{
		"rules": []string{"Must have at least one achievement", "Play for 5 hours"},
	})
	path := "/api/v1/challenges/" + ch.ID + "/join"

	rec := s.do(http.MethodPost, path, "user-2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPut, "/api/v1/me/stats", "user-2", map[string]interface{}{
		"achievements": 3,
		"playtime":     4.5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, path, "user-2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "4.5 hours is below the bound of 5")

	rec = s.do(http.MethodPut, "/api/v1/me/stats", "user-2", map[string]interface{}{
		"achievements": 3,
		"playtime":     6,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, path, "user-2", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestStatsEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/v1/me/stats", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.UserStats
	decodeData(t, rec, &stats)
	assert.Equal(t, "user-1", stats.UserID)
	assert.Nil(t, stats.Level)

	rec = s.do(http.MethodPut, "/api/v1/me/stats", "user-1", map[string]interface{}{"level": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/api/v1/me/stats", "user-1", map[string]interface{}{"level": 12})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/me/stats", "user-1", nil)
	decodeData(t, rec, &stats)
	require.NotNil(t, stats.Level)
	assert.Equal(t, 12, *stats.Level)
}

func TestProgressAndRewardClaim(t *testing.T) {
	s := newTestServer(t)
	ch := s.createChallenge("user-1", nil)
	path := "/api/v1/challenges/" + ch.ID
	goalID := ch.Goals[0].ID
	claimPath := path + "/rewards/" + ch.Rewards[0].ID + "/claim"

	rec := s.do(http.MethodGet, path+"/progress", "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, path+"/progress", "user-2", map[string]interface{}{"goal_id": goalID, "value": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, path+"/join", "user-2", nil).Code)

	rec = s.do(http.MethodPut, path+"/progress", "user-2", map[string]interface{}{"goal_id": goalID, "value": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, path+"/progress", "user-2", map[string]interface{}{"goal_id": "other", "value": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, path+"/progress", "user-2", map[string]interface{}{"goal_id": goalID})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "value is required")

	rec = s.do(http.MethodPut, path+"/progress", "user-2", map[string]interface{}{"goal_id": goalID, "value": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var progress models.ParticipantProgress
	decodeData(t, rec, &progress)
	assert.Equal(t, 50, progress.Progress)
	assert.Nil(t, progress.CompletedAt)

	rec = s.do(http.MethodPost, claimPath, "user-2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPut, path+"/progress", "user-2", map[string]interface{}{"goal_id": goalID, "value": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &progress)
	assert.Equal(t, 100, progress.Progress)
	assert.NotNil(t, progress.CompletedAt)

	rec = s.do(http.MethodGet, path+"/progress", "user-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &progress)
	require.Len(t, progress.Goals, 1)
	assert.Equal(t, float64(2), progress.Goals[0].Value)

	rec = s.do(http.MethodPost, path+"/rewards/unknown/claim", "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, claimPath, "user-2", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var claim models.RewardClaim
	decodeData(t, rec, &claim)
	assert.Equal(t, ch.Rewards[0].ID, claim.RewardID)

	rec = s.do(http.MethodPost, claimPath, "user-2", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, path+"/claims", "user-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var claims []models.RewardClaim
	decodeData(t, rec, &claims)
	require.Len(t, claims, 1)
	assert.Equal(t, claim.ID, claims[0].ID)

	rec = s.do(http.MethodGet, "/api/v1/challenges/00000000-0000-0000-0000-000000000000/claims", "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Claimed rewards can no longer be replaced
	rec = s.do(http.MethodPatch, path, "user-1", map[string]interface{}{
		"rewards": []map[string]interface{}{{"type": "title", "name": "Finisher", "description": "Finished"}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = s.do(http.MethodPost, claimPath, "user-2", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "the original claim survives")

	rec = s.do(http.MethodGet, "/api/v1/me/challenges", "user-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var joined []models.JoinedChallenge
	decodeData(t, rec, &joined)
	require.Len(t, joined, 1)
	assert.Equal(t, 100, joined[0].Progress)
	assert.Equal(t, ch.ID, joined[0].Challenge.ID)
}

func TestUpdateAndDeleteChallenge(t *testing.T) {
	s := newTestServer(t)
	ch := s.createChallenge("user-1", nil)
	path := "/api/v1/challenges/" + ch.ID

	rec := s.do(http.MethodPatch, path, "user-2", map[string]interface{}{"title": "Hijacked"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPatch, path, "user-1", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPatch, path, "user-1", map[string]interface{}{
		"goals": []map[string]interface{}{{"type": "play_time", "target": 3}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code, "goals are locked once started")

	rec = s.do(http.MethodPatch, path, "user-1", map[string]interface{}{
		"end_date": time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Details), "End date must be after start date")

	rec = s.do(http.MethodPatch, path, "user-1", map[string]interface{}{"title": "Backlog Buster", "type": "collaborative"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.Challenge
	decodeData(t, rec, &updated)
	assert.Equal(t, "Backlog Buster", updated.Title)
	assert.Equal(t, models.ChallengeTypeCompetitive, updated.Type)

	rec = s.do(http.MethodDelete, path, "user-2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodDelete, path, "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDevTokenAndMe(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/v1/auth/dev-token", "", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/auth/dev-token", "", map[string]interface{}{"user_id": "player-7"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var data struct {
		Token string `json:"token"`
	}
	decodeData(t, rec, &data)

	claims, err := s.jwt.ValidateToken(data.Token)
	require.NoError(t, err)
	assert.Equal(t, "player-7", claims.UserID)

	rec = s.do(http.MethodGet, "/api/v1/auth/me", "player-7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"player-7"`)
}

func TestChallengeCover(t *testing.T) {
	image := []byte("\x89PNG\r\n\x1a\nfake-image-data")
	var hits atomic.Int32
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/cover.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(image)
	}))
	defer origin.Close()

	s := newTestServer(t)
	withCover := s.createChallenge("user-1", map[string]interface{}{"cover_url": origin.URL + "/cover.png"})
	broken := s.createChallenge("user-1", map[string]interface{}{"cover_url": origin.URL + "/missing.png"})
	without := s.createChallenge("user-1", nil)

	for i := 0; i < 2; i++ {
		rec := s.do(http.MethodGet, "/api/v1/challenges/"+withCover.ID+"/cover", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, image, rec.Body.Bytes())
	}
	assert.EqualValues(t, 1, hits.Load(), "second request is served from the cache")

	rec := s.do(http.MethodGet, "/api/v1/challenges/"+broken.ID+"/cover", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/challenges/"+without.ID+"/cover", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPatch, "/api/v1/challenges/"+withCover.ID, "user-1", map[string]interface{}{"cover_url": origin.URL + "/cover.png"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/api/v1/challenges/"+withCover.ID+"/cover", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, hits.Load(), "a new cover url drops the cached copy")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrChallengeNotFound, http.StatusNotFound},
		{services.ErrRewardNotFound, http.StatusNotFound},
		{services.ErrNotCreator, http.StatusForbidden},
		{services.ErrRulesNotMet, http.StatusForbidden},
		{services.ErrNotCompleted, http.StatusForbidden},
		{services.ErrAlreadyJoined, http.StatusConflict},
		{services.ErrGoalsLocked, http.StatusConflict},
		{services.ErrRewardsLocked, http.StatusConflict},
		{services.ErrChallengeEnded, http.StatusBadRequest},
		{services.ErrChallengeNotStarted, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}
