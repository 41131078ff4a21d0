package handlers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gamerfie/game-vault/challenge"
	"github.com/gamerfie/game-vault/middleware"
	"github.com/gamerfie/game-vault/models"
	"github.com/gamerfie/game-vault/services"
)

// ChallengeHandler handles challenge endpoints
type ChallengeHandler struct {
	challengeService *services.ChallengeService
	covers           *services.CoverCacheService
}

// NewChallengeHandler creates a new challenge handler
func NewChallengeHandler(challengeService *services.ChallengeService, covers *services.CoverCacheService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
		covers:           covers,
	}
}

// List returns challenges, newest first
// GET /api/v1/challenges?status=&type=&limit=&offset=
func (h *ChallengeHandler) List(c *gin.Context) {
	filter := models.ChallengeListFilter{
		Status:    models.ChallengeStatus(c.Query("status")),
		Type:      models.ChallengeType(c.Query("type")),
		CreatorID: c.Query("creator_id"),
	}

	if filter.Status != "" && !models.IsValidChallengeStatus(string(filter.Status)) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid status filter",
		})
		return
	}
	if filter.Type != "" && filter.Type != models.ChallengeTypeCompetitive && filter.Type != models.ChallengeTypeCollaborative {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid type filter",
		})
		return
	}

	var ok bool
	if filter.Limit, ok = queryInt(c, "limit"); !ok {
		return
	}
	if filter.Offset, ok = queryInt(c, "offset"); !ok {
		return
	}

	challenges, err := h.challengeService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to list challenges")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": challenges})
}

// Get returns a single challenge with goals, rewards and rules
// GET /api/v1/challenges/:id
func (h *ChallengeHandler) Get(c *gin.Context) {
	ch, err := h.challengeService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load challenge")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ch})
}

// Cover serves the challenge cover image from the local cache, fetching it on first use
// GET /api/v1/challenges/:id/cover
func (h *ChallengeHandler) Cover(c *gin.Context) {
	ch, err := h.challengeService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load challenge")
		return
	}
	if ch.CoverURL == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Challenge has no cover image",
		})
		return
	}

	if !h.covers.Has(ch.ID) {
		if err := h.covers.Cache(c.Request.Context(), ch.ID, *ch.CoverURL); err != nil {
			log.Printf("Failed to cache cover for challenge %s: %v", ch.ID, err)
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "Cover image unavailable",
			})
			return
		}
	}

	path, _ := h.covers.Path(ch.ID)
	c.Header("Cache-Control", "public, max-age=3600")
	c.File(path)
}

// Leaderboard returns the ranked participants of a challenge
// GET /api/v1/challenges/:id/leaderboard
func (h *ChallengeHandler) Leaderboard(c *gin.Context) {
	entries, err := h.challengeService.Leaderboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// Create creates a new challenge owned by the caller
// POST /api/v1/challenges
func (h *ChallengeHandler) Create(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	input, err := challenge.ValidateCreateChallenge(body)
	if err != nil {
		respondError(c, err, "Failed to create challenge")
		return
	}

	ch, err := h.challengeService.Create(c.Request.Context(), middleware.GetUserID(c), input)
	if err != nil {
		respondError(c, err, "Failed to create challenge")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": ch})
}

// Update applies a partial update. Only the creator may update.
// PATCH /api/v1/challenges/:id
func (h *ChallengeHandler) Update(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	input, err := challenge.ValidateUpdateChallenge(body)
	if err != nil {
		respondError(c, err, "Failed to update challenge")
		return
	}
	if input.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No fields to update",
		})
		return
	}

	ch, err := h.challengeService.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), input)
	if err != nil {
		respondError(c, err, "Failed to update challenge")
		return
	}
	if input.CoverURL != nil {
		// Fetched again on the next cover request
		h.covers.Remove(ch.ID)
	}

	c.JSON(http.StatusOK, gin.H{"data": ch})
}

// Delete removes a challenge with its participants, progress and claims
// DELETE /api/v1/challenges/:id
func (h *ChallengeHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.challengeService.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err, "Failed to delete challenge")
		return
	}
	h.covers.Remove(id)

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "deleted": true}})
}

// Join adds the caller to a challenge
// POST /api/v1/challenges/:id/join
func (h *ChallengeHandler) Join(c *gin.Context) {
	participant, err := h.challengeService.Join(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to join challenge")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": participant})
}

// Leave removes the caller from a challenge
// POST /api/v1/challenges/:id/leave
func (h *ChallengeHandler) Leave(c *gin.Context) {
	id := c.Param("id")
	if err := h.challengeService.Leave(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		if errors.Is(err, services.ErrNotParticipant) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
			return
		}
		respondError(c, err, "Failed to leave challenge")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"challenge_id": id, "left": true}})
}

// GetProgress returns the caller's per-goal progress
// GET /api/v1/challenges/:id/progress
func (h *ChallengeHandler) GetProgress(c *gin.Context) {
	progress, err := h.challengeService.GetProgress(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotParticipant) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
			return
		}
		respondError(c, err, "Failed to load progress")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": progress})
}

// RecordProgress sets the caller's value for one goal
// PUT /api/v1/challenges/:id/progress
func (h *ChallengeHandler) RecordProgress(c *gin.Context) {
	var req models.RecordProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	progress, err := h.challengeService.RecordProgress(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.GoalID, *req.Value)
	if err != nil {
		respondError(c, err, "Failed to record progress")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": progress})
}

// ClaimReward claims a reward of a completed challenge
// POST /api/v1/challenges/:id/rewards/:rewardId/claim
func (h *ChallengeHandler) ClaimReward(c *gin.Context) {
	claim, err := h.challengeService.ClaimReward(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), c.Param("rewardId"))
	if err != nil {
		respondError(c, err, "Failed to claim reward")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": claim})
}

// MyClaims returns the rewards the caller claimed on a challenge
// GET /api/v1/challenges/:id/claims
func (h *ChallengeHandler) MyClaims(c *gin.Context) {
	claims, err := h.challengeService.MyClaims(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load claims")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claims})
}

// MyChallenges returns the challenges the caller joined
// GET /api/v1/me/challenges
func (h *ChallengeHandler) MyChallenges(c *gin.Context) {
	joined, err := h.challengeService.MyChallenges(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "Failed to load your challenges")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": joined})
}

// queryInt parses an optional non-negative integer query parameter; it writes
// the 400 response itself and reports false on failure
func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 || value > math.MaxInt32 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + key + " parameter",
		})
		return 0, false
	}
	return value, true
}

// respondError maps service errors to status codes; unknown errors are logged
// and answered with a generic 500 carrying fallback
func respondError(c *gin.Context, err error, fallback string) {
	var validationErrs challenge.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"details": validationErrs,
		})
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s: %v", fallback, err)
		c.JSON(status, gin.H{
			"error": fallback,
		})
		return
	}

	c.JSON(status, gin.H{
		"error": err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrChallengeNotFound),
		errors.Is(err, services.ErrGoalNotFound),
		errors.Is(err, services.ErrRewardNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotCreator),
		errors.Is(err, services.ErrRulesNotMet),
		errors.Is(err, services.ErrNotParticipant),
		errors.Is(err, services.ErrNotCompleted):
		return http.StatusForbidden
	case errors.Is(err, services.ErrAlreadyJoined),
		errors.Is(err, services.ErrGoalsLocked),
		errors.Is(err, services.ErrRewardsLocked),
		errors.Is(err, services.ErrAlreadyClaimed):
		return http.StatusConflict
	case errors.Is(err, services.ErrChallengeEnded),
		errors.Is(err, services.ErrChallengeNotStarted),
		errors.Is(err, services.ErrChallengeFull),
		errors.Is(err, services.ErrInvalidProgress):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
