package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ieltsprep/practice-service/internal/services"
	"github.com/ieltsprep/practice-service/internal/utils"
)

type LeaderboardHandler struct {
	BaseHandler
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService services.LeaderboardService, logger utils.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		BaseHandler:        NewBaseHandler(logger),
		leaderboardService: leaderboardService,
	}
}

// GetLeaderboard returns the top band scores for a test
// @Summary Get test leaderboard
// @Tags leaderboard
// @Produce json
// @Param test_id path uint true "Test ID"
// @Param limit query int false "Number of entries (default 10)"
// @Success 200 {array} services.LeaderboardEntry
// @Router /leaderboard/{test_id} [get]
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}

	limit := h.parseIntQuery(c, "limit", 10)
	entries, err := h.leaderboardService.Top(c.Request.Context(), testID, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// GetMyRank returns the authenticated student's position on a test leaderboard
// @Summary Get my leaderboard rank
// @Tags leaderboard
// @Produce json
// @Param test_id path uint true "Test ID"
// @Success 200 {object} services.LeaderboardEntry
// @Failure 404 {object} ErrorResponse
// @Router /leaderboard/{test_id}/me [get]
func (h *LeaderboardHandler) GetMyRank(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	entry, err := h.leaderboardService.Rank(c.Request.Context(), testID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}
