package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/services"
	"github.com/ieltsprep/practice-service/internal/utils"
)

type HandlerManager struct {
	testHandler        *TestHandler
	attemptHandler     *AttemptHandler
	leaderboardHandler *LeaderboardHandler
}

func NewHandlerManager(
	serviceManager *services.ServiceManager,
	validator *utils.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		testHandler:        NewTestHandler(serviceManager.Test(), serviceManager.ImportExport(), validator, logger),
		attemptHandler:     NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		leaderboardHandler: NewLeaderboardHandler(serviceManager.Leaderboard(), logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "practice-service",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(UserContextMiddleware())
	{
		// Typed test-taking fetch routes
		v1.GET("/reading/:id", hm.testHandler.GetTestByType(models.TestTypeReading))
		v1.GET("/listening/:id", hm.testHandler.GetTestByType(models.TestTypeListening))

		// Test authoring routes
		tests := v1.Group("/tests")
		{
			tests.POST("", hm.testHandler.CreateTest)
			tests.GET("", hm.testHandler.ListTests)
			tests.GET("/search", hm.testHandler.SearchTests)
			tests.POST("/import", hm.testHandler.ImportTest)
			tests.GET("/:id", hm.testHandler.GetTest)
			tests.GET("/:id/details", hm.testHandler.GetTestWithDetails)
			tests.PUT("/:id", hm.testHandler.UpdateTest)
			tests.DELETE("/:id", hm.testHandler.DeleteTest)
			tests.POST("/:id/publish", hm.testHandler.PublishTest)
			tests.POST("/:id/archive", hm.testHandler.ArchiveTest)
			tests.GET("/:id/stats", hm.testHandler.GetTestStats)
			tests.GET("/:id/export", hm.testHandler.ExportTest)
			tests.GET("/:id/results/export", hm.testHandler.ExportTestResults)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("", hm.attemptHandler.ListMyAttempts)
			attempts.GET("/:id/progress", hm.attemptHandler.GetProgress)
			attempts.POST("/:id/answers", hm.attemptHandler.SaveAnswer)
			attempts.POST("/:id/flags", hm.attemptHandler.ToggleFlag)
			attempts.PUT("/:id/notes", hm.attemptHandler.SetQuestionNote)
			attempts.POST("/:id/navigate", hm.attemptHandler.Navigate)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.POST("/:id/abandon", hm.attemptHandler.AbandonAttempt)
			attempts.GET("/:id/result", hm.attemptHandler.GetResult)

			// Highlight routes
			attempts.POST("/:id/highlights", hm.attemptHandler.AddHighlight)
			attempts.DELETE("/:id/highlights/active", hm.attemptHandler.ClearActiveHighlights)
			attempts.DELETE("/:id/highlights/:highlight_id", hm.attemptHandler.DeleteHighlight)
			attempts.PUT("/:id/highlights/:highlight_id/note", hm.attemptHandler.SetHighlightNote)
			attempts.POST("/:id/highlights/:highlight_id/activate", hm.attemptHandler.ActivateHighlight)
			attempts.GET("/:id/sections/:section_index/render", hm.attemptHandler.RenderSection)
		}

		// Leaderboard routes
		leaderboard := v1.Group("/leaderboard")
		{
			leaderboard.GET("/:test_id", hm.leaderboardHandler.GetLeaderboard)
			leaderboard.GET("/:test_id/me", hm.leaderboardHandler.GetMyRank)
		}
	}
}

// UserContextMiddleware resolves the caller identity into the request
// context. Identity arrives from the gateway as a trusted header; the
// service itself does not authenticate.
func UserContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v := c.GetHeader("X-User-ID"); v != "" {
			if id, err := strconv.ParseUint(v, 10, 32); err == nil {
				c.Set("user_id", uint(id))
			}
		}
		c.Next()
	}
}
