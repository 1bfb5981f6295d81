package routes

import (
	"net/http"

	"quizrave/handlers"
	"quizrave/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	quizHandler *handlers.QuizHandler,
	attemptHandler *handlers.AttemptHandler,
	liveHandler *handlers.LiveHandler,
	jwtSecret string,
) {
	auth := middleware.AuthMiddleware(jwtSecret)

	api := router.Group("/api")
	api.Use(auth)
	{
		quizzes := api.Group("/quizzes")
		{
			quizzes.GET("", quizHandler.ListQuizzes)
			quizzes.POST("", quizHandler.CreateQuiz)
			quizzes.GET("/:id", quizHandler.GetQuizByID)
			quizzes.POST("/:id/attempts", attemptHandler.StartAttempt)
		}

		attempts := api.Group("/attempts")
		{
			attempts.GET("", attemptHandler.ListAttempts)
			attempts.GET("/:id", attemptHandler.GetAttempt)
			attempts.POST("/:id/responses", attemptHandler.RecordResponse)
			attempts.POST("/:id/complete", attemptHandler.CompleteAttempt)
			attempts.PUT("/:id/responses/:questionId/grade", attemptHandler.GradeResponse)
		}
	}

	// Browsers cannot set headers on websocket upgrades; the token comes in
	// the query string.
	router.GET("/ws/attempts/:id", auth, liveHandler.WatchAttempt)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
