package handlers

import (
	"net/http"

	"quizrave/logger"
	"quizrave/services"

	"github.com/gin-gonic/gin"
)

type AttemptHandler struct {
	attemptService *services.AttemptService
	log            *logger.Logger
}

func NewAttemptHandler(attemptService *services.AttemptService, log *logger.Logger) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		log:            log,
	}
}

type RecordResponseRequest struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	AnswerID   *uint  `json:"answer_id"`
	TextAnswer string `json:"text_answer"`
}

type GradeResponseRequest struct {
	IsCorrect *bool `json:"is_correct" binding:"required"`
}

func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	quizID, ok := idParam(c, "id")
	if !ok {
		return
	}

	result, err := h.attemptService.Start(c.Request.Context(), userID, quizID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	attempts, err := h.attemptService.ListAttempts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}

func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	attemptID, ok := idParam(c, "id")
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetAttempt(c.Request.Context(), attemptID, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

func (h *AttemptHandler) RecordResponse(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	attemptID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req RecordResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	response, err := h.attemptService.RecordResponse(c.Request.Context(), attemptID, userID, services.Submission{
		QuestionID: req.QuestionID,
		AnswerID:   req.AnswerID,
		TextAnswer: req.TextAnswer,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *AttemptHandler) CompleteAttempt(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	attemptID, ok := idParam(c, "id")
	if !ok {
		return
	}

	result, err := h.attemptService.Complete(c.Request.Context(), attemptID, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AttemptHandler) GradeResponse(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	attemptID, ok := idParam(c, "id")
	if !ok {
		return
	}
	questionID, ok := idParam(c, "questionId")
	if !ok {
		return
	}

	var req GradeResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	response, err := h.attemptService.GradeResponse(c.Request.Context(), attemptID, questionID, userID, *req.IsCorrect)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
