package handlers

import (
	"net/http"
	"strconv"

	"quizrave/logger"
	"quizrave/middleware"
	"quizrave/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindConflict:
		return http.StatusConflict
	case services.KindLimitExceeded:
		return http.StatusUnprocessableEntity
	case services.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error", "code"}. Anything that is not a
// domain error is logged and hidden behind a 500.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	var domainErr *services.Error
	if !errors.As(err, &domainErr) {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "internal"})
		return
	}
	c.JSON(statusFor(domainErr.Kind), gin.H{"error": err.Error(), "code": domainErr.Code})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "code": "bad_request"})
}

func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated", "code": "unauthorized"})
	}
	return userID, ok
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
