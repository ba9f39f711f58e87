package handlers

import (
	"errors"
	"net/http"

	"airdrop-backend/internal/merkle"
	"airdrop-backend/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// respondWithError unified error response function
func respondWithError(c *gin.Context, statusCode int, errorType, message string, details interface{}) {
	response := gin.H{
		"error":   errorType,
		"message": message,
	}
	if details != nil {
		response["details"] = details
	}
	c.JSON(statusCode, response)
}

// respondWithDomainError maps a service error onto its HTTP status and error type
func respondWithDomainError(c *gin.Context, operation string, err error) {
	status, errorType := classifyError(err)
	fields := logrus.Fields{
		"operation": operation,
		"path":      c.Request.URL.Path,
		"status":    status,
		"error":     err.Error(),
	}
	if status >= http.StatusInternalServerError {
		logrus.WithFields(fields).Error("❌ Request failed")
	} else {
		logrus.WithFields(fields).Debug("Request rejected")
	}
	respondWithError(c, status, errorType, err.Error(), nil)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrStepNotFound):
		return http.StatusNotFound, "STEP_NOT_FOUND"
	case errors.Is(err, types.ErrRecipientNotFound), errors.Is(err, merkle.ErrLeafNotFound):
		return http.StatusNotFound, "RECIPIENT_NOT_FOUND"
	case errors.Is(err, types.ErrWindowNotReady):
		return http.StatusConflict, "WINDOW_NOT_READY"
	case errors.Is(err, types.ErrStepClosed):
		return http.StatusConflict, "STEP_CLOSED"
	case types.IsValidationError(err):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, types.ErrChainUnavailable):
		return http.StatusServiceUnavailable, "CHAIN_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// validateRequestBinding unified request binding validation function
func validateRequestBinding(c *gin.Context, req interface{}, operation string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logrus.WithFields(logrus.Fields{
			"operation": operation,
			"error":     err.Error(),
		}).Debug("Request parameter validation failed")
		respondWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request parameters", err.Error())
		return false
	}
	return true
}
