package utils

import (
	"errors"
	"net/http"

	"kb-assist-platform/internal/ai"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithCoreError translates knowledge-core errors to HTTP. The core
// does not retry provider failures; this is where they become responses.
func RespondWithCoreError(c *gin.Context, err error) {
	var cfgErr *ai.ConfigurationError
	if errors.As(err, &cfgErr) {
		RespondWithError(c, http.StatusServiceUnavailable, "provider_not_configured",
			"AI provider is not configured", gin.H{"error": err.Error()})
		return
	}

	var svcErr *ai.ExternalServiceError
	if errors.As(err, &svcErr) {
		RespondWithError(c, http.StatusBadGateway, "upstream_error",
			"AI provider call failed", gin.H{"error": err.Error()})
		return
	}

	RespondWithInternalError(c, "Internal error", gin.H{"error": err.Error()})
}
