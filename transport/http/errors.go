package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/questor/core"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

// Order matters: the first mapping matched with errors.Is wins
var errorMappings = []errorMapping{
	{core.ErrInvalidAddress, http.StatusBadRequest, "Invalid wallet address"},
	{core.ErrInvalidInput, http.StatusBadRequest, "Invalid request"},
	{core.ErrInvalidSignature, http.StatusUnauthorized, "Invalid signature"},
	{core.ErrUnauthenticated, http.StatusUnauthorized, "Invalid or expired token"},
	{core.ErrQuestNotFound, http.StatusNotFound, "Quest not found"},
	{core.ErrAccountNotFound, http.StatusNotFound, "User not found"},
	{core.ErrAlreadyCompleted, http.StatusBadRequest, "Quest already completed"},
	{core.ErrStoreUnavailable, http.StatusServiceUnavailable, "Service temporarily unavailable"},
}

// respondError writes the fixed public message for err. Details stay in the log.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
			}
			c.AbortWithStatusJSON(m.status, gin.H{"error": m.message})
			return
		}
	}

	logger.ErrorContext(c.Request.Context(), "unhandled error", "path", c.FullPath(), "error", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}
