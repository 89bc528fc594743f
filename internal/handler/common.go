package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"goodfit/internal/middleware"
	"goodfit/internal/model"
	"goodfit/internal/service"

	"github.com/gin-gonic/gin"
)

// Helper to get the authenticated caller from context
func getPrincipal(c *gin.Context) (model.Principal, error) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return model.Principal{}, errors.New("principal not found in context")
	}
	return principal, nil
}

// respondError maps service sentinels to statuses. Unknown errors are logged
// and reported with the fallback message.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrGymNotFound),
		errors.Is(err, service.ErrClassNotFound),
		errors.Is(err, service.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStorageDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		slog.ErrorContext(c.Request.Context(), "request_failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
