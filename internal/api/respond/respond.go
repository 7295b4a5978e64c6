// Package respond maps service errors onto the JSON error envelope {error, details}.
package respond

import (
	"context"
	"errors"
	"net/http"

	"semzo-prive/internal/infra/stripe"
	"semzo-prive/internal/membership"
	"semzo-prive/internal/store"
	"semzo-prive/internal/verification"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error writes err with the status its kind implies. Persistence failures are logged with
// whatever code and hint the driver exposed.
func Error(c *gin.Context, log *zap.Logger, err error) {
	var (
		ce *membership.ContractError
		ue *stripe.UpstreamError
		pe *store.PersistenceError
	)
	switch {
	case errors.As(err, &ce):
		c.JSON(http.StatusBadRequest, gin.H{"error": ce.Error(), "details": ce.Reason})

	case errors.As(err, &ue):
		log.Warn("upstream provider error", zap.String("code", ue.Code), zap.Int("http_status", ue.HTTPStatus), zap.String("path", c.FullPath()))
		c.JSON(http.StatusBadGateway, gin.H{"error": ue.Message, "details": ue.Code})

	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, membership.ErrIntentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})

	case errors.Is(err, membership.ErrIntentConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "A paid membership is already awaiting activation", "details": "intent_conflict"})

	case errors.Is(err, verification.ErrAlreadyVerified):
		c.JSON(http.StatusConflict, gin.H{"error": "Identity already verified", "details": "already_verified"})

	case errors.As(err, &pe):
		log.Error("persistence error",
			zap.String("op", pe.Op),
			zap.String("code", pe.Code),
			zap.String("hint", pe.Hint),
			zap.String("detail", pe.Detail),
			zap.Error(pe.Err),
		)
		details := pe.Hint
		if details == "" {
			details = pe.Op
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error", "details": details})

	case errors.Is(err, context.Canceled):
		c.JSON(499, gin.H{"error": "Request canceled"})

	default:
		log.Error("unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// UserID reads the authenticated profile id set by the auth middleware.
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString("user_id")
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return id, true
}
