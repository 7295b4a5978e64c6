package identity

import (
	"net/http"

	"semzo-prive/internal/api/respond"
	"semzo-prive/internal/verification"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	svc *verification.Service
	log *zap.Logger
}

func NewHandler(svc *verification.Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// POST /identity/verification-session
func (h *Handler) StartSession(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}
	res, err := h.svc.StartSession(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
