package users

import (
	"net/http"

	"semzo-prive/internal/api/respond"
	"semzo-prive/internal/domain/access"
	"semzo-prive/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	store store.Store
	log   *zap.Logger
}

func NewHandler(s store.Store, log *zap.Logger) *Handler {
	return &Handler{store: s, log: log}
}

// GET /me
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	p, err := h.store.GetProfile(ctx, userID)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	intents, err := h.store.ListUserIntents(ctx, userID)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	in := access.GoverningIntent(intents)
	c.JSON(http.StatusOK, MeResponse{
		User:       BuildUserDTO(p),
		Membership: BuildMembershipDTO(in),
		Access:     BuildAccessDTO(access.ComputePolicy(*p, in)),
	})
}

// GET /payments
func (h *Handler) GetPaymentHistory(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}
	payments, err := h.store.ListPayments(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}
