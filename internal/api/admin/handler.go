package admin

import (
	"net/http"
	"regexp"
	"time"

	"semzo-prive/internal/api/respond"
	"semzo-prive/internal/domain/billing"
	"semzo-prive/internal/domain/membership"
	"semzo-prive/internal/domain/users"
	memberships "semzo-prive/internal/membership"
	"semzo-prive/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Handler struct {
	store       store.Store
	memberships *memberships.Service
	log         *zap.Logger
}

func NewHandler(s store.Store, m *memberships.Service, log *zap.Logger) *Handler {
	return &Handler{store: s, memberships: m, log: log}
}

type AdminProfile struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	FullName         string     `json:"full_name"`
	Role             string     `json:"role"`
	AuthProvider     string     `json:"auth_provider"`
	IdentityVerified bool       `json:"identity_verified"`
	VerifiedAt       *time.Time `json:"identity_verified_at,omitempty"`
	CreatedAt        string     `json:"created_at"`
}

// GET /admin/intents?status=
func (h *Handler) ListIntents(c *gin.Context) {
	status := membership.Status(c.Query("status"))
	switch status {
	case "", membership.StatusPending, membership.StatusPaidPendingVerification,
		membership.StatusActive, membership.StatusLimitedAccess:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status filter", "details": string(status)})
		return
	}

	list, err := h.store.ListIntents(c.Request.Context(), status)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// POST /admin/intents/:id/reconcile
func (h *Handler) ReconcileIntent(c *gin.Context) {
	res, err := h.memberships.ReconcileIntent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	h.log.Info("admin reconcile", zap.String("intent_id", c.Param("id")), zap.String("admin_id", c.GetString("user_id")), zap.String("status", res.Status))
	c.JSON(http.StatusOK, res)
}

// GET /admin/profiles
func (h *Handler) ListProfiles(c *gin.Context) {
	list, err := h.store.ListProfiles(c.Request.Context())
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	out := make([]AdminProfile, 0, len(list))
	for _, p := range list {
		out = append(out, toAdminProfile(p))
	}
	c.JSON(http.StatusOK, out)
}

func toAdminProfile(p users.Profile) AdminProfile {
	return AdminProfile{
		ID:               p.ID,
		Email:            p.Email,
		FullName:         p.FullName,
		Role:             p.Role,
		AuthProvider:     p.AuthProvider,
		IdentityVerified: p.IdentityVerified,
		VerifiedAt:       p.IdentityVerifiedAt,
		CreatedAt:        p.CreatedAt.Format("2006-01-02 15:04"),
	}
}

// GET /admin/payments
func (h *Handler) ListAllPayments(c *gin.Context) {
	list, err := h.store.ListPayments(c.Request.Context(), "")
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /admin/alerts?all=1
func (h *Handler) ListAlerts(c *gin.Context) {
	list, err := h.store.ListAlerts(c.Request.Context(), c.Query("all") != "1")
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// POST /admin/alerts/:id/resolve
func (h *Handler) ResolveAlert(c *gin.Context) {
	if err := h.store.ResolveAlert(c.Request.Context(), c.Param("id")); err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

var couponPattern = regexp.MustCompile(`^[A-Za-z0-9-]{3,32}$`)

var couponValidator = func() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("couponcode", func(fl validator.FieldLevel) bool {
		return couponPattern.MatchString(fl.Field().String())
	})
	return v
}()

// GET /admin/coupons
func (h *Handler) ListCoupons(c *gin.Context) {
	list, err := h.store.ListCoupons(c.Request.Context())
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// POST /admin/coupons
func (h *Handler) CreateCoupon(c *gin.Context) {
	var input struct {
		Code       string     `json:"code" binding:"required"`
		PercentOff int        `json:"percent_off" binding:"required,min=1,max=100"`
		ExpiresAt  *time.Time `json:"expires_at"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := couponValidator.Var(input.Code, "couponcode"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Coupon code must be 3-32 letters, digits or dashes"})
		return
	}

	coupon := &billing.Coupon{Code: input.Code, PercentOff: input.PercentOff, Active: true, ExpiresAt: input.ExpiresAt}
	if err := h.store.CreateCoupon(c.Request.Context(), coupon); err != nil {
		if store.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Coupon already exists"})
			return
		}
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, coupon)
}
