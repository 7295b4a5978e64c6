package routes

import (
	"net/http"

	adminapi "semzo-prive/internal/api/admin"
	authapi "semzo-prive/internal/api/auth"
	identityapi "semzo-prive/internal/api/identity"
	membershipapi "semzo-prive/internal/api/membership"
	"semzo-prive/internal/api/plans"
	stripewebhooks "semzo-prive/internal/api/stripewebhook"
	"semzo-prive/internal/api/users"
	"semzo-prive/internal/app/http/middleware"
	userdomain "semzo-prive/internal/domain/users"
	"semzo-prive/internal/session"

	"github.com/gin-gonic/gin"
)

// Handlers is everything the router mounts. Google routes are mounted only when GoogleAuth is set.
type Handlers struct {
	Tokens     *session.Tokens
	Auth       *authapi.Handler
	GoogleAuth bool
	Membership *membershipapi.Handler
	Identity   *identityapi.Handler
	Webhooks   *stripewebhooks.Handler
	Users      *users.Handler
	Plans      *plans.Handler
	Admin      *adminapi.Handler
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// webhooks read the raw body for signature checks, so no sanitizer here
	r.POST("/webhooks/stripe", h.Webhooks.Payments)
	r.POST("/webhooks/stripe-identity", h.Webhooks.Identity)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/plans", h.Plans.ListPlans)

	public := r.Group("/auth")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())
	public.POST("/register", h.Auth.Register)
	public.POST("/login", h.Auth.Login)
	if h.GoogleAuth {
		public.GET("/google", h.Auth.GoogleStart)
		public.GET("/google/callback", h.Auth.GoogleCallback)
	}

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(h.Tokens))
	auth.GET("/me", h.Users.GetCurrentUser)
	auth.GET("/payments", h.Users.GetPaymentHistory)
	auth.GET("/membership/status", h.Membership.Status)

	member := auth.Group("/")
	member.Use(middleware.SanitizeAndCleanInputMiddleware())
	member.POST("/membership/create-intent", h.Membership.CreateIntent)
	member.POST("/membership/reconcile", h.Membership.Reconcile)
	member.POST("/identity/verification-session", h.Identity.StartSession)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(h.Tokens), middleware.RequireRole(userdomain.RoleAdmin))
	admin.GET("/intents", h.Admin.ListIntents)
	admin.POST("/intents/:id/reconcile", h.Admin.ReconcileIntent)
	admin.GET("/profiles", h.Admin.ListProfiles)
	admin.GET("/payments", h.Admin.ListAllPayments)
	admin.GET("/alerts", h.Admin.ListAlerts)
	admin.POST("/alerts/:id/resolve", h.Admin.ResolveAlert)
	admin.GET("/coupons", h.Admin.ListCoupons)
	admin.POST("/coupons", h.Admin.CreateCoupon)
	admin.POST("/sync-plans", h.Plans.SyncPlansFromStripe)
}
