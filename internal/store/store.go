package store

import (
	"context"

	"semzo-prive/internal/domain/billing"
	"semzo-prive/internal/domain/membership"
	"semzo-prive/internal/domain/ops"
	"semzo-prive/internal/domain/plans"
	"semzo-prive/internal/domain/users"
	"semzo-prive/internal/domain/verification"
)

// Store is the persistence boundary of the service. Every conditional write reports whether
// it changed a row, which is how concurrent callers learn who won.
type Store interface {
	CreateProfile(ctx context.Context, p *users.Profile) error
	GetProfile(ctx context.Context, id string) (*users.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*users.Profile, error)
	GetProfileByGoogleSub(ctx context.Context, sub string) (*users.Profile, error)
	GetProfileByVerificationSession(ctx context.Context, sessionID string) (*users.Profile, error)
	LinkGoogleAccount(ctx context.Context, id, sub string) error
	SetProfileVerificationSession(ctx context.Context, id, sessionID string) error
	MarkIdentityVerified(ctx context.Context, id, sessionID string) (bool, error)
	ListProfiles(ctx context.Context) ([]users.Profile, error)

	FindPlan(ctx context.Context, t membership.Type, c membership.BillingCycle) (*plans.Plan, error)
	ListPlans(ctx context.Context, activeOnly bool) ([]plans.Plan, error)
	UpsertPlan(ctx context.Context, p *plans.Plan) (created bool, err error)

	FindCoupon(ctx context.Context, code string) (*billing.Coupon, error)
	CreateCoupon(ctx context.Context, c *billing.Coupon) error
	ListCoupons(ctx context.Context) ([]billing.Coupon, error)

	CreateIntent(ctx context.Context, in *membership.Intent) error
	GetIntent(ctx context.Context, id string) (*membership.Intent, error)
	FindOpenIntent(ctx context.Context, userID string) (*membership.Intent, error)
	LatestIntent(ctx context.Context, userID string) (*membership.Intent, error)
	UpdatePendingTerms(ctx context.Context, in *membership.Intent) (bool, error)
	SetIntentPaymentIntent(ctx context.Context, id, paymentIntentID string) error
	TransitionIntent(ctx context.Context, id string, to membership.Status) (bool, error)
	StampIntentVerification(ctx context.Context, id, sessionID, outcome string) error
	ClaimActivationEmail(ctx context.Context, id string) (bool, error)
	ListIntents(ctx context.Context, status membership.Status) ([]membership.Intent, error)
	ListUserIntents(ctx context.Context, userID string) ([]membership.Intent, error)

	CreateVerification(ctx context.Context, v *verification.IdentityVerification) (bool, error)
	GetVerificationBySession(ctx context.Context, sessionID string) (*verification.IdentityVerification, error)
	LatestVerification(ctx context.Context, userID string) (*verification.IdentityVerification, error)
	UpdateVerificationStatus(ctx context.Context, sessionID, status string, lastError *string) (bool, error)

	RecordPayment(ctx context.Context, p *billing.Payment) (bool, error)
	ListPayments(ctx context.Context, userID string) ([]billing.Payment, error)

	RecordWebhookEvent(ctx context.Context, e *ops.WebhookEvent) (bool, *ops.WebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
	CreateAlert(ctx context.Context, a *ops.AdminAlert) (bool, error)
	ListAlerts(ctx context.Context, openOnly bool) ([]ops.AdminAlert, error)
	ResolveAlert(ctx context.Context, id string) error
}
