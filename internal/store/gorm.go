package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"semzo-prive/internal/domain/billing"
	"semzo-prive/internal/domain/membership"
	"semzo-prive/internal/domain/ops"
	"semzo-prive/internal/domain/plans"
	"semzo-prive/internal/domain/users"
	"semzo-prive/internal/domain/verification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// New returns a Store backed by GORM.
func New(db *gorm.DB) Store {
	return &gormStore{db: db, now: time.Now}
}

// conn scopes the shared handle to ctx. It is not a transaction.
func (s *gormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

/* ---------- profiles ---------- */

func (s *gormStore) CreateProfile(ctx context.Context, p *users.Profile) error {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	return wrap("create profile", s.conn(ctx).Create(p).Error)
}

func (s *gormStore) GetProfile(ctx context.Context, id string) (*users.Profile, error) {
	var p users.Profile
	if err := s.conn(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, wrap("get profile", err)
	}
	return &p, nil
}

func (s *gormStore) GetProfileByEmail(ctx context.Context, email string) (*users.Profile, error) {
	var p users.Profile
	if err := s.conn(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&p).Error; err != nil {
		return nil, wrap("get profile by email", err)
	}
	return &p, nil
}

func (s *gormStore) GetProfileByGoogleSub(ctx context.Context, sub string) (*users.Profile, error) {
	var p users.Profile
	if err := s.conn(ctx).Where("google_sub = ?", sub).First(&p).Error; err != nil {
		return nil, wrap("get profile by google sub", err)
	}
	return &p, nil
}

func (s *gormStore) GetProfileByVerificationSession(ctx context.Context, sessionID string) (*users.Profile, error) {
	var p users.Profile
	if err := s.conn(ctx).Where("verification_session_id = ?", sessionID).First(&p).Error; err != nil {
		return nil, wrap("get profile by verification session", err)
	}
	return &p, nil
}

func (s *gormStore) LinkGoogleAccount(ctx context.Context, id, sub string) error {
	return wrap("link google account", s.conn(ctx).Model(&users.Profile{}).
		Where("id = ? AND google_sub IS NULL", id).
		Updates(map[string]interface{}{"google_sub": sub, "auth_provider": users.ProviderGoogle}).Error)
}

func (s *gormStore) SetProfileVerificationSession(ctx context.Context, id, sessionID string) error {
	return wrap("set profile verification session", s.conn(ctx).Model(&users.Profile{}).
		Where("id = ?", id).
		Update("verification_session_id", sessionID).Error)
}

func (s *gormStore) MarkIdentityVerified(ctx context.Context, id, sessionID string) (bool, error) {
	now := s.now()
	res := s.conn(ctx).Model(&users.Profile{}).
		Where("id = ? AND identity_verified = ?", id, false).
		Updates(map[string]interface{}{
			"identity_verified":       true,
			"identity_verified_at":    now,
			"verification_session_id": sessionID,
		})
	if res.Error != nil {
		return false, wrap("mark identity verified", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) ListProfiles(ctx context.Context) ([]users.Profile, error) {
	var out []users.Profile
	err := s.conn(ctx).Order("created_at DESC").Find(&out).Error
	return out, wrap("list profiles", err)
}

/* ---------- plans ---------- */

func (s *gormStore) FindPlan(ctx context.Context, t membership.Type, c membership.BillingCycle) (*plans.Plan, error) {
	var p plans.Plan
	err := s.conn(ctx).
		Where("membership_type = ? AND billing_cycle = ? AND active = ?", string(t), string(c), true).
		First(&p).Error
	if err != nil {
		return nil, wrap("find plan", err)
	}
	return &p, nil
}

func (s *gormStore) ListPlans(ctx context.Context, activeOnly bool) ([]plans.Plan, error) {
	var out []plans.Plan
	q := s.conn(ctx).Model(&plans.Plan{})
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	err := q.Order("amount_cents ASC").Find(&out).Error
	return out, wrap("list plans", err)
}

func (s *gormStore) UpsertPlan(ctx context.Context, p *plans.Plan) (bool, error) {
	var existing plans.Plan
	err := s.conn(ctx).
		Where("membership_type = ? AND billing_cycle = ?", string(p.MembershipType), string(p.BillingCycle)).
		First(&existing).Error
	if err != nil {
		if !errors.Is(wrap("find plan", err), ErrNotFound) {
			return false, wrap("find plan", err)
		}
		return true, wrap("create plan", s.conn(ctx).Create(p).Error)
	}

	existing.Name = p.Name
	existing.AmountCents = p.AmountCents
	existing.Currency = p.Currency
	existing.StripePriceID = p.StripePriceID
	existing.Active = p.Active
	if err := s.conn(ctx).Save(&existing).Error; err != nil {
		return false, wrap("update plan", err)
	}
	*p = existing
	return false, nil
}

/* ---------- coupons ---------- */

func (s *gormStore) FindCoupon(ctx context.Context, code string) (*billing.Coupon, error) {
	var c billing.Coupon
	if err := s.conn(ctx).Where("code = ?", billing.NormalizeCode(code)).First(&c).Error; err != nil {
		return nil, wrap("find coupon", err)
	}
	return &c, nil
}

func (s *gormStore) CreateCoupon(ctx context.Context, c *billing.Coupon) error {
	c.Code = billing.NormalizeCode(c.Code)
	return wrap("create coupon", s.conn(ctx).Create(c).Error)
}

func (s *gormStore) ListCoupons(ctx context.Context) ([]billing.Coupon, error) {
	var out []billing.Coupon
	err := s.conn(ctx).Order("created_at DESC").Find(&out).Error
	return out, wrap("list coupons", err)
}

/* ---------- intents ---------- */

func (s *gormStore) CreateIntent(ctx context.Context, in *membership.Intent) error {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	return wrap("create membership intent", s.conn(ctx).Create(in).Error)
}

func (s *gormStore) GetIntent(ctx context.Context, id string) (*membership.Intent, error) {
	var in membership.Intent
	if err := s.conn(ctx).Where("id = ?", id).First(&in).Error; err != nil {
		return nil, wrap("get membership intent", err)
	}
	return &in, nil
}

func (s *gormStore) FindOpenIntent(ctx context.Context, userID string) (*membership.Intent, error) {
	var in membership.Intent
	err := s.conn(ctx).
		Where("user_id = ? AND status IN ?", userID, statusStrings(membership.StatusPending, membership.StatusPaidPendingVerification)).
		Order("created_at DESC").
		First(&in).Error
	if err != nil {
		return nil, wrap("find open membership intent", err)
	}
	return &in, nil
}

func (s *gormStore) LatestIntent(ctx context.Context, userID string) (*membership.Intent, error) {
	var in membership.Intent
	if err := s.conn(ctx).Where("user_id = ?", userID).Order("created_at DESC").First(&in).Error; err != nil {
		return nil, wrap("latest membership intent", err)
	}
	return &in, nil
}

func (s *gormStore) UpdatePendingTerms(ctx context.Context, in *membership.Intent) (bool, error) {
	res := s.conn(ctx).Model(&membership.Intent{}).
		Where("id = ? AND status = ?", in.ID, string(membership.StatusPending)).
		Updates(map[string]interface{}{
			"membership_type": string(in.MembershipType),
			"billing_cycle":   string(in.BillingCycle),
			"amount_cents":    in.AmountCents,
			"currency":        in.Currency,
			"coupon_code":     in.CouponCode,
			"updated_at":      s.now(),
		})
	if res.Error != nil {
		return false, wrap("update pending intent", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) SetIntentPaymentIntent(ctx context.Context, id, paymentIntentID string) error {
	return wrap("set payment intent", s.conn(ctx).Model(&membership.Intent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"payment_intent_id": paymentIntentID, "updated_at": s.now()}).Error)
}

// TransitionIntent moves the intent to `to` only from a status the transition table allows.
// The WHERE clause is the compare-and-set; false means another writer got there first.
func (s *gormStore) TransitionIntent(ctx context.Context, id string, to membership.Status) (bool, error) {
	from := membership.SourcesOf(to)
	if len(from) == 0 {
		return false, nil
	}

	now := s.now()
	updates := map[string]interface{}{"status": string(to), "updated_at": now}
	switch to {
	case membership.StatusPaidPendingVerification:
		updates["paid_at"] = now
	case membership.StatusActive:
		updates["activated_at"] = now
	}

	res := s.conn(ctx).Model(&membership.Intent{}).
		Where("id = ? AND status IN ?", id, statusStrings(from...)).
		Updates(updates)
	if res.Error != nil {
		return false, wrap("transition membership intent", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) StampIntentVerification(ctx context.Context, id, sessionID, outcome string) error {
	return wrap("stamp intent verification", s.conn(ctx).Model(&membership.Intent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"verification_session_id": sessionID,
			"verification_status":     outcome,
			"verification_updated_at": s.now(),
		}).Error)
}

func (s *gormStore) ClaimActivationEmail(ctx context.Context, id string) (bool, error) {
	res := s.conn(ctx).Model(&membership.Intent{}).
		Where("id = ? AND status = ? AND activation_email_sent_at IS NULL", id, string(membership.StatusActive)).
		Update("activation_email_sent_at", s.now())
	if res.Error != nil {
		return false, wrap("claim activation email", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) ListIntents(ctx context.Context, status membership.Status) ([]membership.Intent, error) {
	var out []membership.Intent
	q := s.conn(ctx).Model(&membership.Intent{})
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	err := q.Order("created_at DESC").Find(&out).Error
	return out, wrap("list membership intents", err)
}

func (s *gormStore) ListUserIntents(ctx context.Context, userID string) ([]membership.Intent, error) {
	var out []membership.Intent
	err := s.conn(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	return out, wrap("list user intents", err)
}

func statusStrings(ss ...membership.Status) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

/* ---------- identity verifications ---------- */

func (s *gormStore) CreateVerification(ctx context.Context, v *verification.IdentityVerification) (bool, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	res := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_verification_id"}},
		DoNothing: true,
	}).Create(v)
	if res.Error != nil {
		return false, wrap("create identity verification", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) GetVerificationBySession(ctx context.Context, sessionID string) (*verification.IdentityVerification, error) {
	var v verification.IdentityVerification
	if err := s.conn(ctx).Where("stripe_verification_id = ?", sessionID).First(&v).Error; err != nil {
		return nil, wrap("get identity verification", err)
	}
	return &v, nil
}

func (s *gormStore) LatestVerification(ctx context.Context, userID string) (*verification.IdentityVerification, error) {
	var v verification.IdentityVerification
	if err := s.conn(ctx).Where("user_id = ?", userID).Order("created_at DESC").First(&v).Error; err != nil {
		return nil, wrap("latest identity verification", err)
	}
	return &v, nil
}

// UpdateVerificationStatus never moves a verified record and skips no-op writes, so replays
// report false.
func (s *gormStore) UpdateVerificationStatus(ctx context.Context, sessionID, status string, lastError *string) (bool, error) {
	updates := map[string]interface{}{
		"status":     status,
		"last_error": lastError,
		"updated_at": s.now(),
	}
	if status == verification.StatusVerified {
		updates["verified_at"] = s.now()
	}
	res := s.conn(ctx).Model(&verification.IdentityVerification{}).
		Where("stripe_verification_id = ? AND status <> ? AND status <> ?", sessionID, verification.StatusVerified, status).
		Updates(updates)
	if res.Error != nil {
		return false, wrap("update identity verification", res.Error)
	}
	return res.RowsAffected == 1, nil
}

/* ---------- payments ---------- */

func (s *gormStore) RecordPayment(ctx context.Context, p *billing.Payment) (bool, error) {
	res := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payment_intent_id"}, {Name: "status"}},
		DoNothing: true,
	}).Create(p)
	if res.Error != nil {
		return false, wrap("record payment", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) ListPayments(ctx context.Context, userID string) ([]billing.Payment, error) {
	var out []billing.Payment
	q := s.conn(ctx).Model(&billing.Payment{})
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	err := q.Order("created_at DESC").Find(&out).Error
	return out, wrap("list payments", err)
}

/* ---------- webhook events + alerts ---------- */

func (s *gormStore) RecordWebhookEvent(ctx context.Context, e *ops.WebhookEvent) (bool, *ops.WebhookEvent, error) {
	res := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(e)
	if res.Error != nil {
		return false, nil, wrap("record webhook event", res.Error)
	}

	created := res.RowsAffected > 0
	var stored ops.WebhookEvent
	if err := s.conn(ctx).Where("event_id = ?", e.EventID).First(&stored).Error; err != nil {
		return false, nil, wrap("load webhook event", err)
	}
	return created, &stored, nil
}

func (s *gormStore) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := s.now()
	return wrap("mark webhook processed", s.conn(ctx).Model(&ops.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_at":     &now,
			"processing_error": processingError,
		}).Error)
}

func (s *gormStore) CreateAlert(ctx context.Context, a *ops.AdminAlert) (bool, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	res := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedupe_key"}},
		DoNothing: true,
	}).Create(a)
	if res.Error != nil {
		return false, wrap("create admin alert", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) ListAlerts(ctx context.Context, openOnly bool) ([]ops.AdminAlert, error) {
	var out []ops.AdminAlert
	q := s.conn(ctx).Model(&ops.AdminAlert{})
	if openOnly {
		q = q.Where("resolved_at IS NULL")
	}
	err := q.Order("created_at DESC").Find(&out).Error
	return out, wrap("list admin alerts", err)
}

func (s *gormStore) ResolveAlert(ctx context.Context, id string) error {
	res := s.conn(ctx).Model(&ops.AdminAlert{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Update("resolved_at", s.now())
	if res.Error != nil {
		return wrap("resolve admin alert", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.conn(ctx).Model(&ops.AdminAlert{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return wrap("resolve admin alert", err)
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}
