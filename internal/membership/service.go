package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"semzo-prive/internal/alerts"
	"semzo-prive/internal/domain/billing"
	domain "semzo-prive/internal/domain/membership"
	"semzo-prive/internal/domain/ops"
	"semzo-prive/internal/domain/users"
	"semzo-prive/internal/domain/verification"
	"semzo-prive/internal/infra/stripe"
	"semzo-prive/internal/notify"
	"semzo-prive/internal/store"

	"go.uber.org/zap"
)

// PaymentGateway creates provider-side payment intents.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, req stripe.PaymentIntentRequest) (*stripe.PaymentIntent, error)
}

type Service struct {
	store  store.Store
	gw     PaymentGateway
	mailer notify.Mailer
	alerts *alerts.Raiser
	log    *zap.Logger
	now    func() time.Time
}

func NewService(s store.Store, gw PaymentGateway, mailer notify.Mailer, raiser *alerts.Raiser, log *zap.Logger) *Service {
	return &Service{store: s, gw: gw, mailer: mailer, alerts: raiser, log: log, now: time.Now}
}

// CreateIntentResult is returned to the browser to mount the payment element.
type CreateIntentResult struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	IntentID        string `json:"intentId"`
}

// CreateIntent validates the cart, prices it from the catalog, then creates or reuses the
// user's pending intent and asks the gateway for a payment intent.
func (s *Service) CreateIntent(ctx context.Context, userID string, req CreateIntentRequest) (*CreateIntentResult, error) {
	o, err := validate(req)
	if err != nil {
		return nil, err
	}

	plan, err := s.store.FindPlan(ctx, o.membershipType, o.billingCycle)
	if errors.Is(err, store.ErrNotFound) {
		return nil, violation("billingCycle not offered for "+string(o.membershipType), "billing_cycle_not_offered")
	}
	if err != nil {
		return nil, err
	}

	amount := plan.AmountCents
	var coupon *string
	if o.couponCode != "" {
		c, err := s.store.FindCoupon(ctx, o.couponCode)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !c.Usable(s.now())) {
			return nil, violation("couponCode invalid", "coupon_invalid")
		}
		if err != nil {
			return nil, err
		}
		amount = c.Apply(amount)
		coupon = &c.Code
	}
	if o.amountCents != amount {
		s.log.Warn("create-intent amount mismatch",
			zap.String("user_id", userID),
			zap.Int64("sent_cents", o.amountCents),
			zap.Int64("expected_cents", amount),
		)
		return nil, violation("amount mismatch", "amount_mismatch")
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	terms := domain.Intent{
		UserID:         userID,
		MembershipType: o.membershipType,
		BillingCycle:   o.billingCycle,
		Status:         domain.StatusPending,
		AmountCents:    amount,
		Currency:       plan.Currency,
		CouponCode:     coupon,
	}
	in, err := s.pendingIntent(ctx, o.intentID, terms)
	if err != nil {
		return nil, err
	}

	pi, err := s.gw.CreatePaymentIntent(ctx, stripe.PaymentIntentRequest{
		AmountCents:    in.AmountCents,
		Currency:       in.Currency,
		Description:    fmt.Sprintf("Semzo Privé %s (%s)", plan.Name, in.BillingCycle),
		ReceiptEmail:   profile.Email,
		IdempotencyKey: fmt.Sprintf("%s:%s:%s:%d", in.ID, in.MembershipType, in.BillingCycle, in.AmountCents),
		Metadata: map[string]string{
			"membership_intent_id": in.ID,
			"user_id":              userID,
			"membership_type":      string(in.MembershipType),
			"billing_cycle":        string(in.BillingCycle),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	if err := s.store.SetIntentPaymentIntent(ctx, in.ID, pi.ID); err != nil {
		return nil, err
	}

	s.log.Info("membership intent ready",
		zap.String("user_id", userID),
		zap.String("intent_id", in.ID),
		zap.String("payment_intent_id", pi.ID),
		zap.Int64("amount_cents", in.AmountCents),
	)
	return &CreateIntentResult{
		ClientSecret:    pi.ClientSecret,
		PaymentIntentID: pi.ID,
		Amount:          in.AmountCents,
		Currency:        in.Currency,
		IntentID:        in.ID,
	}, nil
}

// pendingIntent returns the intent this checkout drives: the one named by intentID when the user
// owns it, otherwise the user's open intent, otherwise a new row.
func (s *Service) pendingIntent(ctx context.Context, intentID string, terms domain.Intent) (*domain.Intent, error) {
	if intentID != "" {
		in, err := s.store.GetIntent(ctx, intentID)
		switch {
		case err == nil && in.UserID == terms.UserID:
			return s.reuse(ctx, in, terms)
		case err == nil, errors.Is(err, store.ErrNotFound):
			s.log.Info("ignoring unusable intent id", zap.String("user_id", terms.UserID), zap.String("intent_id", intentID))
		default:
			return nil, err
		}
	}

	open, err := s.store.FindOpenIntent(ctx, terms.UserID)
	if err == nil {
		return s.reuse(ctx, open, terms)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	in := terms
	if err := s.store.CreateIntent(ctx, &in); err != nil {
		if !store.IsUniqueViolation(err) {
			return nil, err
		}
		// a concurrent request created the open intent first
		open, ferr := s.store.FindOpenIntent(ctx, terms.UserID)
		if ferr != nil {
			return nil, err
		}
		return s.reuse(ctx, open, terms)
	}
	return &in, nil
}

func (s *Service) reuse(ctx context.Context, in *domain.Intent, terms domain.Intent) (*domain.Intent, error) {
	if in.Status != domain.StatusPending {
		return nil, ErrIntentConflict
	}
	if sameTerms(in, &terms) {
		return in, nil
	}

	next := *in
	next.MembershipType = terms.MembershipType
	next.BillingCycle = terms.BillingCycle
	next.AmountCents = terms.AmountCents
	next.Currency = terms.Currency
	next.CouponCode = terms.CouponCode
	ok, err := s.store.UpdatePendingTerms(ctx, &next)
	if err != nil {
		return nil, err
	}
	if !ok {
		// paid between our read and write
		return nil, ErrIntentConflict
	}
	return &next, nil
}

func sameTerms(a, b *domain.Intent) bool {
	return a.MembershipType == b.MembershipType &&
		a.BillingCycle == b.BillingCycle &&
		a.AmountCents == b.AmountCents &&
		a.Currency == b.Currency &&
		derefString(a.CouponCode) == derefString(b.CouponCode)
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// PaymentOutcome is what the payment webhook learned about one payment intent.
type PaymentOutcome struct {
	IntentID        string
	PaymentIntentID string
	AmountCents     int64
	Currency        string
	FailureMessage  string
}

// MarkPaid records the settled payment, moves the intent to paid_pending_verification and
// reconciles immediately when identity is already verified.
func (s *Service) MarkPaid(ctx context.Context, p PaymentOutcome) error {
	in, err := s.store.GetIntent(ctx, p.IntentID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrIntentNotFound
	}
	if err != nil {
		return err
	}
	log := s.log.With(zap.String("intent_id", in.ID), zap.String("payment_intent_id", p.PaymentIntentID))

	if _, err := s.store.RecordPayment(ctx, &billing.Payment{
		UserID:          in.UserID,
		IntentID:        in.ID,
		PaymentIntentID: p.PaymentIntentID,
		Status:          billing.PaymentSucceeded,
		AmountCents:     p.AmountCents,
		Currency:        p.Currency,
	}); err != nil {
		return err
	}

	if p.AmountCents != in.AmountCents {
		msg := fmt.Sprintf("payment %s settled %d %s for intent %s priced at %d",
			p.PaymentIntentID, p.AmountCents, p.Currency, in.ID, in.AmountCents)
		if err := s.alerts.Raise(ctx, ops.AlertAmountMismatch, "amount_mismatch:"+p.PaymentIntentID, in.UserID, msg); err != nil {
			log.Error("raise amount mismatch alert", zap.Error(err))
		}
	}

	moved, err := s.store.TransitionIntent(ctx, in.ID, domain.StatusPaidPendingVerification)
	if err != nil {
		return err
	}
	if moved {
		log.Info("membership intent paid")
	}

	// async path: a failure here leaves the intent for the poller
	if _, err := s.reconcile(ctx, in.ID); err != nil {
		log.Error("webhook-driven reconciliation failed", zap.Error(err))
	}
	return nil
}

// MarkPaymentFailed records the failure and raises an alert. The intent stays pending so the
// user can retry with another card.
func (s *Service) MarkPaymentFailed(ctx context.Context, p PaymentOutcome) error {
	in, err := s.store.GetIntent(ctx, p.IntentID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrIntentNotFound
	}
	if err != nil {
		return err
	}

	var failure *string
	if p.FailureMessage != "" {
		failure = &p.FailureMessage
	}
	created, err := s.store.RecordPayment(ctx, &billing.Payment{
		UserID:          in.UserID,
		IntentID:        in.ID,
		PaymentIntentID: p.PaymentIntentID,
		Status:          billing.PaymentFailed,
		AmountCents:     p.AmountCents,
		Currency:        p.Currency,
		FailureMessage:  failure,
	})
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	msg := fmt.Sprintf("payment %s failed for intent %s: %s", p.PaymentIntentID, in.ID, p.FailureMessage)
	return s.alerts.Raise(ctx, ops.AlertPaymentFailed, "payment_failed:"+p.PaymentIntentID, in.UserID, msg)
}

// StatusNone is reported when the user has never started a purchase.
const StatusNone = "none"

type StatusResult struct {
	Verified           bool   `json:"verified"`
	Status             string `json:"status"`
	IntentID           string `json:"intentId,omitempty"`
	VerificationStatus string `json:"verificationStatus,omitempty"`
}

// Status is the read side polled by the browser. intentID is optional.
func (s *Service) Status(ctx context.Context, userID, intentID string) (*StatusResult, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := &StatusResult{Verified: profile.IdentityVerified, Status: StatusNone}

	in, err := s.ownedIntent(ctx, userID, intentID)
	switch {
	case errors.Is(err, ErrIntentNotFound) && intentID == "":
	case err != nil:
		return nil, err
	default:
		res.Status = string(in.Status)
		res.IntentID = in.ID
		res.VerificationStatus = derefString(in.VerificationStatus)
	}
	return res, nil
}

type ReconcileResult struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

// Reconcile is the poll-driven path. It is safe to call any number of times.
func (s *Service) Reconcile(ctx context.Context, userID, intentID string) (*ReconcileResult, error) {
	in, err := s.ownedIntent(ctx, userID, intentID)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, in.ID)
}

// ReconcileIntent is the back-office path, without the ownership check.
func (s *Service) ReconcileIntent(ctx context.Context, intentID string) (*ReconcileResult, error) {
	return s.reconcile(ctx, intentID)
}

func (s *Service) ownedIntent(ctx context.Context, userID, intentID string) (*domain.Intent, error) {
	var (
		in  *domain.Intent
		err error
	)
	if intentID != "" {
		in, err = s.store.GetIntent(ctx, intentID)
		if err == nil && in.UserID != userID {
			return nil, ErrIntentNotFound
		}
	} else {
		in, err = s.store.LatestIntent(ctx, userID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrIntentNotFound
	}
	return in, err
}

func (s *Service) reconcile(ctx context.Context, intentID string) (*ReconcileResult, error) {
	in, err := s.store.GetIntent(ctx, intentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrIntentNotFound
	}
	if err != nil {
		return nil, err
	}

	switch in.Status {
	case domain.StatusActive:
		return &ReconcileResult{Success: true, Status: string(in.Status)}, nil
	case domain.StatusPending:
		return &ReconcileResult{Success: false, Status: string(in.Status)}, nil
	}

	profile, err := s.store.GetProfile(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if profile.IdentityVerified {
		won, err := s.store.TransitionIntent(ctx, in.ID, domain.StatusActive)
		if err != nil {
			return nil, err
		}
		if won {
			s.log.Info("membership activated", zap.String("intent_id", in.ID), zap.String("user_id", in.UserID))
			s.sendAccessUnlocked(ctx, in, profile)
		}
		return s.settled(ctx, in.ID, domain.StatusActive)
	}

	if in.Status == domain.StatusPaidPendingVerification {
		rejected, err := s.latestVerificationRejected(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		if rejected {
			if _, err := s.store.TransitionIntent(ctx, in.ID, domain.StatusLimitedAccess); err != nil {
				return nil, err
			}
			return s.settled(ctx, in.ID, domain.StatusLimitedAccess, domain.StatusActive)
		}
	}
	return &ReconcileResult{Success: false, Status: string(in.Status)}, nil
}

// settled re-reads the intent after a compare-and-set; success means it reached one of want,
// whoever moved it.
func (s *Service) settled(ctx context.Context, id string, want ...domain.Status) (*ReconcileResult, error) {
	cur, err := s.store.GetIntent(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, w := range want {
		if cur.Status == w {
			return &ReconcileResult{Success: true, Status: string(cur.Status)}, nil
		}
	}
	return &ReconcileResult{Success: false, Status: string(cur.Status)}, nil
}

func (s *Service) latestVerificationRejected(ctx context.Context, userID string) (bool, error) {
	v, err := s.store.LatestVerification(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v.Status == verification.StatusRejected, nil
}

func (s *Service) sendAccessUnlocked(ctx context.Context, in *domain.Intent, profile *users.Profile) {
	claimed, err := s.store.ClaimActivationEmail(ctx, in.ID)
	if err != nil {
		s.log.Error("claim activation email", zap.String("intent_id", in.ID), zap.Error(err))
		return
	}
	if !claimed {
		return
	}
	tier := tierName(in.MembershipType)
	if err := s.mailer.Send(ctx, notify.AccessUnlocked(profile.Email, profile.FullName, tier)); err != nil {
		s.log.Error("access unlocked email failed", zap.String("intent_id", in.ID), zap.Error(err))
	}
}

func tierName(t domain.Type) string {
	switch t {
	case domain.TypeEssentiel:
		return "L'Essentiel"
	case domain.TypeSignature:
		return "Signature"
	case domain.TypePrive:
		return "Privé"
	case domain.TypePetite:
		return "Petite"
	}
	return string(t)
}
