package membership

import (
	"context"
	"errors"
	"sync"
	"testing"

	"semzo-prive/internal/alerts"
	"semzo-prive/internal/domain/billing"
	domain "semzo-prive/internal/domain/membership"
	"semzo-prive/internal/domain/users"
	"semzo-prive/internal/domain/verification"
	"semzo-prive/internal/infra/stripe"
	"semzo-prive/internal/infra/stripe/stripetest"
	"semzo-prive/internal/notify/notifytest"
	"semzo-prive/internal/store"
	"semzo-prive/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc   *Service
	store store.Store
	gw    *stripetest.Gateway
	mail  *notifytest.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New(storetest.Open(t))
	gw := &stripetest.Gateway{}
	mail := &notifytest.Recorder{}
	log := zap.NewNop()
	raiser := alerts.NewRaiser(st, mail, "ops@semzo.example", log)
	return &fixture{
		svc:   NewService(st, gw, mail, raiser, log),
		store: st,
		gw:    gw,
		mail:  mail,
	}
}

func (f *fixture) profile(t *testing.T, id string, verified bool) *users.Profile {
	t.Helper()
	ctx := context.Background()
	p := &users.Profile{ID: id, Email: id + "@example.com", FullName: "Member " + id}
	require.NoError(t, f.store.CreateProfile(ctx, p))
	if verified {
		_, err := f.store.MarkIdentityVerified(ctx, id, "vs_"+id)
		require.NoError(t, err)
	}
	return p
}

// paidIntent creates an intent through the service and settles it like the payment webhook would,
// without triggering reconciliation.
func (f *fixture) paidIntent(t *testing.T, userID string) *domain.Intent {
	t.Helper()
	ctx := context.Background()
	res, err := f.svc.CreateIntent(ctx, userID, signatureMonthly())
	require.NoError(t, err)
	moved, err := f.store.TransitionIntent(ctx, res.IntentID, domain.StatusPaidPendingVerification)
	require.NoError(t, err)
	require.True(t, moved)
	in, err := f.store.GetIntent(ctx, res.IntentID)
	require.NoError(t, err)
	return in
}

func (f *fixture) unlockedEmails(userID string) int {
	n := 0
	for _, m := range f.mail.To(userID + "@example.com") {
		if m.Subject == "Votre accès Semzo Privé est activé" {
			n++
		}
	}
	return n
}

func amount(v float64) *float64 { return &v }

func signatureMonthly() CreateIntentRequest {
	return CreateIntentRequest{
		Amount: amount(129),
		Items:  []Item{{ItemType: "membership", ID: "signature", BillingCycle: "monthly"}},
	}
}

func TestCreateIntentSignatureMonthly(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_42", false)
	ctx := context.Background()

	res, err := f.svc.CreateIntent(ctx, "user_42", signatureMonthly())
	require.NoError(t, err)

	assert.Equal(t, int64(12900), res.Amount)
	assert.Equal(t, "eur", res.Currency)
	assert.Equal(t, "pi_test_1", res.PaymentIntentID)
	assert.Equal(t, "pi_test_1_secret_test", res.ClientSecret)

	in, err := f.store.GetIntent(ctx, res.IntentID)
	require.NoError(t, err)
	assert.Equal(t, "user_42", in.UserID)
	assert.Equal(t, domain.StatusPending, in.Status)
	assert.Equal(t, domain.TypeSignature, in.MembershipType)
	assert.Equal(t, domain.CycleMonthly, in.BillingCycle)
	assert.Equal(t, int64(12900), in.AmountCents)
	require.NotNil(t, in.PaymentIntentID)
	assert.Equal(t, "pi_test_1", *in.PaymentIntentID)

	require.Len(t, f.gw.PaymentIntents, 1)
	req := f.gw.PaymentIntents[0]
	assert.Equal(t, int64(12900), req.AmountCents)
	assert.Equal(t, res.IntentID, req.Metadata["membership_intent_id"])
	assert.Equal(t, "user_42", req.Metadata["user_id"])
	assert.Equal(t, "user_42@example.com", req.ReceiptEmail)
}

func TestCreateIntentMissingBillingCycle(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_42", false)

	req := signatureMonthly()
	req.Items[0].BillingCycle = ""
	_, err := f.svc.CreateIntent(context.Background(), "user_42", req)

	var ce *ContractError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Contract violation: billingCycle missing", ce.Error())
	assert.Equal(t, "billing_cycle_missing", ce.Reason)

	intents, err := f.store.ListIntents(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, intents)
	assert.Zero(t, f.gw.PaymentIntentCalls())
}

func TestCreateIntentContractViolations(t *testing.T) {
	membership := func(id, cycle string) Item {
		return Item{ItemType: "membership", ID: id, BillingCycle: cycle}
	}
	tests := []struct {
		name   string
		req    CreateIntentRequest
		reason string
	}{
		{"no items", CreateIntentRequest{Amount: amount(129)}, "items_missing"},
		{"unsupported line", CreateIntentRequest{Amount: amount(129), Items: []Item{{ItemType: "giftcard", ID: "gc"}}}, "unsupported_item_type"},
		{"item type missing", CreateIntentRequest{Amount: amount(129), Items: []Item{{ID: "signature", BillingCycle: "monthly"}}}, "item_type_missing"},
		{"two membership lines", CreateIntentRequest{Amount: amount(129), Items: []Item{membership("signature", "monthly"), membership("prive", "monthly")}}, "multiple_membership_items"},
		{"type missing", CreateIntentRequest{Amount: amount(129), Items: []Item{membership("", "monthly")}}, "membership_type_missing"},
		{"type unknown", CreateIntentRequest{Amount: amount(129), Items: []Item{membership("platinum", "monthly")}}, "membership_type_invalid"},
		{"cycle invalid", CreateIntentRequest{Amount: amount(129), Items: []Item{membership("signature", "yearly")}}, "billing_cycle_invalid"},
		{"amount missing", CreateIntentRequest{Items: []Item{membership("signature", "monthly")}}, "amount_missing"},
		{"amount mismatch", CreateIntentRequest{Amount: amount(99), Items: []Item{membership("signature", "monthly")}}, "amount_mismatch"},
		{"cycle not offered", CreateIntentRequest{Amount: amount(19.99), Items: []Item{membership("petite", "quarterly")}}, "billing_cycle_not_offered"},
		{"coupon unknown", CreateIntentRequest{Amount: amount(129), CouponCode: "NOPE", Items: []Item{membership("signature", "monthly")}}, "coupon_invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.profile(t, "user_1", false)

			_, err := f.svc.CreateIntent(context.Background(), "user_1", tt.req)
			var ce *ContractError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.reason, ce.Reason)

			intents, err := f.store.ListIntents(context.Background(), "")
			require.NoError(t, err)
			assert.Empty(t, intents)
			assert.Zero(t, f.gw.PaymentIntentCalls())
		})
	}
}

func TestCreateIntentAcceptsDisplayNames(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_1", false)

	res, err := f.svc.CreateIntent(context.Background(), "user_1", CreateIntentRequest{
		Amount: amount(499),
		Items:  []Item{{ItemType: "Membership", Name: "Privé", BillingCycle: "quarterly"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(49900), res.Amount)
}

func TestCreateIntentIsIdempotentOnIntentID(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_42", false)
	ctx := context.Background()

	first, err := f.svc.CreateIntent(ctx, "user_42", signatureMonthly())
	require.NoError(t, err)

	again := signatureMonthly()
	again.IntentID = first.IntentID
	second, err := f.svc.CreateIntent(ctx, "user_42", again)
	require.NoError(t, err)
	third, err := f.svc.CreateIntent(ctx, "user_42", again)
	require.NoError(t, err)

	assert.Equal(t, first.IntentID, second.IntentID)
	assert.Equal(t, first.IntentID, third.IntentID)

	intents, err := f.store.ListIntents(ctx, "")
	require.NoError(t, err)
	assert.Len(t, intents, 1)

	require.Len(t, f.gw.PaymentIntents, 3)
	assert.Equal(t, f.gw.PaymentIntents[0].IdempotencyKey, f.gw.PaymentIntents[2].IdempotencyKey)
}

func TestCreateIntentWithoutIDReusesOpenIntent(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_42", false)
	ctx := context.Background()

	first, err := f.svc.CreateIntent(ctx, "user_42", signatureMonthly())
	require.NoError(t, err)

	upgrade := CreateIntentRequest{
		Amount: amount(189),
		Items:  []Item{{ItemType: "membership", ID: "prive", BillingCycle: "monthly"}},
	}
	second, err := f.svc.CreateIntent(ctx, "user_42", upgrade)
	require.NoError(t, err)
	assert.Equal(t, first.IntentID, second.IntentID)
	assert.Equal(t, int64(18900), second.Amount)

	in, err := f.store.GetIntent(ctx, first.IntentID)
	require.NoError(t, err)
	assert.Equal(t, domain.TypePrive, in.MembershipType)
	assert.Equal(t, int64(18900), in.AmountCents)
	assert.NotEqual(t, f.gw.PaymentIntents[0].IdempotencyKey, f.gw.PaymentIntents[1].IdempotencyKey)
}

func TestCreateIntentIgnoresForeignIntentID(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_a", false)
	f.profile(t, "user_b", false)
	ctx := context.Background()

	theirs, err := f.svc.CreateIntent(ctx, "user_b", signatureMonthly())
	require.NoError(t, err)

	req := signatureMonthly()
	req.IntentID = theirs.IntentID
	mine, err := f.svc.CreateIntent(ctx, "user_a", req)
	require.NoError(t, err)
	assert.NotEqual(t, theirs.IntentID, mine.IntentID)

	in, err := f.store.GetIntent(ctx, mine.IntentID)
	require.NoError(t, err)
	assert.Equal(t, "user_a", in.UserID)
}

func TestCreateIntentConflictsWithPaidIntent(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_42", false)
	paid := f.paidIntent(t, "user_42")

	req := signatureMonthly()
	req.IntentID = paid.ID
	_, err := f.svc.CreateIntent(context.Background(), "user_42", req)
	assert.ErrorIs(t, err, ErrIntentConflict)

	_, err = f.svc.CreateIntent(context.Background(), "user_42", signatureMonthly())
	assert.ErrorIs(t, err, ErrIntentConflict)
}

func TestCreateIntentAppliesCoupon(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_1", false)
	ctx := context.Background()
	require.NoError(t, f.store.CreateCoupon(ctx, &billing.Coupon{Code: "welcome10", PercentOff: 10, Active: true}))

	req := signatureMonthly()
	req.Amount = amount(116.10)
	req.CouponCode = "Welcome10"
	res, err := f.svc.CreateIntent(ctx, "user_1", req)
	require.NoError(t, err)
	assert.Equal(t, int64(11610), res.Amount)

	in, err := f.store.GetIntent(ctx, res.IntentID)
	require.NoError(t, err)
	require.NotNil(t, in.CouponCode)
	assert.Equal(t, "WELCOME10", *in.CouponCode)
}

func TestCreateIntentSurfacesGatewayError(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_1", false)
	f.gw.PaymentIntentErr = &stripe.UpstreamError{Code: "card_declined", Message: "Your card was declined.", HTTPStatus: 402}

	_, err := f.svc.CreateIntent(context.Background(), "user_1", signatureMonthly())
	var ue *stripe.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "card_declined", ue.Code)
}

func TestReconcileActivatesOnce(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_42", true)
	in := f.paidIntent(t, "user_42")
	ctx := context.Background()

	res, err := f.svc.Reconcile(ctx, "user_42", in.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, string(domain.StatusActive), res.Status)

	res, err = f.svc.Reconcile(ctx, "user_42", "")
	require.NoError(t, err)
	assert.True(t, res.Success)

	assert.Equal(t, 1, f.unlockedEmails("user_42"))
}

func TestReconcileWaitsForVerification(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_1", false)
	ctx := context.Background()

	created, err := f.svc.CreateIntent(ctx, "user_1", signatureMonthly())
	require.NoError(t, err)
	res, err := f.svc.Reconcile(ctx, "user_1", created.IntentID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, string(domain.StatusPending), res.Status)

	_, err = f.store.TransitionIntent(ctx, created.IntentID, domain.StatusPaidPendingVerification)
	require.NoError(t, err)
	res, err = f.svc.Reconcile(ctx, "user_1", created.IntentID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, string(domain.StatusPaidPendingVerification), res.Status)
	assert.Zero(t, f.unlockedEmails("user_1"))
}

func TestReconcileRejectedVerificationGivesLimitedAccess(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_1", false)
	in := f.paidIntent(t, "user_1")
	ctx := context.Background()

	_, err := f.store.CreateVerification(ctx, &verification.IdentityVerification{
		UserID: "user_1", StripeVerificationID: "vs_1", Status: verification.StatusRejected,
	})
	require.NoError(t, err)

	res, err := f.svc.Reconcile(ctx, "user_1", in.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, string(domain.StatusLimitedAccess), res.Status)

	// a later successful verification upgrades the membership
	_, err = f.store.MarkIdentityVerified(ctx, "user_1", "vs_2")
	require.NoError(t, err)
	res, err = f.svc.Reconcile(ctx, "user_1", in.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, string(domain.StatusActive), res.Status)
	assert.Equal(t, 1, f.unlockedEmails("user_1"))
}

func TestReconcileChecksOwnership(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_1", true)
	f.profile(t, "user_2", false)
	in := f.paidIntent(t, "user_1")

	_, err := f.svc.Reconcile(context.Background(), "user_2", in.ID)
	assert.ErrorIs(t, err, ErrIntentNotFound)

	_, err = f.svc.Reconcile(context.Background(), "user_2", "")
	assert.ErrorIs(t, err, ErrIntentNotFound)
}

func TestMarkPaidReconcilesVerifiedProfile(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_42", true)
	ctx := context.Background()

	created, err := f.svc.CreateIntent(ctx, "user_42", signatureMonthly())
	require.NoError(t, err)

	outcome := PaymentOutcome{IntentID: created.IntentID, PaymentIntentID: created.PaymentIntentID, AmountCents: 12900, Currency: "eur"}
	require.NoError(t, f.svc.MarkPaid(ctx, outcome))
	require.NoError(t, f.svc.MarkPaid(ctx, outcome))

	in, err := f.store.GetIntent(ctx, created.IntentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, in.Status)
	assert.Equal(t, 1, f.unlockedEmails("user_42"))

	payments, err := f.store.ListPayments(ctx, "user_42")
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestMarkPaidUnverifiedWaits(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_1", false)
	ctx := context.Background()

	created, err := f.svc.CreateIntent(ctx, "user_1", signatureMonthly())
	require.NoError(t, err)
	require.NoError(t, f.svc.MarkPaid(ctx, PaymentOutcome{IntentID: created.IntentID, PaymentIntentID: created.PaymentIntentID, AmountCents: 12900, Currency: "eur"}))

	st, err := f.svc.Status(ctx, "user_1", "")
	require.NoError(t, err)
	assert.False(t, st.Verified)
	assert.Equal(t, string(domain.StatusPaidPendingVerification), st.Status)
}

func TestMarkPaidUnknownIntent(t *testing.T) {
	f := newFixture(t)
	err := f.svc.MarkPaid(context.Background(), PaymentOutcome{IntentID: "missing", PaymentIntentID: "pi_x"})
	assert.ErrorIs(t, err, ErrIntentNotFound)
}

func TestMarkPaymentFailedRaisesAlertOnce(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_1", false)
	ctx := context.Background()

	created, err := f.svc.CreateIntent(ctx, "user_1", signatureMonthly())
	require.NoError(t, err)
	outcome := PaymentOutcome{IntentID: created.IntentID, PaymentIntentID: created.PaymentIntentID, AmountCents: 12900, Currency: "eur", FailureMessage: "card_declined"}
	require.NoError(t, f.svc.MarkPaymentFailed(ctx, outcome))
	require.NoError(t, f.svc.MarkPaymentFailed(ctx, outcome))

	open, err := f.store.ListAlerts(ctx, true)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	in, err := f.store.GetIntent(ctx, created.IntentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, in.Status)
}

func TestStatusWithoutIntent(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_1", true)

	st, err := f.svc.Status(context.Background(), "user_1", "")
	require.NoError(t, err)
	assert.True(t, st.Verified)
	assert.Equal(t, StatusNone, st.Status)

	_, err = f.svc.Status(context.Background(), "user_1", "unknown")
	assert.True(t, errors.Is(err, ErrIntentNotFound))
}

func TestConcurrentReconciliationConverges(t *testing.T) {
	f := newFixture(t)
	f.profile(t, "user_42", true)
	in := f.paidIntent(t, "user_42")
	ctx := context.Background()
	outcome := PaymentOutcome{IntentID: in.ID, PaymentIntentID: *in.PaymentIntentID, AmountCents: in.AmountCents, Currency: "eur"}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				assert.NoError(t, f.svc.MarkPaid(ctx, outcome))
				return
			}
			res, err := f.svc.Reconcile(ctx, "user_42", in.ID)
			if assert.NoError(t, err) {
				assert.True(t, res.Success)
			}
		}(i)
	}
	wg.Wait()

	got, err := f.store.GetIntent(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Status)
	assert.Equal(t, 1, f.unlockedEmails("user_42"))
}
