package store_test

import (
	"context"
	"sync"
	"testing"

	"semzo-prive/internal/domain/billing"
	"semzo-prive/internal/domain/membership"
	"semzo-prive/internal/domain/ops"
	"semzo-prive/internal/domain/users"
	"semzo-prive/internal/domain/verification"
	"semzo-prive/internal/store"
	"semzo-prive/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) store.Store {
	return store.New(storetest.Open(t))
}

func seedProfile(t *testing.T, s store.Store, id string) *users.Profile {
	t.Helper()
	p := &users.Profile{ID: id, Email: id + "@example.com", FullName: "Test " + id, AuthProvider: users.ProviderLocal, Role: users.RoleMember}
	require.NoError(t, s.CreateProfile(context.Background(), p))
	return p
}

func newIntent(userID string, status membership.Status) *membership.Intent {
	return &membership.Intent{
		UserID:         userID,
		MembershipType: membership.TypeSignature,
		BillingCycle:   membership.CycleMonthly,
		Status:         status,
		AmountCents:    12900,
		Currency:       "eur",
	}
}

func TestCatalogSeeded(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	p, err := s.FindPlan(ctx, membership.TypeSignature, membership.CycleMonthly)
	require.NoError(t, err)
	assert.Equal(t, int64(12900), p.AmountCents)

	_, err = s.FindPlan(ctx, membership.TypePetite, membership.CycleQuarterly)
	assert.ErrorIs(t, err, store.ErrNotFound)

	all, err := s.ListPlans(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 8)
	assert.Equal(t, int64(1999), all[0].AmountCents)
}

func TestUpsertPlan(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	price := "price_sig_m"

	p, err := s.FindPlan(ctx, membership.TypeSignature, membership.CycleMonthly)
	require.NoError(t, err)
	p.AmountCents = 13900
	p.StripePriceID = &price

	created, err := s.UpsertPlan(ctx, p)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := s.FindPlan(ctx, membership.TypeSignature, membership.CycleMonthly)
	require.NoError(t, err)
	assert.Equal(t, int64(13900), got.AmountCents)
	require.NotNil(t, got.StripePriceID)
	assert.Equal(t, price, *got.StripePriceID)
}

func TestProfileEmailIsNormalized(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateProfile(ctx, &users.Profile{ID: "u1", Email: "  Anna@Example.COM "}))

	p, err := s.GetProfileByEmail(ctx, "anna@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)

	err = s.CreateProfile(ctx, &users.Profile{ID: "u2", Email: "anna@example.com"})
	assert.True(t, store.IsUniqueViolation(err))
}

func TestTransitionIntentIsCompareAndSet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedProfile(t, s, "user_42")

	in := newIntent("user_42", membership.StatusPending)
	require.NoError(t, s.CreateIntent(ctx, in))
	require.NotEmpty(t, in.ID)

	ok, err := s.TransitionIntent(ctx, in.ID, membership.StatusActive)
	require.NoError(t, err)
	assert.False(t, ok, "pending cannot jump to active")

	ok, err = s.TransitionIntent(ctx, in.ID, membership.StatusPaidPendingVerification)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TransitionIntent(ctx, in.ID, membership.StatusPaidPendingVerification)
	require.NoError(t, err)
	assert.False(t, ok, "replay does not move the row twice")

	ok, err = s.TransitionIntent(ctx, in.ID, membership.StatusActive)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetIntent(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, membership.StatusActive, got.Status)
	assert.NotNil(t, got.PaidAt)
	assert.NotNil(t, got.ActivatedAt)

	ok, err = s.TransitionIntent(ctx, in.ID, membership.StatusLimitedAccess)
	require.NoError(t, err)
	assert.False(t, ok, "active is terminal")
}

func TestConcurrentActivationHasOneWinner(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedProfile(t, s, "user_7")

	in := newIntent("user_7", membership.StatusPending)
	require.NoError(t, s.CreateIntent(ctx, in))
	_, err := s.TransitionIntent(ctx, in.ID, membership.StatusPaidPendingVerification)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		claims  int
		workers = 8
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			moved, err := s.TransitionIntent(ctx, in.ID, membership.StatusActive)
			assert.NoError(t, err)
			claimed, err := s.ClaimActivationEmail(ctx, in.ID)
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			if moved {
				wins++
			}
			if claimed {
				claims++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, claims)
}

func TestOneOpenIntentPerUser(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedProfile(t, s, "user_1")

	first := newIntent("user_1", membership.StatusPending)
	require.NoError(t, s.CreateIntent(ctx, first))

	err := s.CreateIntent(ctx, newIntent("user_1", membership.StatusPending))
	require.Error(t, err)
	assert.True(t, store.IsUniqueViolation(err))

	open, err := s.FindOpenIntent(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, open.ID)

	// once the first intent is settled a new purchase may start
	_, err = s.TransitionIntent(ctx, first.ID, membership.StatusPaidPendingVerification)
	require.NoError(t, err)
	_, err = s.TransitionIntent(ctx, first.ID, membership.StatusActive)
	require.NoError(t, err)
	require.NoError(t, s.CreateIntent(ctx, newIntent("user_1", membership.StatusPending)))
}

func TestUpdatePendingTermsOnlyWhilePending(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	in := newIntent("user_3", membership.StatusPending)
	require.NoError(t, s.CreateIntent(ctx, in))

	in.MembershipType = membership.TypePrive
	in.AmountCents = 18900
	ok, err := s.UpdatePendingTerms(ctx, in)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.TransitionIntent(ctx, in.ID, membership.StatusPaidPendingVerification)
	require.NoError(t, err)

	in.AmountCents = 1
	ok, err = s.UpdatePendingTerms(ctx, in)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetIntent(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, membership.TypePrive, got.MembershipType)
	assert.Equal(t, int64(18900), got.AmountCents)
}

func TestMarkIdentityVerifiedOnce(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedProfile(t, s, "user_9")

	ok, err := s.MarkIdentityVerified(ctx, "user_9", "vs_1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MarkIdentityVerified(ctx, "user_9", "vs_1")
	require.NoError(t, err)
	assert.False(t, ok)

	p, err := s.GetProfileByVerificationSession(ctx, "vs_1")
	require.NoError(t, err)
	assert.True(t, p.IdentityVerified)
	assert.NotNil(t, p.IdentityVerifiedAt)
}

func TestVerificationStatusNeverLeavesVerified(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	created, err := s.CreateVerification(ctx, &verification.IdentityVerification{UserID: "u", StripeVerificationID: "vs_2", Status: verification.StatusPending})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateVerification(ctx, &verification.IdentityVerification{UserID: "u", StripeVerificationID: "vs_2", Status: verification.StatusPending})
	require.NoError(t, err)
	assert.False(t, created)

	changed, err := s.UpdateVerificationStatus(ctx, "vs_2", verification.StatusPending, nil)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.UpdateVerificationStatus(ctx, "vs_2", verification.StatusVerified, nil)
	require.NoError(t, err)
	assert.True(t, changed)

	reason := "document_expired"
	changed, err = s.UpdateVerificationStatus(ctx, "vs_2", verification.StatusRejected, &reason)
	require.NoError(t, err)
	assert.False(t, changed)

	v, err := s.GetVerificationBySession(ctx, "vs_2")
	require.NoError(t, err)
	assert.Equal(t, verification.StatusVerified, v.Status)
	assert.NotNil(t, v.VerifiedAt)
}

func TestRecordPaymentDedupes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	p := billing.Payment{UserID: "u", IntentID: "i", PaymentIntentID: "pi_1", Status: billing.PaymentSucceeded, AmountCents: 12900, Currency: "eur"}
	first := p
	ok, err := s.RecordPayment(ctx, &first)
	require.NoError(t, err)
	assert.True(t, ok)

	again := p
	ok, err = s.RecordPayment(ctx, &again)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := s.ListPayments(ctx, "u")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWebhookEventsAndAlerts(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	created, ev, err := s.RecordWebhookEvent(ctx, &ops.WebhookEvent{Endpoint: "identity", EventID: "evt_1", EventType: "identity.verification_session.verified"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, ev.Done())

	require.NoError(t, s.MarkWebhookProcessed(ctx, ev.ID, ""))

	created, ev, err = s.RecordWebhookEvent(ctx, &ops.WebhookEvent{Endpoint: "identity", EventID: "evt_1", EventType: "identity.verification_session.verified"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, ev.Done())

	alert := &ops.AdminAlert{Kind: ops.AlertIdentityRejected, DedupeKey: "identity_rejected:vs_3", Message: "rejected"}
	ok, err := s.CreateAlert(ctx, alert)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.CreateAlert(ctx, &ops.AdminAlert{Kind: ops.AlertIdentityRejected, DedupeKey: "identity_rejected:vs_3", Message: "rejected"})
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.ResolveAlert(ctx, alert.ID))
	require.NoError(t, s.ResolveAlert(ctx, alert.ID))
	assert.ErrorIs(t, s.ResolveAlert(ctx, "missing"), store.ErrNotFound)

	open, err := s.ListAlerts(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, open)
}
