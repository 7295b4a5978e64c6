package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scripted returns snapshots in order, repeating the last one.
type scripted struct {
	snaps      []Snapshot
	statusErr  error
	reconcile  Reconciliation
	reconErr   error
	statusHits int
	reconHits  int
}

func (s *scripted) Status(context.Context) (Snapshot, error) {
	s.statusHits++
	if s.statusErr != nil {
		return Snapshot{}, s.statusErr
	}
	i := s.statusHits - 1
	if i >= len(s.snaps) {
		i = len(s.snaps) - 1
	}
	return s.snaps[i], nil
}

func (s *scripted) Reconcile(context.Context) (Reconciliation, error) {
	s.reconHits++
	return s.reconcile, s.reconErr
}

type sleeps struct{ calls []time.Duration }

func (s *sleeps) sleep(_ context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return nil
}

func TestGivesUpAfterBudget(t *testing.T) {
	c := &scripted{snaps: []Snapshot{{Status: "paid_pending_verification"}}}
	sl := &sleeps{}

	res, err := New(c, zap.NewNop(), WithSleep(sl.sleep)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Equal(t, 20, res.Attempts)
	assert.Equal(t, 20, c.statusHits)
	assert.Zero(t, c.reconHits)
	require.Len(t, sl.calls, 19)
	assert.Equal(t, 3*time.Second, sl.calls[0])
}

func TestReconcilesOnceVerified(t *testing.T) {
	c := &scripted{
		snaps: []Snapshot{
			{Status: "paid_pending_verification"},
			{Status: "paid_pending_verification"},
			{Verified: true, Status: "paid_pending_verification"},
		},
		reconcile: Reconciliation{Success: true, Status: "active"},
	}
	sl := &sleeps{}

	res, err := New(c, zap.NewNop(), WithSleep(sl.sleep)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeActive, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 1, c.reconHits)
	assert.Len(t, sl.calls, 2)
}

func TestAlreadyActiveSkipsReconcile(t *testing.T) {
	c := &scripted{snaps: []Snapshot{{Verified: true, Status: "active"}}}

	res, err := New(c, zap.NewNop(), WithSleep((&sleeps{}).sleep)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeActive, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
	assert.Zero(t, c.reconHits)
}

func TestRejectedVerificationEndsLimited(t *testing.T) {
	c := &scripted{
		snaps:     []Snapshot{{Status: "paid_pending_verification", VerificationStatus: "rejected"}},
		reconcile: Reconciliation{Success: true, Status: "limited_access"},
	}

	res, err := New(c, zap.NewNop(), WithSleep((&sleeps{}).sleep)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeLimited, res.Outcome)
}

func TestVerifiedLimitedMemberIsReconciled(t *testing.T) {
	c := &scripted{
		snaps:     []Snapshot{{Verified: true, Status: "limited_access", VerificationStatus: "verified"}},
		reconcile: Reconciliation{Success: true, Status: "active"},
	}

	res, err := New(c, zap.NewNop(), WithSleep((&sleeps{}).sleep)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeActive, res.Outcome)
	assert.Equal(t, "active", res.Status)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, c.reconHits)
}

func TestUnverifiedLimitedMemberEndsLimited(t *testing.T) {
	c := &scripted{snaps: []Snapshot{{Status: "limited_access", VerificationStatus: "rejected"}}}

	res, err := New(c, zap.NewNop(), WithSleep((&sleeps{}).sleep)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeLimited, res.Outcome)
	assert.Zero(t, c.reconHits)
}

func TestErrorsDegradeToPending(t *testing.T) {
	c := &scripted{statusErr: errors.New("502 bad gateway")}
	sl := &sleeps{}

	res, err := New(c, zap.NewNop(), WithSleep(sl.sleep), WithAttempts(4), WithInterval(time.Second)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Equal(t, 4, c.statusHits)
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, sl.calls)
}

func TestFailedReconcileKeepsPolling(t *testing.T) {
	c := &scripted{
		snaps:    []Snapshot{{Verified: true, Status: "paid_pending_verification"}},
		reconErr: errors.New("timeout"),
	}

	res, err := New(c, zap.NewNop(), WithSleep((&sleeps{}).sleep), WithAttempts(3)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Equal(t, 3, c.reconHits)
}

func TestCancellationStopsRun(t *testing.T) {
	c := &scripted{snaps: []Snapshot{{Status: "pending"}}}
	ctx, cancel := context.WithCancel(context.Background())
	sleep := func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	res, err := New(c, zap.NewNop(), WithSleep(sleep)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Equal(t, 1, c.statusHits)
}

func TestDefaultSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
