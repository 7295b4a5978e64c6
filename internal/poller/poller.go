// Package poller waits for a paid membership to settle after identity verification, asking the
// server to reconcile once verification is observed.
package poller

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultInterval = 3 * time.Second
	DefaultAttempts = 20
)

const (
	statusActive      = "active"
	statusLimited     = "limited_access"
	statusPaidPending = "paid_pending_verification"
	verificationFail  = "rejected"
)

type Outcome string

const (
	OutcomeActive  Outcome = "active"
	OutcomeLimited Outcome = "limited"
	// OutcomePending means the budget ran out; the caller shows a refresh affordance.
	OutcomePending Outcome = "pending"
)

// Snapshot is one read of the status endpoint.
type Snapshot struct {
	Verified           bool   `json:"verified"`
	Status             string `json:"status"`
	VerificationStatus string `json:"verificationStatus,omitempty"`
}

type Reconciliation struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

type Client interface {
	Status(ctx context.Context) (Snapshot, error)
	Reconcile(ctx context.Context) (Reconciliation, error)
}

// SleepFunc waits d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Result struct {
	Outcome  Outcome
	Status   string
	Attempts int
}

type Poller struct {
	client   Client
	interval time.Duration
	attempts int
	sleep    SleepFunc
	log      *zap.Logger
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

func WithAttempts(n int) Option {
	return func(p *Poller) { p.attempts = n }
}

func WithSleep(fn SleepFunc) Option {
	return func(p *Poller) { p.sleep = fn }
}

func New(c Client, log *zap.Logger, opts ...Option) *Poller {
	p := &Poller{
		client:   c,
		interval: DefaultInterval,
		attempts: DefaultAttempts,
		sleep:    sleepCtx,
		log:      log,
	}
	for _, o := range opts {
		o(p)
	}
	if p.attempts < 1 {
		p.attempts = 1
	}
	return p
}

// Run polls at most attempts times, sleeping between attempts but not after the last one.
// Status and reconcile failures are logged and retried; only ctx cancellation is an error.
func (p *Poller) Run(ctx context.Context) (Result, error) {
	last := ""
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{Outcome: OutcomePending, Status: last, Attempts: attempt - 1}, err
		}

		status, done := p.poll(ctx, attempt)
		if status != "" {
			last = status
		}
		if done != "" {
			return Result{Outcome: done, Status: last, Attempts: attempt}, nil
		}

		if attempt < p.attempts {
			if err := p.sleep(ctx, p.interval); err != nil {
				return Result{Outcome: OutcomePending, Status: last, Attempts: attempt}, err
			}
		}
	}

	p.log.Info("membership still pending after poll budget", zap.Int("attempts", p.attempts), zap.String("status", last))
	return Result{Outcome: OutcomePending, Status: last, Attempts: p.attempts}, nil
}

func (p *Poller) poll(ctx context.Context, attempt int) (string, Outcome) {
	snap, err := p.client.Status(ctx)
	if err != nil {
		p.log.Warn("status poll failed", zap.Int("attempt", attempt), zap.Error(err))
		return "", ""
	}
	if !shouldReconcile(snap) {
		return snap.Status, settled(snap.Status)
	}

	rec, err := p.client.Reconcile(ctx)
	if err != nil {
		p.log.Warn("reconcile failed", zap.Int("attempt", attempt), zap.Error(err))
		return snap.Status, ""
	}
	if !rec.Success {
		return rec.Status, ""
	}
	return rec.Status, settled(rec.Status)
}

// shouldReconcile is true when the server may owe a transition: a verified member that is not
// yet active, or a paid intent whose verification was rejected.
func shouldReconcile(snap Snapshot) bool {
	switch snap.Status {
	case statusPaidPending:
		return snap.Verified || snap.VerificationStatus == verificationFail
	case statusLimited:
		return snap.Verified
	}
	return false
}

func settled(status string) Outcome {
	switch status {
	case statusActive:
		return OutcomeActive
	case statusLimited:
		return OutcomeLimited
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
