// Package alerts records back-office alerts and mails a copy to the admin inbox.
package alerts

import (
	"context"

	"semzo-prive/internal/domain/ops"
	"semzo-prive/internal/notify"
	"semzo-prive/internal/store"

	"go.uber.org/zap"
)

type Raiser struct {
	store      store.Store
	mailer     notify.Mailer
	adminEmail string
	log        *zap.Logger
}

func NewRaiser(s store.Store, m notify.Mailer, adminEmail string, log *zap.Logger) *Raiser {
	return &Raiser{store: s, mailer: m, adminEmail: adminEmail, log: log}
}

// Raise stores the alert once per dedupeKey. The admin email goes out only for the first
// occurrence and a mail failure is logged, never returned.
func (r *Raiser) Raise(ctx context.Context, kind, dedupeKey, userID, message string) error {
	a := &ops.AdminAlert{Kind: kind, DedupeKey: dedupeKey, Message: message}
	if userID != "" {
		a.UserID = &userID
	}
	created, err := r.store.CreateAlert(ctx, a)
	if err != nil {
		return err
	}
	if !created {
		r.log.Debug("alert already recorded", zap.String("dedupe_key", dedupeKey))
		return nil
	}

	r.log.Warn("admin alert raised",
		zap.String("kind", kind),
		zap.String("user_id", userID),
		zap.String("alert_id", a.ID),
	)
	if r.adminEmail == "" {
		return nil
	}
	if err := r.mailer.Send(ctx, notify.AdminAlert(r.adminEmail, kind, message)); err != nil {
		r.log.Error("admin alert email failed", zap.String("alert_id", a.ID), zap.Error(err))
	}
	return nil
}
