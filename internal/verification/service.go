// Package verification drives Stripe Identity sessions. It records outcomes on the profile and the
// verification audit row and stamps tracking fields on the intent; it never moves intent status.
package verification

import (
	"context"
	"errors"
	"fmt"

	"semzo-prive/internal/alerts"
	"semzo-prive/internal/domain/ops"
	domain "semzo-prive/internal/domain/verification"
	"semzo-prive/internal/infra/stripe"
	"semzo-prive/internal/notify"
	"semzo-prive/internal/store"

	"go.uber.org/zap"
)

var (
	ErrAlreadyVerified = errors.New("identity already verified")
	ErrUnknownSession  = errors.New("verification session does not belong to a known profile")
)

type SessionGateway interface {
	CreateVerificationSession(ctx context.Context, req stripe.VerificationSessionRequest) (*stripe.VerificationSession, error)
}

type Service struct {
	store     store.Store
	gw        SessionGateway
	mailer    notify.Mailer
	alerts    *alerts.Raiser
	returnURL string
	log       *zap.Logger
}

func NewService(s store.Store, gw SessionGateway, mailer notify.Mailer, raiser *alerts.Raiser, siteURL string, log *zap.Logger) *Service {
	return &Service{
		store:     s,
		gw:        gw,
		mailer:    mailer,
		alerts:    raiser,
		returnURL: siteURL + "/membership/verification-complete",
		log:       log,
	}
}

type SessionResult struct {
	SessionID    string `json:"sessionId"`
	URL          string `json:"url"`
	ClientSecret string `json:"clientSecret"`
}

// StartSession opens a document verification session for the user and links it to their
// open intent when there is one.
func (s *Service) StartSession(ctx context.Context, userID string) (*SessionResult, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.IdentityVerified {
		return nil, ErrAlreadyVerified
	}

	meta := map[string]string{"user_id": userID}
	returnURL := s.returnURL
	open, err := s.store.FindOpenIntent(ctx, userID)
	switch {
	case err == nil:
		meta["membership_intent_id"] = open.ID
		returnURL += "?intent=" + open.ID
	case errors.Is(err, store.ErrNotFound):
		open = nil
	default:
		return nil, err
	}

	vs, err := s.gw.CreateVerificationSession(ctx, stripe.VerificationSessionRequest{
		ReturnURL: returnURL,
		Metadata:  meta,
	})
	if err != nil {
		return nil, fmt.Errorf("create verification session: %w", err)
	}

	if _, err := s.store.CreateVerification(ctx, &domain.IdentityVerification{
		UserID:               userID,
		StripeVerificationID: vs.ID,
		Status:               domain.StatusPending,
	}); err != nil {
		return nil, err
	}
	if err := s.store.SetProfileVerificationSession(ctx, userID, vs.ID); err != nil {
		return nil, err
	}
	if open != nil {
		if err := s.store.StampIntentVerification(ctx, open.ID, vs.ID, domain.StatusPending); err != nil {
			return nil, err
		}
	}

	s.log.Info("verification session started", zap.String("user_id", userID), zap.String("session_id", vs.ID))
	return &SessionResult{SessionID: vs.ID, URL: vs.URL, ClientSecret: vs.ClientSecret}, nil
}

// ApplySessionUpdate folds one identity webhook event into local state. Replaying the same
// event leaves the state unchanged and sends nothing.
func (s *Service) ApplySessionUpdate(ctx context.Context, ev stripe.SessionEvent) error {
	userID, err := s.ownerOf(ctx, ev)
	if err != nil {
		return err
	}
	log := s.log.With(zap.String("user_id", userID), zap.String("session_id", ev.SessionID))

	if _, err := s.store.CreateVerification(ctx, &domain.IdentityVerification{
		UserID:               userID,
		StripeVerificationID: ev.SessionID,
		Status:               domain.StatusPending,
	}); err != nil {
		return err
	}

	outcome := ev.Outcome()
	switch outcome {
	case domain.StatusVerified:
		if _, err := s.store.UpdateVerificationStatus(ctx, ev.SessionID, domain.StatusVerified, nil); err != nil {
			return err
		}
		first, err := s.store.MarkIdentityVerified(ctx, userID, ev.SessionID)
		if err != nil {
			return err
		}
		if first {
			log.Info("identity verified")
			s.notifyUser(ctx, userID, notify.IdentityConfirmed, log)
		}

	case domain.StatusRejected:
		rec, err := s.store.GetVerificationBySession(ctx, ev.SessionID)
		if err != nil {
			return err
		}
		if rec.Status == domain.StatusVerified {
			break
		}
		// raised before the status flips so a replay can retry it
		reason := lastError(ev)
		msg := fmt.Sprintf("identity verification %s for user %s was rejected (%s, %s)", ev.SessionID, userID, ev.Status, reason)
		if err := s.alerts.Raise(ctx, ops.AlertIdentityRejected, "identity_rejected:"+ev.SessionID, userID, msg); err != nil {
			return err
		}
		changed, err := s.store.UpdateVerificationStatus(ctx, ev.SessionID, domain.StatusRejected, &reason)
		if err != nil {
			return err
		}
		if changed {
			log.Warn("identity verification rejected", zap.String("reason", reason))
			s.notifyUser(ctx, userID, notify.IdentityRejected, log)
		}

	default:
		if _, err := s.store.UpdateVerificationStatus(ctx, ev.SessionID, domain.StatusPending, nil); err != nil {
			return err
		}
	}

	return s.stampIntent(ctx, userID, ev)
}

// ownerOf resolves the profile behind a session: event metadata first, then our own records.
func (s *Service) ownerOf(ctx context.Context, ev stripe.SessionEvent) (string, error) {
	if id := ev.Metadata["user_id"]; id != "" {
		if _, err := s.store.GetProfile(ctx, id); err == nil {
			return id, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return "", err
		}
	}
	v, err := s.store.GetVerificationBySession(ctx, ev.SessionID)
	if err == nil {
		return v.UserID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	p, err := s.store.GetProfileByVerificationSession(ctx, ev.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrUnknownSession
	}
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// stampIntent copies the stored verification status onto the intent's tracking fields. The stored
// status is used rather than the event's so a late pending event cannot mask a verified session.
func (s *Service) stampIntent(ctx context.Context, userID string, ev stripe.SessionEvent) error {
	rec, err := s.store.GetVerificationBySession(ctx, ev.SessionID)
	if err != nil {
		return err
	}

	intentID := ev.Metadata["membership_intent_id"]
	if intentID == "" {
		in, err := s.store.LatestIntent(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		intentID = in.ID
	} else {
		in, err := s.store.GetIntent(ctx, intentID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && in.UserID != userID) {
			s.log.Warn("identity event names an unknown intent", zap.String("intent_id", intentID), zap.String("session_id", ev.SessionID))
			return nil
		}
		if err != nil {
			return err
		}
	}
	return s.store.StampIntentVerification(ctx, intentID, ev.SessionID, rec.Status)
}

func (s *Service) notifyUser(ctx context.Context, userID string, build func(to, name string) notify.Message, log *zap.Logger) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		log.Error("load profile for email", zap.Error(err))
		return
	}
	if err := s.mailer.Send(ctx, build(p.Email, p.FullName)); err != nil {
		log.Error("identity email failed", zap.Error(err))
	}
}

func lastError(ev stripe.SessionEvent) string {
	switch {
	case ev.LastErrorReason != "":
		return ev.LastErrorReason
	case ev.LastErrorCode != "":
		return ev.LastErrorCode
	}
	return ev.Status
}
