package stripe

import (
	"encoding/json"
	"errors"
	"fmt"

	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
)

var ErrInvalidSignature = errors.New("stripe webhook signature verification failed")

// Event is the verified envelope of a webhook delivery.
type Event struct {
	ID   string
	Type string
	Raw  json.RawMessage
}

// ParseEvent verifies the Stripe-Signature header against secret before anything is decoded.
func ParseEvent(payload []byte, signatureHeader, secret string) (Event, error) {
	if signatureHeader == "" || secret == "" {
		return Event{}, ErrInvalidSignature
	}
	ev, err := webhook.ConstructEventWithOptions(
		payload,
		signatureHeader,
		secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return eventFrom(ev), nil
}

func eventFrom(ev stripego.Event) Event {
	var raw json.RawMessage
	if ev.Data != nil {
		raw = ev.Data.Raw
	}
	return Event{ID: ev.ID, Type: string(ev.Type), Raw: raw}
}

// SessionEvent is the subset of an identity.verification_session object the handler needs.
type SessionEvent struct {
	SessionID       string
	Status          string
	LastErrorCode   string
	LastErrorReason string
	Metadata        map[string]string
}

func (s SessionEvent) HasLastError() bool {
	return s.LastErrorCode != "" || s.LastErrorReason != ""
}

// Outcome classifies the session as pending|verified|rejected.
func (s SessionEvent) Outcome() string {
	return ClassifyVerificationStatus(s.Status, s.HasLastError())
}

func DecodeVerificationSession(raw json.RawMessage) (SessionEvent, error) {
	var vs stripego.IdentityVerificationSession
	if err := json.Unmarshal(raw, &vs); err != nil {
		return SessionEvent{}, fmt.Errorf("decode verification session: %w", err)
	}
	if vs.ID == "" {
		return SessionEvent{}, errors.New("verification session missing id")
	}
	ev := SessionEvent{SessionID: vs.ID, Status: string(vs.Status), Metadata: vs.Metadata}
	if vs.LastError != nil {
		ev.LastErrorCode = string(vs.LastError.Code)
		ev.LastErrorReason = vs.LastError.Reason
	}
	return ev, nil
}

// PaymentEvent is the subset of a payment_intent object the handler needs.
type PaymentEvent struct {
	PaymentIntentID string
	AmountCents     int64
	Currency        string
	Metadata        map[string]string
	FailureCode     string
	FailureMessage  string
}

func DecodePaymentIntent(raw json.RawMessage) (PaymentEvent, error) {
	var pi stripego.PaymentIntent
	if err := json.Unmarshal(raw, &pi); err != nil {
		return PaymentEvent{}, fmt.Errorf("decode payment intent: %w", err)
	}
	if pi.ID == "" {
		return PaymentEvent{}, errors.New("payment intent missing id")
	}
	ev := PaymentEvent{
		PaymentIntentID: pi.ID,
		AmountCents:     pi.Amount,
		Currency:        string(pi.Currency),
		Metadata:        pi.Metadata,
	}
	if pi.LastPaymentError != nil {
		ev.FailureCode = string(pi.LastPaymentError.Code)
		ev.FailureMessage = pi.LastPaymentError.Msg
	}
	return ev, nil
}
