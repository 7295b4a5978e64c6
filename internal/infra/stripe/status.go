package stripe

import (
	"strings"

	stripego "github.com/stripe/stripe-go/v75"
)

// Verification outcomes as stored on identity_verifications.status.
const (
	OutcomePending  = "pending"
	OutcomeVerified = "verified"
	OutcomeRejected = "rejected"
)

// ClassifyVerificationStatus maps a Stripe Identity session status onto pending|verified|rejected.
// requires_input is a failure only when Stripe attached a last_error; a fresh session also sits
// in requires_input while the user has not submitted anything yet.
func ClassifyVerificationStatus(status string, hasLastError bool) string {
	switch stripego.IdentityVerificationSessionStatus(strings.TrimSpace(status)) {
	case stripego.IdentityVerificationSessionStatusVerified:
		return OutcomeVerified
	case stripego.IdentityVerificationSessionStatusCanceled:
		return OutcomeRejected
	case stripego.IdentityVerificationSessionStatusRequiresInput:
		if hasLastError {
			return OutcomeRejected
		}
		return OutcomePending
	default:
		return OutcomePending
	}
}
