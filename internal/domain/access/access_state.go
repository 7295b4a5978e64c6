package access

import (
	"semzo-prive/internal/domain/membership"
	"semzo-prive/internal/domain/users"
)

// Effective access for UI/product: locked|pending_verification|limited|full
func ComputeEffectiveAccessState(p users.Profile, in *membership.Intent) AccessState {
	if in == nil {
		return AccessLocked
	}

	switch in.Status {
	case membership.StatusActive:
		return AccessFull
	case membership.StatusLimitedAccess:
		return AccessLimited
	case membership.StatusPaidPendingVerification:
		// Paid and verified but not reconciled yet: still pending until the
		// single writer flips the intent.
		return AccessPendingVerification
	default:
		return AccessLocked
	}
}

var statusWeight = map[membership.Status]int{
	membership.StatusActive:                  4,
	membership.StatusLimitedAccess:           3,
	membership.StatusPaidPendingVerification: 2,
	membership.StatusPending:                 1,
}

// GoverningIntent picks the intent that decides access: the most advanced status wins, ties go to
// the first in the slice (callers pass newest first).
func GoverningIntent(intents []membership.Intent) *membership.Intent {
	var best *membership.Intent
	for i := range intents {
		if best == nil || statusWeight[intents[i].Status] > statusWeight[best.Status] {
			best = &intents[i]
		}
	}
	return best
}
