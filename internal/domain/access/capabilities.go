package access

import "semzo-prive/internal/domain/membership"

func CapabilitiesFor(state AccessState, t membership.Type) []string {
	switch state {
	case AccessLimited, AccessPendingVerification:
		return []string{CapWishlist}
	case AccessFull:
		caps := []string{CapWishlist, CapReserve}
		if t.Rank() >= membership.TypeEssentiel.Rank() {
			caps = append(caps, CapSwap)
		}
		if t == membership.TypePrive {
			caps = append(caps, CapConcierge)
		}
		return caps
	default:
		return []string{}
	}
}
