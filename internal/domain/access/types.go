package access

type AccessState string

const (
	AccessLocked              AccessState = "locked"
	AccessPendingVerification AccessState = "pending_verification"
	AccessLimited             AccessState = "limited"
	AccessFull                AccessState = "full"
)

const (
	CapWishlist  = "wishlist"
	CapReserve   = "reserve"
	CapSwap      = "swap"
	CapConcierge = "concierge"
)
