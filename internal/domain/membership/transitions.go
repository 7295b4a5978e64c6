package membership

// transitions is the only source of allowed status moves. active is terminal.
var transitions = map[Status][]Status{
	StatusPending:                 {StatusPaidPendingVerification},
	StatusPaidPendingVerification: {StatusActive, StatusLimitedAccess},
	StatusLimitedAccess:           {StatusActive},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SourcesOf lists every status that may move into to.
func SourcesOf(to Status) []Status {
	var out []Status
	for _, from := range []Status{StatusPending, StatusPaidPendingVerification, StatusActive, StatusLimitedAccess} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// Open reports whether an intent still drives a checkout or awaits verification.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusPaidPendingVerification
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}
