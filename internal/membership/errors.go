package membership

import "errors"

var (
	ErrIntentNotFound = errors.New("membership intent not found")
	// ErrIntentConflict means the user already has a paid intent in flight.
	ErrIntentConflict = errors.New("membership intent already paid")
)

// ContractError is a malformed request rejected before any side effect.
type ContractError struct {
	Message string
	Reason  string
}

func (e *ContractError) Error() string {
	return "Contract violation: " + e.Message
}

func violation(message, reason string) *ContractError {
	return &ContractError{Message: message, Reason: reason}
}
