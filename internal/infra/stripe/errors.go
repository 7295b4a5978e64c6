package stripe

import (
	"errors"
	"fmt"
	"net/http"

	stripego "github.com/stripe/stripe-go/v75"
)

// UpstreamError is a failure reported by Stripe itself, surfaced with Stripe's own code/message.
type UpstreamError struct {
	Code       string
	Message    string
	HTTPStatus int
}

func (e *UpstreamError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("stripe: %s", e.Message)
	}
	return fmt.Sprintf("stripe: %s (%s)", e.Message, e.Code)
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var se *stripego.Error
	if errors.As(err, &se) {
		code := string(se.Code)
		if code == "" {
			code = string(se.Type)
		}
		status := se.HTTPStatusCode
		if status == 0 {
			status = http.StatusBadGateway
		}
		return &UpstreamError{Code: code, Message: se.Msg, HTTPStatus: status}
	}
	return &UpstreamError{Code: "api_connection_error", Message: err.Error(), HTTPStatus: http.StatusBadGateway}
}
