package app

import "errors"

// ErrBusy is returned when an action is triggered while another is running.
var ErrBusy = errors.New("another request is in progress")

// ErrCheckoutTimeout is returned when the checkout page gets no answer in time.
var ErrCheckoutTimeout = errors.New("checkout timed out")

// ValidationError is a client-side check that failed before any request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrNoTool        = &ValidationError{Message: "Please select a tool first."}
	ErrImageRequired = &ValidationError{Message: "This tool requires an image file."}
	ErrNotImage      = &ValidationError{Message: "Selected file is not an image."}
)

// User-facing messages for the purchase flow.
const (
	msgVerifyFailed  = "Payment verification failed. Please contact support."
	msgPaymentFailed = "Payment failed: %s"
)
