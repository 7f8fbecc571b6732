package service

import (
	"errors"
	"fmt"
)

// ValidationError is a local rejection of a submission attempt. The cart and
// the store are untouched; the customer fixes the input and retries.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}

// Validation reasons
const (
	ReasonEmptyCart     = "empty_cart"
	ReasonMissingFields = "missing_fields"
	ReasonMissingName   = "missing_name"
)

// TransitionError is a rejected order status transition.
type TransitionError struct {
	OrderID string
	From    string
	To      string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s not allowed for order %s", e.From, e.To, e.OrderID)
}

// ErrOrderNotFound is returned when a transition targets an unknown order.
var ErrOrderNotFound = errors.New("order not found")

// ErrProductNotFound is returned when a catalog edit targets an unknown
// product.
var ErrProductNotFound = errors.New("product not found")

// ErrDuplicateSubmission is returned when an idempotency key was already
// claimed by an earlier submission.
var ErrDuplicateSubmission = errors.New("duplicate submission")
