package domain

import (
	"errors"
	"fmt"
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

// CapacityError means the ride cannot hold the requested seats.
// No side effects have occurred; retrying with fewer seats is safe.
type CapacityError struct {
	RideID    int64
	Requested int
	Available int
}

func (e CapacityError) Error() string {
	return fmt.Sprintf("ride %d: %d seats requested, %d available", e.RideID, e.Requested, e.Available)
}

// PaymentDeclinedError is terminal for the attempt: the booking is
// released and the caller must resubmit with different funding.
type PaymentDeclinedError struct {
	BookingID int64
	Reason    string
}

func (e PaymentDeclinedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("payment declined: %s", e.Reason)
	}
	return "payment declined"
}

// PayoutFailedError reports a driver payout failure. Refunded says
// whether the passenger's charge was reversed; when false the payment
// is flagged for manual reconciliation.
type PayoutFailedError struct {
	BookingID int64
	Refunded  bool
	Err       error
}

func (e PayoutFailedError) Error() string {
	if e.Refunded {
		return "payout failed, passenger refunded"
	}
	return "payout failed, refund pending manual reconciliation"
}

func (e PayoutFailedError) Unwrap() error { return e.Err }

// TransientGatewayError marks an outcome-unknown gateway failure,
// safe to retry with the same idempotency key.
type TransientGatewayError struct {
	Op  string
	Err error
}

func (e TransientGatewayError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("gateway %s: transient failure", e.Op)
	}
	return "gateway transient failure"
}

func (e TransientGatewayError) Unwrap() error { return e.Err }

// InvalidTokenError signals a reservation token used after it was
// spent (double release, release after confirm). This is a programming
// invariant violation and is never swallowed.
type InvalidTokenError struct {
	Token string
	Msg   string
}

func (e InvalidTokenError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("reservation token %s: %s", e.Token, e.Msg)
	}
	return fmt.Sprintf("reservation token %s invalid", e.Token)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsCapacity(err error) bool {
	var target CapacityError
	return errors.As(err, &target)
}

func IsPaymentDeclined(err error) bool {
	var target PaymentDeclinedError
	return errors.As(err, &target)
}

func IsPayoutFailed(err error) bool {
	var target PayoutFailedError
	return errors.As(err, &target)
}

func IsTransientGateway(err error) bool {
	var target TransientGatewayError
	return errors.As(err, &target)
}

func IsInvalidToken(err error) bool {
	var target InvalidTokenError
	return errors.As(err, &target)
}
