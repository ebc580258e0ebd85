package payments

import "errors"

var (
	ErrUnknownPrice        = errors.New("payments: unknown price id")
	ErrCheckoutUnavailable = errors.New("payments: checkout provider unavailable")
	ErrMissingCustomer     = errors.New("payments: checkout session has no customer email")
)
