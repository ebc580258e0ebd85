package leads

import "errors"

var (
	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("leads: lead not found")

	// ErrAlreadyConverted is returned when converting a lead that already has an account
	ErrAlreadyConverted = errors.New("leads: lead already converted")

	// ErrInvalidSegment is returned for an unknown segment filter
	ErrInvalidSegment = errors.New("leads: unknown segment")
)
