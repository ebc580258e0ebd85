package appointments

import "errors"

var (
	ErrNotFound          = errors.New("appointments: request not found")
	ErrInvalidStatus     = errors.New("appointments: unknown status")
	ErrInvalidTransition = errors.New("appointments: status transition not allowed")
)
