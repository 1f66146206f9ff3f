package gateway

import (
	"errors"
	"fmt"

	"github.com/ajayykmr/turbosms-go/internal/transport"
)

// Error classes. Every error returned by this package matches exactly one of
// them with errors.Is, or is a *GatewayError.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrTransport     = transport.ErrTransport
)

// Configuration errors, raised while constructing or configuring.
var (
	ErrEmptyCredential       = fmt.Errorf("%w: api key is empty", ErrConfiguration)
	ErrInvalidMode           = fmt.Errorf("%w: unknown send mode", ErrConfiguration)
	ErrInvalidConnectionType = fmt.Errorf("%w: unknown connection type", ErrConfiguration)
)

// Validation errors, raised by option setters and payload assembly before any
// network call.
var (
	ErrPastDate   = fmt.Errorf("%w: start time is not in the future", ErrValidation)
	ErrDateRange  = fmt.Errorf("%w: start time is more than %d days ahead", ErrValidation, MaxScheduleDays)
	ErrOutOfRange = fmt.Errorf("%w: value out of range", ErrValidation)
	ErrEmptyField = fmt.Errorf("%w: required field is empty", ErrValidation)
)

// GatewayError is returned when the gateway answers with a well-formed
// envelope carrying a nonzero response code. Error returns the gateway's
// status text unchanged.
type GatewayError struct {
	Method string
	Code   int
	Status string
}

func (e *GatewayError) Error() string {
	return e.Status
}
