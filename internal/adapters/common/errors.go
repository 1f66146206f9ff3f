package common

import (
	"errors"
	"fmt"

	"github.com/ajayykmr/turbosms-go/internal/gateway"
)

// ErrTransient and ErrPermanent are sentinel errors adapters use when
// classifying gateway failures.
var (
	ErrTransient = errors.New("transient error")
	ErrPermanent = errors.New("permanent error")
)

// WrapTransient annotates an error so callers can detect transient failures.
func WrapTransient(err error) error {
	if err == nil {
		return ErrTransient
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// WrapPermanent annotates an error as permanent.
func WrapPermanent(err error) error {
	if err == nil {
		return ErrPermanent
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Classify maps a gateway client error onto the transient/permanent split.
// Transport failures are transient; gateway rejections, validation and
// configuration errors are permanent. Already classified errors pass through.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTransient), errors.Is(err, ErrPermanent):
		return err
	case errors.Is(err, gateway.ErrTransport):
		return WrapTransient(err)
	default:
		return WrapPermanent(err)
	}
}
