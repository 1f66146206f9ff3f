package util

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPhone is returned when a phone number yields no usable digits, or,
// in strict mode, when the digits do not match a known national format.
var ErrInvalidPhone = errors.New("invalid phone number")

const (
	// NationalPhoneLength is the digit count of a full number including the
	// country code, e.g. 380991234567.
	NationalPhoneLength = 12
	// LocalPhoneLength is the digit count of a number written from the trunk
	// prefix, e.g. 0991234567.
	LocalPhoneLength = 10
	// CountryCode is prepended to local numbers.
	CountryCode = "38"
)

// NormalizePhone converts a raw phone string into the digit format expected
// by the gateway.
//
// Every non-digit is removed and everything before the first '0' is dropped,
// so "+38 (099) 123-45-67" and "38 099 1234567" both reduce to "0991234567".
// A 10 digit result gets the country code prepended, a 12 digit result is
// returned as is. Any other length is returned unchanged without further
// checks; use NormalizePhoneStrict to reject those. The boolean is false when
// no digits remain.
func NormalizePhone(raw string) (string, bool) {
	digits := trimToTrunk(digitsOnly(raw))
	if digits == "" {
		return "", false
	}

	switch len(digits) {
	case LocalPhoneLength:
		return CountryCode + digits, true
	default:
		return digits, true
	}
}

// NormalizePhoneStrict behaves like NormalizePhone but fails for numbers whose
// length matches neither known format.
func NormalizePhoneStrict(raw string) (string, error) {
	digits := trimToTrunk(digitsOnly(raw))
	switch len(digits) {
	case 0:
		return "", fmt.Errorf("%w: no digits in %q", ErrInvalidPhone, raw)
	case LocalPhoneLength:
		return CountryCode + digits, nil
	case NationalPhoneLength:
		return digits, nil
	default:
		return "", fmt.Errorf("%w: unexpected length %d in %q", ErrInvalidPhone, len(digits), raw)
	}
}

// NormalizePhones normalizes each number, preserving order.
func NormalizePhones(values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	result := make([]string, 0, len(values))
	for idx, value := range values {
		normalized, ok := NormalizePhone(value)
		if !ok {
			return nil, fmt.Errorf("phone[%d]: %w: no digits in %q", idx, ErrInvalidPhone, value)
		}
		result = append(result, normalized)
	}
	return result, nil
}

func digitsOnly(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// trimToTrunk drops everything before the first '0'. Numbers without a '0'
// are returned whole.
func trimToTrunk(digits string) string {
	if idx := strings.IndexByte(digits, '0'); idx > 0 {
		return digits[idx:]
	}
	return digits
}
