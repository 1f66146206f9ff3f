package gateway

import (
	"fmt"
	"strings"
)

// Mode selects which channel sections a send emits.
type Mode string

const (
	ModeSMS    Mode = "sms"
	ModeViber  Mode = "viber"
	ModeHybrid Mode = "hybrid"
)

// ParseMode converts a string into a Mode. Only the exact lowercase names
// are accepted.
func ParseMode(value string) (Mode, error) {
	m := Mode(value)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, value)
	}
	return m, nil
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeSMS, ModeViber, ModeHybrid:
		return true
	default:
		return false
	}
}

func (m Mode) includesSMS() bool   { return m == ModeSMS || m == ModeHybrid }
func (m Mode) includesViber() bool { return m == ModeViber || m == ModeHybrid }

// ConnectionType selects the transport strategy used by a Client.
type ConnectionType string

const (
	// ConnectionPrimary is the pooled transport that always POSTs.
	ConnectionPrimary ConnectionType = "primary"
	// ConnectionFallback is the connection-per-call transport.
	ConnectionFallback ConnectionType = "fallback"
)

// ParseConnectionType accepts primary/fallback and the legacy names curl and
// stream.
func ParseConnectionType(value string) (ConnectionType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "primary", "curl", "native":
		return ConnectionPrimary, nil
	case "fallback", "stream":
		return ConnectionFallback, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidConnectionType, value)
	}
}
