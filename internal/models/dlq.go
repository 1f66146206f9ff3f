package models

import (
	"encoding/json"
	"time"
)

// Failure types for DLQ records.
const (
	FailureTypePermanent  = "permanent"
	FailureTypeTransient  = "transient"
	FailureTypeValidation = "validation"
	FailureTypeUnknown    = "unknown"
)

// DLQRecord is written to the DLQ topic for every request that was not sent.
// OriginalMessage holds the consumed payload verbatim when it was valid JSON.
type DLQRecord struct {
	MessageID       string            `json:"message_id"`
	Channel         string            `json:"channel"`
	OriginalMessage json.RawMessage   `json:"original_message,omitempty"`
	Attempts        int               `json:"attempts"`
	FailureType     string            `json:"failure_type"`
	LastError       string            `json:"last_error,omitempty"`
	GatewayCode     *int              `json:"gateway_code,omitempty"`
	FirstFailedAt   time.Time         `json:"first_failed_at"`
	LastAttemptAt   time.Time         `json:"last_attempt_at"`
	TraceID         string            `json:"trace_id,omitempty"`
	Meta            map[string]string `json:"meta,omitempty"`
}
