package models

import "time"

// Status event constants.
const (
	StatusEventQueued  = "queued"
	StatusEventAttempt = "attempt"
	StatusEventSent    = "sent"
	StatusEventFailed  = "failed"
)

// ProviderResponse captures the normalized gateway answer attached to events.
type ProviderResponse struct {
	Status  string            `json:"status"`
	Code    *int              `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Raw     string            `json:"raw,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// StatusEvent represents lifecycle events emitted for dispatched messages.
type StatusEvent struct {
	MessageID        string            `json:"message_id"`
	Channel          string            `json:"channel"`
	EventType        string            `json:"event_type"`
	Attempt          int               `json:"attempt,omitempty"`
	ProviderResponse *ProviderResponse `json:"provider_response,omitempty"`
	Error            string            `json:"error,omitempty"`
	TraceID          string            `json:"trace_id,omitempty"`
	DurationMs       int64             `json:"duration_ms,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}
