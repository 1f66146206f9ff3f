package gateway

import (
	"encoding/json"
	"fmt"
)

// Envelope is the shape of every gateway answer.
type Envelope struct {
	Code   int             `json:"response_code"`
	Status string          `json:"response_status"`
	Result json.RawMessage `json:"response_result"`
}

// SendReceipt is one entry of the send.json result, one per recipient.
type SendReceipt struct {
	Phone          string `json:"phone"`
	ResponseCode   int    `json:"response_code"`
	MessageID      string `json:"message_id"`
	ResponseStatus string `json:"response_status"`
}

// Balance is the balance.json result.
type Balance struct {
	Balance float64 `json:"balance"`
}

// FileInfo is the add.json and details.json result. Fields the gateway does
// not send are left zero.
type FileInfo struct {
	ID       int    `json:"id"`
	Status   string `json:"status,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Type     string `json:"type,omitempty"`
	Created  string `json:"created,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// DecodeResult unmarshals a raw response_result into T.
func DecodeResult[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, fmt.Errorf("%w: empty response_result", ErrTransport)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: decode response_result: %w", ErrTransport, err)
	}
	return out, nil
}

type wireEnvelope struct {
	Code   *int            `json:"response_code"`
	Status string          `json:"response_status"`
	Result json.RawMessage `json:"response_result"`
}

func decodeEnvelope(method string, statusCode int, body []byte) (*Envelope, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: %s: empty body (http %d)", ErrTransport, method, statusCode)
	}
	var wire wireEnvelope
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %s: decode envelope (http %d): %w body=%q", ErrTransport, method, statusCode, err, snippet(body))
	}
	if wire.Code == nil {
		return nil, fmt.Errorf("%w: %s: response_code missing (http %d) body=%q", ErrTransport, method, statusCode, snippet(body))
	}
	return &Envelope{Code: *wire.Code, Status: wire.Status, Result: wire.Result}, nil
}

func snippet(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
