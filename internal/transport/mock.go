package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Scenario enumerates the behaviours supported by the mock transport.
type Scenario string

const (
	ScenarioSuccess        Scenario = "success"
	ScenarioGatewayError   Scenario = "gateway_error"
	ScenarioTransportError Scenario = "transport_error"
	ScenarioTimeout        Scenario = "timeout"
)

// MockOption customises the mock transport.
type MockOption func(*Mock)

// WithScenario sets the scenario used for every call.
func WithScenario(s Scenario) MockOption {
	return func(m *Mock) {
		m.scenario = s
	}
}

// WithLatency configures the artificial latency injected before responding.
func WithLatency(d time.Duration) MockOption {
	return func(m *Mock) {
		if d < 0 {
			d = 0
		}
		m.latency = d
	}
}

// WithResult fixes the response_result returned on success instead of the
// per-endpoint defaults.
func WithResult(result json.RawMessage) MockOption {
	return func(m *Mock) {
		m.result = result
	}
}

// WithGatewayStatus sets the status text returned by ScenarioGatewayError.
func WithGatewayStatus(code int, status string) MockOption {
	return func(m *Mock) {
		m.errCode = code
		m.errStatus = status
	}
}

var _ Transport = (*Mock)(nil)

// Mock is a deterministic in-memory gateway used for tests and local runs. It
// records every request it receives.
type Mock struct {
	logger    zerolog.Logger
	scenario  Scenario
	latency   time.Duration
	result    json.RawMessage
	errCode   int
	errStatus string

	mu       sync.Mutex
	requests []Request
	rnd      *rand.Rand
}

// NewMock constructs a mock transport.
func NewMock(logger zerolog.Logger, opts ...MockOption) *Mock {
	m := &Mock{
		logger:    nopIfZero(logger),
		scenario:  ScenarioSuccess,
		errCode:   103,
		errStatus: "REQUIRED_TOKEN",
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- predictable in tests.
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Requests returns a copy of the requests received so far.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Deliver answers the request according to the configured scenario.
func (m *Mock) Deliver(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("mock transport: request is required")
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
	default:
	}

	m.record(req)

	if m.latency > 0 {
		timer := time.NewTimer(m.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
		case <-timer.C:
		}
	}

	switch m.scenario {
	case ScenarioSuccess:
		result, err := m.resultFor(req)
		if err != nil {
			return nil, err
		}
		return m.envelope(0, "OK", result)
	case ScenarioGatewayError:
		return m.envelope(m.errCode, m.errStatus, nil)
	case ScenarioTransportError:
		return nil, fmt.Errorf("%w: mock connection refused", ErrTransport)
	case ScenarioTimeout:
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
	default:
		return nil, fmt.Errorf("mock transport: unknown scenario %q", m.scenario)
	}
}

func (m *Mock) record(req *Request) {
	clone := Request{URL: req.URL, Headers: req.Headers.Clone()}
	if len(req.Body) > 0 {
		clone.Body = append([]byte(nil), req.Body...)
	}
	m.mu.Lock()
	m.requests = append(m.requests, clone)
	m.mu.Unlock()
}

func (m *Mock) envelope(code int, status string, result json.RawMessage) (*Response, error) {
	body, err := json.Marshal(struct {
		Code   int             `json:"response_code"`
		Status string          `json:"response_status"`
		Result json.RawMessage `json:"response_result"`
	}{Code: code, Status: status, Result: result})
	if err != nil {
		return nil, fmt.Errorf("mock transport: marshal envelope: %w", err)
	}
	m.logger.Debug().Int("response_code", code).Str("response_status", status).Msg("mock transport: responding")
	return &Response{StatusCode: 200, Body: body}, nil
}

func (m *Mock) resultFor(req *Request) (json.RawMessage, error) {
	if m.result != nil {
		return m.result, nil
	}

	path := req.URL
	if u, err := url.Parse(req.URL); err == nil {
		path = u.Path
	}

	var v any
	switch {
	case strings.HasSuffix(path, "/message/send.json"):
		var body struct {
			Recipients []string `json:"recipients"`
		}
		if err := json.Unmarshal(req.Body, &body); err != nil {
			return nil, fmt.Errorf("%w: mock: decode send body: %w", ErrTransport, err)
		}
		entries := make([]map[string]any, 0, len(body.Recipients))
		for _, phone := range body.Recipients {
			entries = append(entries, map[string]any{
				"phone":           phone,
				"response_code":   0,
				"message_id":      uuid.NewString(),
				"response_status": "OK",
			})
		}
		v = entries
	case strings.HasSuffix(path, "/user/balance.json"):
		v = map[string]any{"balance": 100.0}
	case strings.HasSuffix(path, "/file/add.json"):
		v = map[string]any{"id": m.nextID()}
	case strings.HasSuffix(path, "/file/details.json"):
		var body struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal(req.Body, &body); err != nil {
			return nil, fmt.Errorf("%w: mock: decode details body: %w", ErrTransport, err)
		}
		v = map[string]any{"id": body.ID, "status": "uploaded"}
	default:
		v = nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mock transport: marshal result: %w", err)
	}
	return raw, nil
}

func (m *Mock) nextID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rnd.Intn(1_000_000) + 1
}
