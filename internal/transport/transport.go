// Package transport delivers serialized gateway requests over HTTP. Two
// interchangeable strategies are provided: Native, a pooled client that always
// POSTs, and Stream, a connection-per-call client that streams the body and
// falls back to GET when there is nothing to send.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"time"

	"github.com/rs/zerolog"
)

// ErrTransport marks failures of the transport itself (dial, TLS, timeout,
// read errors) as opposed to failures reported by the gateway.
var ErrTransport = errors.New("transport error")

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 1 << 20
)

// Request is a single call to the gateway. URL is the base URL joined with the
// method path.
type Request struct {
	URL     string
	Headers http.Header
	Body    []byte
}

// Response is the raw answer returned by the remote side.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport delivers a request and returns the raw response body.
type Transport interface {
	Deliver(ctx context.Context, req *Request) (*Response, error)
}

// HTTPClient abstracts the http.Client Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option customises a transport at construction time.
type Option func(*settings)

type settings struct {
	httpClient         HTTPClient
	insecureSkipVerify bool
	timeout            time.Duration
	maxBodyBytes       int64
}

// WithHTTPClient overrides the HTTP client. When set, TLS and timeout options
// are ignored because the caller owns the client configuration.
func WithHTTPClient(client HTTPClient) Option {
	return func(s *settings) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification. It exists for
// deployments that talked to the gateway without verification; leaving it off
// is strongly preferred.
func WithInsecureSkipVerify(skip bool) Option {
	return func(s *settings) {
		s.insecureSkipVerify = skip
	}
}

// WithTimeout sets the overall per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithBodyLimit adjusts how many bytes are read from a response body.
func WithBodyLimit(limit int64) Option {
	return func(s *settings) {
		if limit > 0 {
			s.maxBodyBytes = limit
		}
	}
}

func newSettings(opts []Option) *settings {
	s := &settings{
		timeout:      defaultTimeout,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *settings) tlsConfig() *tls.Config {
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: s.insecureSkipVerify, // #nosec G402 -- opt-in only, off by default.
	}
}

func nopIfZero(logger zerolog.Logger) zerolog.Logger {
	if reflect.ValueOf(logger).IsZero() {
		return zerolog.Nop()
	}
	return logger
}

func do(client HTTPClient, req *http.Request, limit int64) (*Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http do: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp.Body, limit)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func readBody(rc io.ReadCloser, limit int64) ([]byte, error) {
	if rc == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}

	data, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}
	return data, nil
}

func applyHeaders(req *http.Request, headers http.Header) {
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
}
