package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

var _ Transport = (*Native)(nil)

// Native is the primary transport: a pooled net/http client that always
// issues POST, sending an empty body when the request has none.
type Native struct {
	logger       zerolog.Logger
	httpClient   HTTPClient
	maxBodyBytes int64
}

// NewNative constructs the pooled transport.
func NewNative(logger zerolog.Logger, opts ...Option) *Native {
	s := newSettings(opts)

	client := s.httpClient
	if client == nil {
		client = &http.Client{
			Timeout: s.timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				TLSClientConfig:     s.tlsConfig(),
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}

	return &Native{
		logger:       nopIfZero(logger),
		httpClient:   client,
		maxBodyBytes: s.maxBodyBytes,
	}
}

// Deliver posts the request body to req.URL.
func (n *Native) Deliver(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("native transport: request is required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: new request: %w", ErrTransport, err)
	}
	applyHeaders(httpReq, req.Headers)

	n.logger.Debug().
		Str("method", http.MethodPost).
		Str("url", req.URL).
		Int("body_bytes", len(req.Body)).
		Msg("native transport: delivering request")

	return do(n.httpClient, httpReq, n.maxBodyBytes)
}
