package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

var _ Transport = (*Stream)(nil)

// Stream is the fallback transport. It opens a fresh connection per call and
// streams the body through a pipe. Requests without a body are sent as GET,
// all others as POST.
type Stream struct {
	logger       zerolog.Logger
	httpClient   HTTPClient
	maxBodyBytes int64
}

// NewStream constructs the connection-per-call transport.
func NewStream(logger zerolog.Logger, opts ...Option) *Stream {
	s := newSettings(opts)

	client := s.httpClient
	if client == nil {
		client = &http.Client{
			Timeout: s.timeout,
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				TLSClientConfig:   s.tlsConfig(),
				DisableKeepAlives: true,
			},
		}
	}

	return &Stream{
		logger:       nopIfZero(logger),
		httpClient:   client,
		maxBodyBytes: s.maxBodyBytes,
	}
}

// Deliver sends the request, choosing GET or POST by body presence.
func (s *Stream) Deliver(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("stream transport: request is required")
	}

	method := http.MethodGet
	var body io.ReadCloser
	if len(req.Body) > 0 {
		method = http.MethodPost
		pr, pw := io.Pipe()
		go func() {
			_, err := io.Copy(pw, bytes.NewReader(req.Body))
			pw.CloseWithError(err)
		}()
		body = pr
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		if body != nil {
			body.Close()
		}
		return nil, fmt.Errorf("%w: new request: %w", ErrTransport, err)
	}
	if body != nil {
		httpReq.ContentLength = int64(len(req.Body))
	}
	applyHeaders(httpReq, req.Headers)

	s.logger.Debug().
		Str("method", method).
		Str("url", req.URL).
		Int("body_bytes", len(req.Body)).
		Msg("stream transport: delivering request")

	return do(s.httpClient, httpReq, s.maxBodyBytes)
}
