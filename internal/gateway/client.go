// Package gateway is a client for the turbosms.ua HTTP API. It builds request
// payloads, delivers them through a pluggable transport and unwraps the
// gateway's response envelope.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ajayykmr/turbosms-go/internal/transport"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.turbosms.ua"

// Gateway method paths, relative to the base URL.
const (
	MethodSend        = "message/send.json"
	MethodBalance     = "user/balance.json"
	MethodFileAdd     = "file/add.json"
	MethodFileDetails = "file/details.json"
)

// Option configures a Client.
type Option func(*clientSettings)

type clientSettings struct {
	baseURL       string
	connection    ConnectionType
	transport     transport.Transport
	transportOpts []transport.Option
	logger        zerolog.Logger
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(s *clientSettings) {
		if v := strings.TrimSpace(baseURL); v != "" {
			s.baseURL = strings.TrimRight(v, "/")
		}
	}
}

// WithConnectionType selects the transport strategy. It is ignored when
// WithTransport supplies a transport directly.
func WithConnectionType(ct ConnectionType) Option {
	return func(s *clientSettings) {
		s.connection = ct
	}
}

// WithTransport injects a ready transport, bypassing connection selection.
func WithTransport(t transport.Transport) Option {
	return func(s *clientSettings) {
		if t != nil {
			s.transport = t
		}
	}
}

// WithTransportOptions forwards options to the transport built by the client.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(s *clientSettings) {
		s.transportOpts = append(s.transportOpts, opts...)
	}
}

// WithInsecureSkipVerify turns off TLS certificate verification for the
// transport built by the client. Verification is on unless this is set.
func WithInsecureSkipVerify(skip bool) Option {
	return WithTransportOptions(transport.WithInsecureSkipVerify(skip))
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *clientSettings) {
		s.logger = logger
	}
}

var transportBuilders = map[ConnectionType]func(zerolog.Logger, ...transport.Option) transport.Transport{
	ConnectionPrimary: func(l zerolog.Logger, o ...transport.Option) transport.Transport {
		return transport.NewNative(l, o...)
	},
	ConnectionFallback: func(l zerolog.Logger, o ...transport.Option) transport.Transport {
		return transport.NewStream(l, o...)
	},
}

// Client talks to the gateway. It holds no per-message state and is safe for
// concurrent use; message settings travel with each call as Options.
type Client struct {
	apiKey     string
	baseURL    string
	connection ConnectionType
	transport  transport.Transport
	logger     zerolog.Logger
}

// NewClient validates the credential and wires the transport.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrEmptyCredential
	}

	s := &clientSettings{
		baseURL:    DefaultBaseURL,
		connection: ConnectionPrimary,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if reflect.ValueOf(s.logger).IsZero() {
		s.logger = zerolog.Nop()
	}

	t := s.transport
	if t == nil {
		build, ok := transportBuilders[s.connection]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidConnectionType, string(s.connection))
		}
		t = build(s.logger, s.transportOpts...)
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    s.baseURL,
		connection: s.connection,
		transport:  t,
		logger:     s.logger.With().Str("component", "turbosms_client").Logger(),
	}, nil
}

// ConnectionType reports the configured strategy.
func (c *Client) ConnectionType() ConnectionType {
	return c.connection
}

// Send delivers text to recipients using the mode and extras in opts and
// returns the raw response_result.
func (c *Client) Send(ctx context.Context, opts Options, recipients []string, text, sender, viberSender string) (json.RawMessage, error) {
	payload, err := BuildSendPayload(opts, recipients, text, sender, viberSender)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, MethodSend, payload)
}

// SendReceipts is Send with the result decoded per recipient.
func (c *Client) SendReceipts(ctx context.Context, opts Options, recipients []string, text, sender, viberSender string) ([]SendReceipt, error) {
	raw, err := c.Send(ctx, opts, recipients, text, sender, viberSender)
	if err != nil {
		return nil, err
	}
	return DecodeResult[[]SendReceipt](raw)
}

// Balance returns the raw account balance result.
func (c *Client) Balance(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, MethodBalance, nil)
}

// UploadFile registers a file for later Viber sends. file is sent as
// embedded data when it is canonical base64 and as a URL otherwise.
func (c *Client) UploadFile(ctx context.Context, file string) (json.RawMessage, error) {
	if strings.TrimSpace(file) == "" {
		return nil, fmt.Errorf("%w: file", ErrEmptyField)
	}
	return c.call(ctx, MethodFileAdd, BuildFilePayload(file))
}

// FileDetails fetches metadata for an uploaded file.
func (c *Client) FileDetails(ctx context.Context, id int) (json.RawMessage, error) {
	return c.call(ctx, MethodFileDetails, map[string]int{"id": id})
}

func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: encode payload: %w", ErrValidation, method, err)
		}
		body = encoded
	}

	headers := http.Header{}
	headers.Set("Authorization", "Basic "+c.apiKey)
	headers.Set("Content-Type", "application/json")

	requestID := uuid.NewString()
	log := c.logger.With().
		Str("request_id", requestID).
		Str("method", method).
		Str("connection", string(c.connection)).
		Logger()

	start := time.Now()
	resp, err := c.transport.Deliver(ctx, &transport.Request{
		URL:     c.baseURL + "/" + method,
		Headers: headers,
		Body:    body,
	})
	duration := time.Since(start)
	if err == nil && resp == nil {
		err = fmt.Errorf("%w: %s: no response", ErrTransport, method)
	}
	if err != nil {
		if !errors.Is(err, ErrTransport) {
			err = fmt.Errorf("%w: %s: %w", ErrTransport, method, err)
		}
		log.Warn().Err(err).Dur("duration", duration).Msg("gateway call failed")
		return nil, err
	}

	env, err := decodeEnvelope(method, resp.StatusCode, resp.Body)
	if err != nil {
		log.Warn().Err(err).Int("http_status", resp.StatusCode).Dur("duration", duration).Msg("gateway answered with an unreadable body")
		return nil, err
	}

	if env.Code != 0 {
		log.Info().
			Int("response_code", env.Code).
			Str("response_status", env.Status).
			Dur("duration", duration).
			Msg("gateway rejected request")
		return nil, &GatewayError{Method: method, Code: env.Code, Status: env.Status}
	}

	log.Debug().
		Int("response_code", env.Code).
		Int("http_status", resp.StatusCode).
		Dur("duration", duration).
		Msg("gateway call succeeded")
	return env.Result, nil
}
