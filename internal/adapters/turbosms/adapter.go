// Package turbosms adapts validated dispatch requests onto the gateway client.
package turbosms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	common "github.com/ajayykmr/turbosms-go/internal/adapters/common"
	"github.com/ajayykmr/turbosms-go/internal/gateway"
	"github.com/ajayykmr/turbosms-go/internal/models"
	"github.com/ajayykmr/turbosms-go/internal/worker"
)

// Sender is the subset of gateway.Client used by the adapter.
type Sender interface {
	SendReceipts(ctx context.Context, opts gateway.Options, recipients []string, text, sender, viberSender string) ([]gateway.SendReceipt, error)
}

var _ Sender = (*gateway.Client)(nil)

// Option modifies adapter behaviour.
type Option func(*Adapter)

// WithRawBodyLimit overrides how much of the gateway result to keep in responses.
func WithRawBodyLimit(limit int) Option {
	return func(a *Adapter) {
		if limit > 0 {
			a.maxRawChars = limit
		}
	}
}

// WithDefaultSender sets the sender used when a request carries none.
func WithDefaultSender(sender string) Option {
	return func(a *Adapter) {
		if s := strings.TrimSpace(sender); s != "" {
			a.defaultSender = s
		}
	}
}

// WithClock overrides the clock used to validate scheduled start times.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// Adapter implements worker.Adapter on top of the gateway client.
type Adapter struct {
	logger        zerolog.Logger
	client        Sender
	defaultSender string
	maxRawChars   int
	now           func() time.Time
}

// NewAdapter constructs an adapter using the supplied gateway client.
func NewAdapter(client Sender, logger zerolog.Logger, opts ...Option) (*Adapter, error) {
	if client == nil {
		return nil, errors.New("turbosms adapter: gateway client dependency is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	a := &Adapter{
		logger:        logger,
		client:        client,
		defaultSender: gateway.DefaultSender,
		maxRawChars:   common.DefaultRawBodyLimit,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Send converts the validated request into gateway options and submits it.
// Returned errors are classified as transient or permanent.
func (a *Adapter) Send(ctx context.Context, msg *worker.ValidatedMessage) (*models.ProviderResponse, error) {
	if msg == nil || msg.Request == nil {
		return nil, common.WrapPermanent(errors.New("turbosms adapter: message request is nil"))
	}

	req, ok := msg.Request.(*models.DispatchRequest)
	if !ok {
		return nil, common.WrapPermanent(fmt.Errorf("turbosms adapter: expected *models.DispatchRequest, got %T", msg.Request))
	}

	opts, err := OptionsFor(req, a.now)
	if err != nil {
		return a.buildErrorResponse(err), common.Classify(err)
	}

	sender := strings.TrimSpace(req.Sender)
	if sender == "" {
		sender = a.defaultSender
	}

	receipts, err := a.client.SendReceipts(ctx, opts, req.Recipients, req.Text, sender, req.ViberSender)
	if err != nil {
		resp := a.buildErrorResponse(err)
		a.logger.Warn().
			Str("message_id", req.MessageID).
			Str("mode", string(opts.Mode())).
			Str("provider_status", resp.Status).
			Err(err).
			Msg("turbosms adapter send failed")
		return resp, common.Classify(err)
	}

	if err := allRejected(receipts); err != nil {
		resp := a.buildErrorResponse(err)
		resp.Raw = a.truncateRaw(receipts)
		a.logger.Warn().
			Str("message_id", req.MessageID).
			Int("receipts", len(receipts)).
			Err(err).
			Msg("turbosms adapter send rejected for every recipient")
		return resp, common.Classify(err)
	}

	resp := a.buildSuccessResponse(receipts)
	a.logger.Debug().
		Str("message_id", req.MessageID).
		Str("mode", string(opts.Mode())).
		Int("receipts", len(receipts)).
		Msg("turbosms adapter send succeeded")
	return resp, nil
}

// OptionsFor builds the gateway options described by a dispatch request.
func OptionsFor(req *models.DispatchRequest, now func() time.Time) (gateway.Options, error) {
	b := gateway.NewOptions().WithClock(now)
	if req.Mode != "" {
		mode, err := gateway.ParseMode(req.Mode)
		if err != nil {
			return gateway.Options{}, err
		}
		b.Mode(mode)
	}
	if req.StartTime != nil {
		b.StartTime(*req.StartTime)
	}

	o := req.Options
	if o.IsFlash != nil {
		b.IsFlash(*o.IsFlash)
	}
	if o.TTL != nil {
		b.TTL(*o.TTL)
	}
	if o.ImageURL != nil {
		b.Image(*o.ImageURL)
	}
	if o.Caption != nil {
		b.Caption(*o.Caption)
	}
	if o.Action != nil {
		b.Action(*o.Action)
	}
	if o.FileID != nil {
		b.FileID(*o.FileID)
	}
	if o.CountClicks != nil {
		b.CountClicks(*o.CountClicks)
	}
	if o.IsTransactional != nil {
		b.Transactional(*o.IsTransactional)
	}
	return b.Build()
}

// allRejected returns a gateway error when receipts is non-empty and no
// recipient was accepted. The first receipt supplies code and status.
func allRejected(receipts []gateway.SendReceipt) error {
	if len(receipts) == 0 {
		return nil
	}
	for _, r := range receipts {
		if r.ResponseCode == 0 {
			return nil
		}
	}
	first := receipts[0]
	return fmt.Errorf("all %d recipients rejected: %w", len(receipts),
		&gateway.GatewayError{Method: gateway.MethodSend, Code: first.ResponseCode, Status: first.ResponseStatus})
}

// buildSuccessResponse maps accepted phones to their gateway message id.
// Rejected phones are listed under "rejected:<phone>" as "<code> <status>"
// and turn the status into "partial".
func (a *Adapter) buildSuccessResponse(receipts []gateway.SendReceipt) *models.ProviderResponse {
	status, message := "ok", "sent"
	meta := make(map[string]string, len(receipts))
	for _, r := range receipts {
		if r.Phone == "" {
			continue
		}
		if r.ResponseCode != 0 {
			meta["rejected:"+r.Phone] = fmt.Sprintf("%d %s", r.ResponseCode, r.ResponseStatus)
			status, message = "partial", "sent to some recipients"
			continue
		}
		if r.MessageID != "" {
			meta[r.Phone] = r.MessageID
		}
	}
	if len(meta) == 0 {
		meta = nil
	}

	code := 0
	return &models.ProviderResponse{
		Status:  status,
		Message: message,
		Code:    &code,
		Raw:     a.truncateRaw(receipts),
		Meta:    meta,
	}
}

func (a *Adapter) buildErrorResponse(err error) *models.ProviderResponse {
	resp := &models.ProviderResponse{
		Status:  "error",
		Message: err.Error(),
	}

	var gwErr *gateway.GatewayError
	switch {
	case errors.As(err, &gwErr):
		code := gwErr.Code
		resp.Status = "rejected"
		resp.Code = &code
		resp.Meta = map[string]string{"response_status": gwErr.Status}
	case errors.Is(err, gateway.ErrTransport):
		resp.Status = "transport_error"
	case errors.Is(err, gateway.ErrValidation), errors.Is(err, gateway.ErrConfiguration):
		resp.Status = "invalid"
	}
	return resp
}

func (a *Adapter) truncateRaw(receipts []gateway.SendReceipt) string {
	if len(receipts) == 0 {
		return ""
	}
	raw, err := json.Marshal(receipts)
	if err != nil {
		return ""
	}
	return common.TruncateRaw(string(raw), a.maxRawChars)
}
