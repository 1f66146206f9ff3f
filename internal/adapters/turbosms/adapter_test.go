package turbosms_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	common "github.com/ajayykmr/turbosms-go/internal/adapters/common"
	"github.com/ajayykmr/turbosms-go/internal/adapters/turbosms"
	"github.com/ajayykmr/turbosms-go/internal/gateway"
	"github.com/ajayykmr/turbosms-go/internal/models"
	"github.com/ajayykmr/turbosms-go/internal/transport"
	"github.com/ajayykmr/turbosms-go/internal/worker"
)

var fixedNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type senderStub struct {
	opts        gateway.Options
	recipients  []string
	sender      string
	viberSender string
	receipts    []gateway.SendReceipt
	err         error
}

func (s *senderStub) SendReceipts(_ context.Context, opts gateway.Options, recipients []string, _ string, sender, viberSender string) ([]gateway.SendReceipt, error) {
	s.opts = opts
	s.recipients = recipients
	s.sender = sender
	s.viberSender = viberSender
	return s.receipts, s.err
}

func newAdapter(t *testing.T, s turbosms.Sender, opts ...turbosms.Option) *turbosms.Adapter {
	t.Helper()
	opts = append(opts, turbosms.WithClock(func() time.Time { return fixedNow }))
	a, err := turbosms.NewAdapter(s, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("NewAdapter() error: %v", err)
	}
	return a
}

func message(req *models.DispatchRequest) *worker.ValidatedMessage {
	return &worker.ValidatedMessage{Channel: models.ChannelTurboSMS, MessageID: req.MessageID, Request: req}
}

func TestAdapterSendSuccess(t *testing.T) {
	stub := &senderStub{receipts: []gateway.SendReceipt{{Phone: "380991234567", MessageID: "gw-1"}}}
	a := newAdapter(t, stub, turbosms.WithDefaultSender("Shop"))

	ttl := 600
	at := fixedNow.Add(time.Hour)
	req := &models.DispatchRequest{
		MessageID:  "m-1",
		Mode:       "viber",
		Recipients: []string{"380991234567"},
		Text:       "hello",
		StartTime:  &at,
		Options:    models.DispatchOptions{TTL: &ttl},
	}

	resp, err := a.Send(context.Background(), message(req))
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if resp.Status != "ok" || resp.Meta["380991234567"] != "gw-1" || resp.Raw == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if stub.sender != "Shop" {
		t.Fatalf("expected default sender, got %q", stub.sender)
	}
	if stub.opts.Mode() != gateway.ModeViber {
		t.Fatalf("expected viber mode, got %q", stub.opts.Mode())
	}
	if st, ok := stub.opts.StartTime(); !ok || st != "2024-03-10 13:00:00" {
		t.Fatalf("unexpected start time %q", st)
	}
}

func TestAdapterClassifiesGatewayRejection(t *testing.T) {
	stub := &senderStub{err: &gateway.GatewayError{Method: gateway.MethodSend, Code: 301, Status: "NOT_ENOUGH_MONEY"}}
	a := newAdapter(t, stub)

	resp, err := a.Send(context.Background(), message(&models.DispatchRequest{MessageID: "m-2", Recipients: []string{"380991234567"}, Text: "hi"}))
	if !errors.Is(err, common.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if resp == nil || resp.Status != "rejected" || resp.Code == nil || *resp.Code != 301 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Meta["response_status"] != "NOT_ENOUGH_MONEY" {
		t.Fatalf("expected gateway status in meta, got %+v", resp.Meta)
	}
}

func TestAdapterClassifiesTransportFailure(t *testing.T) {
	stub := &senderStub{err: fmt.Errorf("%w: dial tcp: refused", gateway.ErrTransport)}
	a := newAdapter(t, stub)

	resp, err := a.Send(context.Background(), message(&models.DispatchRequest{MessageID: "m-3", Recipients: []string{"380991234567"}, Text: "hi"}))
	if !errors.Is(err, common.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if resp.Status != "transport_error" {
		t.Fatalf("unexpected status %q", resp.Status)
	}
}

func TestAdapterFailsWhenEveryRecipientIsRejected(t *testing.T) {
	stub := &senderStub{receipts: []gateway.SendReceipt{
		{Phone: "380991234567", ResponseCode: 406, ResponseStatus: "NOT_ALLOWED_RECIPIENT_COUNTRY"},
		{Phone: "380671112233", ResponseCode: 406, ResponseStatus: "NOT_ALLOWED_RECIPIENT_COUNTRY"},
	}}
	a := newAdapter(t, stub)

	resp, err := a.Send(context.Background(), message(&models.DispatchRequest{MessageID: "m-6", Recipients: []string{"380991234567", "380671112233"}, Text: "hi"}))
	if !errors.Is(err, common.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	var gwErr *gateway.GatewayError
	if !errors.As(err, &gwErr) || gwErr.Code != 406 {
		t.Fatalf("expected gateway error with code 406, got %v", err)
	}
	if resp == nil || resp.Status != "rejected" || resp.Code == nil || *resp.Code != 406 || resp.Raw == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestAdapterReportsPartialRejection(t *testing.T) {
	stub := &senderStub{receipts: []gateway.SendReceipt{
		{Phone: "380991234567", MessageID: "gw-1", ResponseStatus: "OK"},
		{Phone: "380671112233", ResponseCode: 406, ResponseStatus: "NOT_ALLOWED_RECIPIENT_COUNTRY"},
	}}
	a := newAdapter(t, stub)

	resp, err := a.Send(context.Background(), message(&models.DispatchRequest{MessageID: "m-7", Recipients: []string{"380991234567", "380671112233"}, Text: "hi"}))
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if resp.Status != "partial" || resp.Meta["380991234567"] != "gw-1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got := resp.Meta["rejected:380671112233"]; got != "406 NOT_ALLOWED_RECIPIENT_COUNTRY" {
		t.Fatalf("unexpected rejection entry %q", got)
	}
}

func TestAdapterRejectsPastStartTimeBeforeSending(t *testing.T) {
	stub := &senderStub{}
	a := newAdapter(t, stub)

	past := fixedNow.Add(-time.Minute)
	_, err := a.Send(context.Background(), message(&models.DispatchRequest{
		MessageID:  "m-4",
		Recipients: []string{"380991234567"},
		Text:       "hi",
		StartTime:  &past,
	}))
	if !errors.Is(err, common.ErrPermanent) || !errors.Is(err, gateway.ErrPastDate) {
		t.Fatalf("expected permanent past date error, got %v", err)
	}
	if stub.recipients != nil {
		t.Fatalf("sender must not be called")
	}
}

func TestAdapterRejectsUnexpectedRequest(t *testing.T) {
	a := newAdapter(t, &senderStub{})
	if _, err := a.Send(context.Background(), &worker.ValidatedMessage{Request: "text"}); !errors.Is(err, common.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if _, err := a.Send(context.Background(), nil); !errors.Is(err, common.ErrPermanent) {
		t.Fatalf("expected permanent error for nil message, got %v", err)
	}
}

func TestAdapterWithMockGateway(t *testing.T) {
	client, err := gateway.NewClient("token-123", gateway.WithTransport(transport.NewMock(zerolog.Nop())))
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	a := newAdapter(t, client)

	resp, err := a.Send(context.Background(), message(&models.DispatchRequest{
		MessageID:  "m-5",
		Mode:       "hybrid",
		Recipients: []string{"380991234567", "380671112233"},
		Text:       "hi",
	}))
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if len(resp.Meta) != 2 {
		t.Fatalf("expected one message id per recipient, got %+v", resp.Meta)
	}
}

func TestNewAdapterRequiresClient(t *testing.T) {
	if _, err := turbosms.NewAdapter(nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
