package dispatchvalidator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/turbosms-go/internal/config"
	"github.com/ajayykmr/turbosms-go/internal/gateway"
	"github.com/ajayykmr/turbosms-go/internal/models"
	"github.com/ajayykmr/turbosms-go/internal/util"
	"github.com/ajayykmr/turbosms-go/internal/worker"
)

// Validator implements worker.Validator for dispatch requests.
type Validator struct {
	logger zerolog.Logger
	cfg    config.ValidationConfig
}

// New constructs a Validator.
func New(cfg config.ValidationConfig, logger zerolog.Logger) *Validator {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Validator{logger: logger, cfg: cfg}
}

// ParseAndValidate decodes the payload strictly, normalizes recipients and
// checks the limits from ValidationConfig. Scheduling bounds and TTL range are
// left to the gateway options builder at send time.
func (v *Validator) ParseAndValidate(ctx context.Context, channel string, payload []byte) (*worker.ValidatedMessage, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(payload) == 0 {
		return nil, errors.New("dispatch validator: payload is empty")
	}

	var req models.DispatchRequest
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("dispatch validator: decode: %w", err)
	}

	if err := v.applyDefaultsAndValidate(channel, &req); err != nil {
		return &worker.ValidatedMessage{
			Channel:   req.Channel,
			MessageID: strings.TrimSpace(req.MessageID),
			TraceID:   strings.TrimSpace(req.TraceID),
		}, err
	}

	return &worker.ValidatedMessage{
		Channel:    req.Channel,
		MessageID:  req.MessageID,
		TraceID:    req.TraceID,
		TenantID:   req.TenantID,
		CreatedAt:  req.CreatedAt,
		Metadata:   req.Meta,
		Request:    &req,
		RawPayload: append([]byte(nil), payload...),
	}, nil
}

func (v *Validator) applyDefaultsAndValidate(channel string, req *models.DispatchRequest) error {
	req.Channel = strings.TrimSpace(strings.ToLower(req.Channel))
	if req.Channel == "" {
		req.Channel = channel
	}
	if channel != "" && req.Channel != strings.ToLower(channel) {
		return fmt.Errorf("dispatch validator: channel mismatch: expected %s, got %s", channel, req.Channel)
	}

	if _, err := util.ParseUUIDv4(req.MessageID); err != nil {
		return fmt.Errorf("dispatch validator: message_id: %w", err)
	}
	req.MessageID = strings.TrimSpace(req.MessageID)
	req.TraceID = strings.TrimSpace(req.TraceID)
	req.TenantID = strings.TrimSpace(req.TenantID)

	if req.CreatedAt.IsZero() {
		return errors.New("dispatch validator: created_at is required")
	}
	req.CreatedAt = req.CreatedAt.UTC()

	mode := gateway.ModeSMS
	if req.Mode != "" {
		parsed, err := gateway.ParseMode(req.Mode)
		if err != nil {
			return fmt.Errorf("dispatch validator: mode: %w", err)
		}
		mode = parsed
	}
	req.Mode = string(mode)

	if len(req.Recipients) == 0 {
		return errors.New("dispatch validator: recipients must not be empty")
	}
	if v.cfg.RecipientsMax > 0 && len(req.Recipients) > v.cfg.RecipientsMax {
		return fmt.Errorf("dispatch validator: recipients exceed max %d", v.cfg.RecipientsMax)
	}
	phones := make([]string, 0, len(req.Recipients))
	for idx, raw := range req.Recipients {
		phone, err := util.NormalizePhoneStrict(raw)
		if err != nil {
			return fmt.Errorf("dispatch validator: recipients[%d]: %w", idx, err)
		}
		phones = append(phones, phone)
	}
	req.Recipients = phones

	if strings.TrimSpace(req.Text) == "" {
		return errors.New("dispatch validator: text is required")
	}
	req.Sender = strings.TrimSpace(req.Sender)
	req.ViberSender = strings.TrimSpace(req.ViberSender)

	if u := req.Options.ImageURL; u != nil {
		normalized, err := util.ValidateHTTPURL(*u)
		if err != nil {
			return fmt.Errorf("dispatch validator: options.image_url: %w", err)
		}
		req.Options.ImageURL = &normalized
	}
	if u := req.Options.Action; u != nil {
		normalized, err := util.ValidateHTTPURL(*u)
		if err != nil {
			return fmt.Errorf("dispatch validator: options.action: %w", err)
		}
		req.Options.Action = &normalized
	}

	meta, err := util.ValidateMetadata(req.Meta, v.cfg.MetaMaxEntries, v.cfg.MetaMaxKeyLen, v.cfg.MetaMaxValueLen)
	if err != nil {
		return fmt.Errorf("dispatch validator: metadata: %w", err)
	}
	req.Meta = meta

	return nil
}
