package gateway

import (
	"fmt"
	"strings"

	"github.com/ajayykmr/turbosms-go/internal/util"
)

// DefaultSender is the alpha name used when callers have nothing better.
const DefaultSender = "MAGAZIN"

// SendPayload is the body of /message/send.json. Optional keys are pointers
// so that an unset field is omitted while an explicit zero is still sent.
type SendPayload struct {
	Recipients []string      `json:"recipients"`
	StartTime  string        `json:"start_time,omitempty"`
	SMS        *SMSSection   `json:"sms,omitempty"`
	Viber      *ViberSection `json:"viber,omitempty"`
}

// SMSSection is the sms part of a send payload.
type SMSSection struct {
	Sender  string `json:"sender"`
	Text    string `json:"text"`
	IsFlash *int   `json:"is_flash,omitempty"`
}

// ViberSection is the viber part of a send payload.
type ViberSection struct {
	Sender          string  `json:"sender"`
	Text            string  `json:"text"`
	TTL             *int    `json:"ttl,omitempty"`
	ImageURL        *string `json:"image_url,omitempty"`
	Caption         *string `json:"caption,omitempty"`
	Action          *string `json:"action,omitempty"`
	FileID          *int    `json:"file_id,omitempty"`
	CountClicks     *int    `json:"count_clicks,omitempty"`
	IsTransactional *int    `json:"is_transactional,omitempty"`
}

// BuildSendPayload validates the inputs and assembles the body for the mode in
// opts. viberSender falls back to sender when blank.
func BuildSendPayload(opts Options, recipients []string, text, sender, viberSender string) (*SendPayload, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: recipients", ErrEmptyField)
	}
	for idx, r := range recipients {
		if strings.TrimSpace(r) == "" {
			return nil, fmt.Errorf("%w: recipients[%d]", ErrEmptyField, idx)
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text", ErrEmptyField)
	}
	if strings.TrimSpace(sender) == "" {
		return nil, fmt.Errorf("%w: sender", ErrEmptyField)
	}

	phones, err := util.NormalizePhones(recipients)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	payload := &SendPayload{
		Recipients: phones,
		StartTime:  opts.startTime,
	}

	mode := opts.Mode()
	if mode.includesSMS() {
		payload.SMS = &SMSSection{
			Sender:  sender,
			Text:    text,
			IsFlash: opts.isFlash,
		}
	}
	if mode.includesViber() {
		vs := viberSender
		if strings.TrimSpace(vs) == "" {
			vs = sender
		}
		payload.Viber = &ViberSection{
			Sender:          vs,
			Text:            text,
			TTL:             opts.ttl,
			ImageURL:        opts.imageURL,
			Caption:         opts.caption,
			Action:          opts.action,
			FileID:          opts.fileID,
			CountClicks:     opts.countClicks,
			IsTransactional: opts.isTransactional,
		}
	}

	return payload, nil
}

// FilePayload is the body of /file/add.json; exactly one field is set.
type FilePayload struct {
	Data string `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
}

// BuildFilePayload sends file as embedded data when it round-trips as base64
// and as a URL otherwise.
func BuildFilePayload(file string) FilePayload {
	if util.IsBase64Payload(file) {
		return FilePayload{Data: file}
	}
	return FilePayload{URL: file}
}
