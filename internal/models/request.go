package models

import "time"

// ChannelTurboSMS is the channel name carried by dispatch requests and events.
const ChannelTurboSMS = "turbosms"

// DispatchRequest is the payload consumed from the dispatch request topic.
// Mode is one of sms, viber or hybrid and defaults to sms.
type DispatchRequest struct {
	MessageID   string            `json:"message_id"`
	Channel     string            `json:"channel,omitempty"`
	TenantID    string            `json:"tenant_id,omitempty"`
	TraceID     string            `json:"trace_id,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Meta        map[string]string `json:"meta,omitempty"`
	Mode        string            `json:"mode,omitempty"`
	Recipients  []string          `json:"recipients"`
	Text        string            `json:"text"`
	Sender      string            `json:"sender,omitempty"`
	ViberSender string            `json:"viber_sender,omitempty"`
	StartTime   *time.Time        `json:"start_time,omitempty"`
	Options     DispatchOptions   `json:"options"`
}

// DispatchOptions carries the optional channel extras. Nil means unset.
type DispatchOptions struct {
	IsFlash         *int    `json:"is_flash,omitempty"`
	TTL             *int    `json:"ttl,omitempty"`
	ImageURL        *string `json:"image_url,omitempty"`
	Caption         *string `json:"caption,omitempty"`
	Action          *string `json:"action,omitempty"`
	FileID          *int    `json:"file_id,omitempty"`
	CountClicks     *int    `json:"count_clicks,omitempty"`
	IsTransactional *int    `json:"is_transactional,omitempty"`
}
