package gateway

import (
	"fmt"
	"time"
)

const (
	// MaxScheduleDays bounds how far ahead a message may be scheduled.
	MaxScheduleDays = 14
	// MinTTL and MaxTTL bound the Viber message lifetime in seconds.
	MinTTL = 60
	MaxTTL = 86400

	// StartTimeLayout is the wire format of start_time.
	StartTimeLayout = "2006-01-02 15:04:05"
)

// Options is an immutable snapshot of per-message settings. Build one with
// NewOptions; the zero value sends a plain SMS.
type Options struct {
	mode            Mode
	startTime       string
	isFlash         *int
	ttl             *int
	imageURL        *string
	caption         *string
	action          *string
	fileID          *int
	countClicks     *int
	isTransactional *int
}

// Mode returns the channel mode, defaulting to SMS.
func (o Options) Mode() Mode {
	if o.mode == "" {
		return ModeSMS
	}
	return o.mode
}

// StartTime returns the formatted scheduled time, if one was set.
func (o Options) StartTime() (string, bool) {
	return o.startTime, o.startTime != ""
}

// ToBuilder returns a builder seeded with o, for deriving variants of a base
// configuration without touching it.
func (o Options) ToBuilder() *OptionsBuilder {
	b := NewOptions()
	b.opts = o
	if b.opts.mode == "" {
		b.opts.mode = ModeSMS
	}
	return b
}

// OptionsBuilder accumulates options. Each setter validates its argument when
// called; the first failure is kept, later setters become no-ops, and the
// failure is reported by Err and Build.
type OptionsBuilder struct {
	opts Options
	err  error
	now  func() time.Time
}

// NewOptions starts a builder in SMS mode.
func NewOptions() *OptionsBuilder {
	return &OptionsBuilder{
		opts: Options{mode: ModeSMS},
		now:  time.Now,
	}
}

// WithClock overrides the clock used to validate StartTime.
func (b *OptionsBuilder) WithClock(now func() time.Time) *OptionsBuilder {
	if now != nil {
		b.now = now
	}
	return b
}

// Mode sets the channel mode.
func (b *OptionsBuilder) Mode(m Mode) *OptionsBuilder {
	if b.err != nil {
		return b
	}
	if !m.Valid() {
		b.err = fmt.Errorf("%w: %q", ErrInvalidMode, string(m))
		return b
	}
	b.opts.mode = m
	return b
}

// StartTime schedules the message. t must be strictly after now and no more
// than MaxScheduleDays ahead. It is stored formatted in t's own location.
func (b *OptionsBuilder) StartTime(t time.Time) *OptionsBuilder {
	if b.err != nil {
		return b
	}
	now := b.now()
	if !t.After(now) {
		b.err = fmt.Errorf("%w: %s", ErrPastDate, t.Format(StartTimeLayout))
		return b
	}
	if t.Sub(now) > MaxScheduleDays*24*time.Hour {
		b.err = fmt.Errorf("%w: %s", ErrDateRange, t.Format(StartTimeLayout))
		return b
	}
	b.opts.startTime = t.Format(StartTimeLayout)
	return b
}

// IsFlash marks an SMS as a flash message.
func (b *OptionsBuilder) IsFlash(flag int) *OptionsBuilder {
	if b.err == nil {
		b.opts.isFlash = intPtr(flag)
	}
	return b
}

// TTL sets the Viber message lifetime in seconds, within [MinTTL, MaxTTL].
func (b *OptionsBuilder) TTL(seconds int) *OptionsBuilder {
	if b.err != nil {
		return b
	}
	if seconds < MinTTL || seconds > MaxTTL {
		b.err = fmt.Errorf("%w: ttl %d not in [%d, %d]", ErrOutOfRange, seconds, MinTTL, MaxTTL)
		return b
	}
	b.opts.ttl = intPtr(seconds)
	return b
}

// Image sets the Viber image URL.
func (b *OptionsBuilder) Image(url string) *OptionsBuilder {
	if b.err == nil {
		b.opts.imageURL = &url
	}
	return b
}

// Caption sets the Viber button caption.
func (b *OptionsBuilder) Caption(caption string) *OptionsBuilder {
	if b.err == nil {
		b.opts.caption = &caption
	}
	return b
}

// Action sets the Viber button action URL.
func (b *OptionsBuilder) Action(action string) *OptionsBuilder {
	if b.err == nil {
		b.opts.action = &action
	}
	return b
}

// FileID attaches a previously uploaded file to a Viber message.
func (b *OptionsBuilder) FileID(id int) *OptionsBuilder {
	if b.err == nil {
		b.opts.fileID = intPtr(id)
	}
	return b
}

// CountClicks asks the gateway to track clicks on a Viber message.
func (b *OptionsBuilder) CountClicks(count int) *OptionsBuilder {
	if b.err == nil {
		b.opts.countClicks = intPtr(count)
	}
	return b
}

// Transactional marks a Viber message as transactional.
func (b *OptionsBuilder) Transactional(flag int) *OptionsBuilder {
	if b.err == nil {
		b.opts.isTransactional = intPtr(flag)
	}
	return b
}

// Err returns the first setter failure, if any.
func (b *OptionsBuilder) Err() error {
	return b.err
}

// Build freezes the accumulated options.
func (b *OptionsBuilder) Build() (Options, error) {
	if b.err != nil {
		return Options{}, b.err
	}
	return b.opts, nil
}

func intPtr(v int) *int {
	return &v
}
