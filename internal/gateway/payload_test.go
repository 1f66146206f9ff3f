package gateway_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ajayykmr/turbosms-go/internal/gateway"
	"github.com/ajayykmr/turbosms-go/internal/util"
)

func mustOptions(t *testing.T, b *gateway.OptionsBuilder) gateway.Options {
	t.Helper()
	opts, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return opts
}

func marshalMap(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSMSModeOmitsViber(t *testing.T) {
	opts := mustOptions(t, gateway.NewOptions().Mode(gateway.ModeSMS))

	p, err := gateway.BuildSendPayload(opts, []string{"+38 (099) 123-45-67"}, "Hello", "Shop", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := marshalMap(t, p)
	if _, ok := m["viber"]; ok {
		t.Fatalf("sms mode must not emit a viber section: %v", m)
	}
	if _, ok := m["start_time"]; ok {
		t.Fatalf("start_time must be omitted when unset: %v", m)
	}
	sms, ok := m["sms"].(map[string]any)
	if !ok || sms["sender"] != "Shop" || sms["text"] != "Hello" {
		t.Fatalf("unexpected sms section %v", m["sms"])
	}
	if _, ok := sms["is_flash"]; ok {
		t.Fatalf("is_flash must be omitted when unset: %v", sms)
	}
	if p.Recipients[0] != "380991234567" {
		t.Fatalf("recipient not normalized: %q", p.Recipients[0])
	}
}

func TestViberModeOmitsSMS(t *testing.T) {
	opts := mustOptions(t, gateway.NewOptions().Mode(gateway.ModeViber))

	p, err := gateway.BuildSendPayload(opts, []string{"0991234567"}, "Hello", "Shop", "ShopViber")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := marshalMap(t, p)
	if _, ok := m["sms"]; ok {
		t.Fatalf("viber mode must not emit an sms section: %v", m)
	}
	viber, ok := m["viber"].(map[string]any)
	if !ok || viber["sender"] != "ShopViber" {
		t.Fatalf("unexpected viber section %v", m["viber"])
	}
	for _, key := range []string{"ttl", "image_url", "caption", "action", "file_id", "count_clicks", "is_transactional"} {
		if _, ok := viber[key]; ok {
			t.Fatalf("unset key %q must be omitted: %v", key, viber)
		}
	}
}

func TestSMSModeOmitsViberWhateverViberExtrasAreSet(t *testing.T) {
	opts := mustOptions(t, gateway.NewOptions().
		Mode(gateway.ModeSMS).
		TTL(3600).
		Image("https://example.com/promo.png").
		Caption("Open").
		Action("https://example.com/promo").
		FileID(42).
		CountClicks(1).
		Transactional(1))

	p, err := gateway.BuildSendPayload(opts, []string{"0991234567"}, "Hello", "Shop", "ShopViber")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := marshalMap(t, p)
	if _, ok := m["viber"]; ok {
		t.Fatalf("sms mode must not emit a viber section: %v", m)
	}
	sms, ok := m["sms"].(map[string]any)
	if !ok {
		t.Fatalf("expected an sms section: %v", m)
	}
	for _, key := range []string{"ttl", "image_url", "caption", "action", "file_id", "count_clicks", "is_transactional"} {
		if _, ok := sms[key]; ok {
			t.Fatalf("viber key %q leaked into the sms section: %v", key, sms)
		}
	}
}

func TestViberModeOmitsSMSWhenFlashIsSet(t *testing.T) {
	opts := mustOptions(t, gateway.NewOptions().Mode(gateway.ModeViber).IsFlash(1))

	p, err := gateway.BuildSendPayload(opts, []string{"0991234567"}, "Hello", "Shop", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := marshalMap(t, p)
	if _, ok := m["sms"]; ok {
		t.Fatalf("viber mode must not emit an sms section: %v", m)
	}
	viber, ok := m["viber"].(map[string]any)
	if !ok {
		t.Fatalf("expected a viber section: %v", m)
	}
	if _, ok := viber["is_flash"]; ok {
		t.Fatalf("is_flash leaked into the viber section: %v", viber)
	}
}

func TestHybridFallsBackToSMSSender(t *testing.T) {
	opts := mustOptions(t, gateway.NewOptions().Mode(gateway.ModeHybrid).IsFlash(1))

	p, err := gateway.BuildSendPayload(opts, []string{"380991234567"}, "Hi", "Shop", "  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.SMS == nil || p.Viber == nil {
		t.Fatalf("hybrid must emit both sections: %+v", p)
	}
	if p.Viber.Sender != "Shop" {
		t.Fatalf("expected viber sender to fall back to %q, got %q", "Shop", p.Viber.Sender)
	}
	if p.SMS.IsFlash == nil || *p.SMS.IsFlash != 1 {
		t.Fatalf("expected is_flash=1, got %v", p.SMS.IsFlash)
	}
}

func TestViberExtrasAreSparse(t *testing.T) {
	opts := mustOptions(t, gateway.NewOptions().
		Mode(gateway.ModeViber).
		TTL(3600).
		Caption("Open").
		CountClicks(0))

	p, err := gateway.BuildSendPayload(opts, []string{"380991234567"}, "Hi", "Shop", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	viber := marshalMap(t, p)["viber"].(map[string]any)

	if viber["ttl"] != float64(3600) || viber["caption"] != "Open" {
		t.Fatalf("expected set keys to be present: %v", viber)
	}
	if v, ok := viber["count_clicks"]; !ok || v != float64(0) {
		t.Fatalf("explicitly set zero must be sent: %v", viber)
	}
	for _, key := range []string{"image_url", "action", "file_id", "is_transactional"} {
		if _, ok := viber[key]; ok {
			t.Fatalf("unset key %q must be omitted: %v", key, viber)
		}
	}
}

func TestStartTimeIsEmitted(t *testing.T) {
	opts := mustOptions(t, gateway.NewOptions().WithClock(clock).StartTime(fixedNow.Add(48*time.Hour)))
	p, err := gateway.BuildSendPayload(opts, []string{"380991234567"}, "Hi", "Shop", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.StartTime != "2024-03-12 12:00:00" {
		t.Fatalf("unexpected start_time %q", p.StartTime)
	}
}

func TestBuildSendPayloadRequiresFields(t *testing.T) {
	var opts gateway.Options
	cases := []struct {
		name       string
		recipients []string
		text       string
		sender     string
	}{
		{"no recipients", nil, "Hi", "Shop"},
		{"blank recipient", []string{" "}, "Hi", "Shop"},
		{"blank text", []string{"380991234567"}, "  ", "Shop"},
		{"blank sender", []string{"380991234567"}, "Hi", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gateway.BuildSendPayload(opts, tc.recipients, tc.text, tc.sender, "")
			if !errors.Is(err, gateway.ErrEmptyField) || !errors.Is(err, gateway.ErrValidation) {
				t.Fatalf("expected empty field validation error, got %v", err)
			}
		})
	}
}

func TestBuildSendPayloadRejectsDigitlessRecipient(t *testing.T) {
	var opts gateway.Options
	_, err := gateway.BuildSendPayload(opts, []string{"380991234567", "call me"}, "Hi", "Shop", "")
	if !errors.Is(err, gateway.ErrValidation) || !errors.Is(err, util.ErrInvalidPhone) {
		t.Fatalf("expected invalid phone validation error, got %v", err)
	}
}

func TestBuildFilePayload(t *testing.T) {
	if p := gateway.BuildFilePayload("aGVsbG8="); p.Data != "aGVsbG8=" || p.URL != "" {
		t.Fatalf("expected data payload, got %+v", p)
	}
	if p := gateway.BuildFilePayload("https://example.com/a.png"); p.URL != "https://example.com/a.png" || p.Data != "" {
		t.Fatalf("expected url payload, got %+v", p)
	}
}
