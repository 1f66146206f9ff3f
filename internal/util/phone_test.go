package util

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "international with plus", in: "+380991234567", want: "380991234567"},
		{name: "international formatted", in: "+38 (099) 123-45-67", want: "380991234567"},
		{name: "country code without plus", in: "38 099 1234567", want: "380991234567"},
		{name: "local", in: "0991234567", want: "380991234567"},
		{name: "twelve digits from trunk", in: "099123456789", want: "099123456789"},
		{name: "short passes through", in: "+38 0123", want: "0123"},
		{name: "no zero keeps all digits", in: "1234567", want: "1234567"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizePhone(tc.in)
			if !ok {
				t.Fatalf("NormalizePhone(%q) reported no usable number", tc.in)
			}
			if got != tc.want {
				t.Fatalf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizePhoneEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "+-()"} {
		if got, ok := NormalizePhone(in); ok || got != "" {
			t.Fatalf("NormalizePhone(%q) = (%q, %v), want (\"\", false)", in, got, ok)
		}
	}
}

func TestNormalizePhoneIdempotentOnTemplatedOutput(t *testing.T) {
	first, ok := NormalizePhone("0991234567")
	if !ok {
		t.Fatalf("expected usable number")
	}
	second, ok := NormalizePhone(first)
	if !ok || second != first {
		t.Fatalf("expected %q to be stable, got %q", first, second)
	}
}

func TestNormalizePhoneStrict(t *testing.T) {
	got, err := NormalizePhoneStrict("+380991234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "380991234567" {
		t.Fatalf("unexpected result %q", got)
	}

	if _, err := NormalizePhoneStrict("12345"); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone for unknown length, got %v", err)
	}
	if _, err := NormalizePhoneStrict(""); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone for empty input, got %v", err)
	}
}

func TestNormalizePhones(t *testing.T) {
	got, err := NormalizePhones([]string{"0991234567", "+380671112233", "555"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"380991234567", "380671112233", "555"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizePhones = %v, want %v", got, want)
	}

	if _, err := NormalizePhones([]string{"0991234567", "abc"}); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone for entry without digits, got %v", err)
	}
}
