package bus

import (
	"errors"
	"testing"
)

func TestEventSubject(t *testing.T) {
	cases := []struct {
		prefix, eventType, want string
	}{
		{"depositor.events", "INGESTION", "depositor.events.ingestion"},
		{"depositor.events.", "Validation", "depositor.events.validation"},
		{"", "VALIDATION", "validation"},
		{"depositor.events", "", "depositor.events"},
	}
	for _, tc := range cases {
		if got := EventSubject(tc.prefix, tc.eventType); got != tc.want {
			t.Fatalf("EventSubject(%q, %q) = %q, want %q", tc.prefix, tc.eventType, got, tc.want)
		}
	}
}

func TestNilBusErrors(t *testing.T) {
	var b *NatsBus
	if err := b.Publish("a.b", []byte("x")); !errors.Is(err, errNilBus) {
		t.Fatalf("expected nil bus error, got %v", err)
	}
	if err := (&NatsBus{}).Publish(" ", nil); !errors.Is(err, errNilBus) {
		t.Fatalf("expected nil bus error before subject check, got %v", err)
	}
	if b.Status() != "UNKNOWN" {
		t.Fatalf("unexpected status %s", b.Status())
	}
	b.Close()
}

func TestPublishJSONRejectsNil(t *testing.T) {
	b := &NatsBus{}
	if err := b.PublishJSON("a.b", nil); !errors.Is(err, errNilPayload) {
		t.Fatalf("expected nil payload error, got %v", err)
	}
	if err := b.PublishJSON("a.b", map[string]string{"k": "v"}); !errors.Is(err, errNilBus) {
		t.Fatalf("expected nil bus error, got %v", err)
	}
}

func TestParseBool(t *testing.T) {
	for _, val := range []string{"1", "true", "YES", "y", "on"} {
		if !parseBool(val) {
			t.Fatalf("expected true for %s", val)
		}
	}
	for _, val := range []string{"", "0", "no", "off"} {
		if parseBool(val) {
			t.Fatalf("expected false for %s", val)
		}
	}
}
