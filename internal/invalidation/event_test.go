package invalidation

import (
	"testing"
	"time"
)

func mustTS() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }

func TestEvent_Validate_HappyPath(t *testing.T) {
	ev := Event{
		Version: 1, Op: "purge", TS: mustTS(),
		Keys:   []string{"nearby:40.713:-74.006:1500:"},
		Source: "places-admin",
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestEvent_Validate_RejectsWrongVersion(t *testing.T) {
	ev := Event{Version: 2, Op: "purge", TS: mustTS(), Keys: []string{"k"}}
	if err := ev.Validate(); err == nil {
		t.Fatalf("expected error for version != 1")
	}
}

func TestEvent_Validate_RejectsUnknownOp(t *testing.T) {
	ev := Event{Version: 1, Op: "delete", TS: mustTS(), Keys: []string{"k"}}
	if err := ev.Validate(); err == nil {
		t.Fatalf("expected error for unknown op")
	}
}

func TestEvent_Validate_RejectsEmptyKeys(t *testing.T) {
	ev := Event{Version: 1, Op: "purge", TS: mustTS()}
	if err := ev.Validate(); err == nil {
		t.Fatalf("expected error for missing keys")
	}
}

func TestEvent_Validate_RejectsBlankKey(t *testing.T) {
	ev := Event{Version: 1, Op: "purge", TS: mustTS(), Keys: []string{"k", "  "}}
	if err := ev.Validate(); err == nil {
		t.Fatalf("expected error for blank key entry")
	}
}
