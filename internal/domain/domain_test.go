package domain

import (
	"strings"
	"testing"
	"time"
)

func TestStatusIsBlocked(t *testing.T) {
	blocked := map[Status]bool{
		StatusBlocked:                 true,
		StatusBlockedForClarification: true,
	}
	for _, s := range AllStatuses {
		if got := s.IsBlocked(); got != blocked[s] {
			t.Fatalf("%q IsBlocked=%v", s, got)
		}
		if !s.Valid() {
			t.Fatalf("%q should be valid", s)
		}
	}
	if Status("Done").Valid() {
		t.Fatalf("unknown status reported valid")
	}
}

func TestEventLogEncoding(t *testing.T) {
	ts := time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC)
	events := []TransitionEvent{
		{Status: StatusInDevelopment, Timestamp: ts, User: DevRam},
		{Status: StatusBlocked, Timestamp: ts.Add(5 * time.Hour), User: DevSSR, BlockedBy: DevSSR},
	}
	s, err := EncodeEventLog(events)
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"status":"In Development","timestamp":"2024-06-03T18:00:00","user":"Ram"},` +
		`{"status":"Blocked","timestamp":"2024-06-03T23:00:00","user":"SSR","blockedBy":"SSR"}]`
	if s != want {
		t.Fatalf("encoded log\n got %s\nwant %s", s, want)
	}
	back, err := DecodeEventLog(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || !back[1].Timestamp.Equal(events[1].Timestamp) || back[1].BlockedBy != DevSSR {
		t.Fatalf("decoded log mismatch: %+v", back)
	}
}

func TestEncodeEmptyEventLog(t *testing.T) {
	s, err := EncodeEventLog(nil)
	if err != nil || s != "[]" {
		t.Fatalf("got %q, %v", s, err)
	}
	if _, err := DecodeEventLog("not json"); err == nil || !strings.Contains(err.Error(), "invalid event log") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestFormatTime(t *testing.T) {
	if FormatTime(time.Time{}) != "" {
		t.Fatalf("zero time should render empty")
	}
	ref, err := ParseTime("2024-06-01T10:00:00")
	if err != nil {
		t.Fatal(err)
	}
	if got := FormatTime(ref); got != "2024-06-01T10:00:00" {
		t.Fatalf("round trip got %s", got)
	}
}
