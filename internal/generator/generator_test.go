package generator

import (
	"reflect"
	"testing"
	"time"

	"ticketfixture/internal/domain"
)

func generateDefault(t *testing.T) []domain.TicketRecord {
	t.Helper()
	records, err := Generate(DefaultOptions())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(records) != DefaultCount {
		t.Fatalf("expected %d records, got %d", DefaultCount, len(records))
	}
	return records
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := generateDefault(t)
	b := generateDefault(t)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different records")
	}
	other := DefaultOptions()
	other.Seed = 7
	c, err := Generate(other)
	if err != nil {
		t.Fatal(err)
	}
	if reflect.DeepEqual(a, c) {
		t.Fatalf("different seeds produced identical records")
	}
}

func TestFirstRecordScenario(t *testing.T) {
	rec := generateDefault(t)[0]
	ref := DefaultOptions().Reference
	if rec.ID != 1 || rec.Title != "Ticket 1" || rec.Description != "Description for ticket 1" {
		t.Fatalf("unexpected identity: %+v", rec)
	}
	if rec.CreatedOn.Before(ref) || rec.CreatedOn.After(ref.Add(30*24*time.Hour)) {
		t.Fatalf("createdOn %v outside window", rec.CreatedOn)
	}
	if !rec.Status.Valid() {
		t.Fatalf("status %q not enumerated", rec.Status)
	}
}

func TestRecordInvariants(t *testing.T) {
	for _, seed := range []int64{1, 42, 99, 2024} {
		opts := DefaultOptions()
		opts.Seed = seed
		opts.Count = 300
		records, err := Generate(opts)
		if err != nil {
			t.Fatal(err)
		}
		for i, rec := range records {
			if rec.ID != i+1 {
				t.Fatalf("record %d has id %d", i, rec.ID)
			}
			sum := 0
			for _, h := range rec.CycleTimeParts() {
				sum += h
			}
			if sum != rec.TotalCycleTimeHours {
				t.Fatalf("ticket %d: total %d != parts %d", rec.ID, rec.TotalCycleTimeHours, sum)
			}
			if rec.Blocked {
				if rec.BlockedBy == "" || rec.BlockedSince.IsZero() || rec.UnblockedAt.IsZero() {
					t.Fatalf("ticket %d blocked without blocker fields", rec.ID)
				}
				if rec.BlockedBy == rec.Owner {
					t.Fatalf("ticket %d blocked by its owner", rec.ID)
				}
				if !rec.Status.IsBlocked() {
					t.Fatalf("ticket %d blocked with status %q", rec.ID, rec.Status)
				}
			} else {
				if rec.BlockedBy != "" || !rec.BlockedSince.IsZero() || !rec.UnblockedAt.IsZero() {
					t.Fatalf("ticket %d not blocked but has blocker fields", rec.ID)
				}
				if rec.TimeInBlockedForClarificationHours != 0 {
					t.Fatalf("ticket %d not blocked but has blocked hours", rec.ID)
				}
			}
			if (rec.Status == domain.StatusReleased) != !rec.ClosedOn.IsZero() {
				t.Fatalf("ticket %d: status %q closedOn %v", rec.ID, rec.Status, rec.ClosedOn)
			}
			if d := rec.TimeInDevelopmentHours; d < 5 || d > 20 {
				t.Fatalf("ticket %d dev hours %d", rec.ID, d)
			}
			assertEventLog(t, rec)
		}
	}
}

func assertEventLog(t *testing.T, rec domain.TicketRecord) {
	t.Helper()
	if len(rec.EventLog) == 0 {
		t.Fatalf("ticket %d has empty event log", rec.ID)
	}
	first := rec.EventLog[0]
	if first.Status != domain.StatusInDevelopment || !first.Timestamp.Equal(rec.CreatedOn) || first.User != rec.Owner {
		t.Fatalf("ticket %d first event %+v", rec.ID, first)
	}
	for i := 1; i < len(rec.EventLog); i++ {
		if rec.EventLog[i].Timestamp.Before(rec.EventLog[i-1].Timestamp) {
			t.Fatalf("ticket %d event log goes backwards at %d", rec.ID, i)
		}
	}
}

func TestEventLogRuleTableCoversAllStatuses(t *testing.T) {
	for _, s := range domain.AllStatuses {
		if _, ok := stagesByStatus[s]; !ok {
			t.Fatalf("status %q has no event log rule", s)
		}
	}
	if len(stagesByStatus) != len(domain.AllStatuses) {
		t.Fatalf("rule table has entries for unknown statuses")
	}
}

func TestEventLogShapes(t *testing.T) {
	created := time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)
	closed := created.Add(4 * 24 * time.Hour)
	cases := []struct {
		status   domain.Status
		closedOn time.Time
		blocker  domain.Developer
		want     []domain.Status
	}{
		{status: domain.StatusInDevelopment, want: []domain.Status{domain.StatusInDevelopment}},
		{status: domain.StatusDeprioritized, want: []domain.Status{domain.StatusInDevelopment}},
		{status: domain.StatusTechQC, want: []domain.Status{domain.StatusInDevelopment, domain.StatusTechQC}},
		{status: domain.StatusInReview, want: []domain.Status{domain.StatusInDevelopment, domain.StatusTechQC}},
		{status: domain.StatusBusinessQC, want: []domain.Status{domain.StatusInDevelopment, domain.StatusTechQC, domain.StatusBusinessQC}},
		{status: domain.StatusBlocked, blocker: domain.DevVirat, want: []domain.Status{domain.StatusInDevelopment, domain.StatusBlocked}},
		{status: domain.StatusBlockedForClarification, want: []domain.Status{domain.StatusInDevelopment, domain.StatusBlockedForClarification}},
		{status: domain.StatusReleased, closedOn: closed, want: []domain.Status{domain.StatusInDevelopment, domain.StatusReleased}},
		{status: domain.StatusReleased, want: []domain.Status{domain.StatusInDevelopment}},
	}
	g := New(DefaultOptions())
	for _, tc := range cases {
		log := g.EventLog(EventLogInput{
			Owner:     domain.DevUnni,
			CreatedOn: created,
			Status:    tc.status,
			ClosedOn:  tc.closedOn,
			BlockedBy: tc.blocker,
		})
		var got []domain.Status
		for _, evt := range log {
			got = append(got, evt.Status)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.status, got, tc.want)
		}
		last := log[len(log)-1]
		switch tc.status {
		case domain.StatusBlocked:
			if last.User != domain.DevVirat || last.BlockedBy != domain.DevVirat {
				t.Fatalf("blocked event should carry the blocker: %+v", last)
			}
			if d := last.Timestamp.Sub(created); d < 4*time.Hour || d > 12*time.Hour {
				t.Fatalf("blocked advance %v out of range", d)
			}
		case domain.StatusBlockedForClarification:
			if last.BlockedBy == "" || last.User != last.BlockedBy {
				t.Fatalf("unblocked ticket should get a random blocker: %+v", last)
			}
		case domain.StatusBusinessQC:
			if d := last.Timestamp.Sub(created); d < 16*time.Hour || d > 48*time.Hour {
				t.Fatalf("business qc advance %v out of range", d)
			}
		case domain.StatusReleased:
			if !tc.closedOn.IsZero() && (!last.Timestamp.Equal(closed) || last.User != domain.DevUnni) {
				t.Fatalf("released event %+v", last)
			}
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := DefaultOptions()
	opts.Count = 0
	if _, err := Generate(opts); err == nil {
		t.Fatalf("expected error for zero count")
	}
	opts = DefaultOptions()
	opts.Reference = time.Time{}
	if err := opts.Validate(); err == nil {
		t.Fatalf("expected error for missing reference")
	}
}
