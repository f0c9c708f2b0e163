package generator

import (
	"fmt"
	"math/rand/v2"
	"time"

	"ticketfixture/internal/domain"
)

const (
	DefaultCount     = 100
	DefaultSeed      = 42
	DefaultReference = "2024-06-01T10:00:00"

	createdWindow = 30 * 24 * time.Hour
	day           = 24 * time.Hour
)

// Options control one generation pass.
type Options struct {
	Count     int
	Seed      int64
	Reference time.Time
}

// DefaultOptions returns the fixture constants: 100 tickets, seed 42,
// reference instant 2024-06-01T10:00:00.
func DefaultOptions() Options {
	ref, _ := domain.ParseTime(DefaultReference)
	return Options{Count: DefaultCount, Seed: DefaultSeed, Reference: ref}
}

func (o Options) Validate() error {
	if o.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", o.Count)
	}
	if o.Reference.IsZero() {
		return fmt.Errorf("reference instant is required")
	}
	return nil
}

// Generator draws every field from a single seeded source in a fixed order,
// so the same Options always produce the same records.
type Generator struct {
	rng       *rand.Rand
	reference time.Time
}

// New seeds a generator from opts.
func New(opts Options) *Generator {
	seed := uint64(opts.Seed)
	return &Generator{
		rng:       rand.New(rand.NewPCG(seed, seed)),
		reference: opts.Reference.Truncate(time.Second),
	}
}

// Generate builds opts.Count records with ids 1..Count.
func Generate(opts Options) ([]domain.TicketRecord, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	g := New(opts)
	records := make([]domain.TicketRecord, 0, opts.Count)
	for i := 1; i <= opts.Count; i++ {
		records = append(records, g.Record(i))
	}
	return records, nil
}

// Record samples the ticket with the given id. Calls must be made in id order
// to reproduce a dataset.
func (g *Generator) Record(id int) domain.TicketRecord {
	rec := domain.TicketRecord{
		ID:          id,
		Title:       fmt.Sprintf("Ticket %d", id),
		Description: fmt.Sprintf("Description for ticket %d", id),
	}
	rec.Owner = pick(g.rng, domain.AllDevelopers)
	rec.Assignee = pick(g.rng, domain.AllDevelopers)
	rec.Reporter = pick(g.rng, domain.AllDevelopers)
	rec.Sprint = pick(g.rng, domain.AllSprints)
	rec.Team = pick(g.rng, domain.AllTeams)
	rec.Priority = pick(g.rng, domain.AllPriorities)
	rec.Tag = pick(g.rng, domain.AllTags)
	rec.Status = pick(g.rng, domain.AllStatuses)

	rec.CreatedOn = g.reference.Add(time.Duration(g.rng.Int64N(int64(createdWindow/time.Second)+1)) * time.Second)
	if rec.Status == domain.StatusReleased {
		rec.ClosedOn = rec.CreatedOn.Add(time.Duration(g.between(2, 10)) * day)
	}
	if rec.Status.IsBlocked() {
		rec.Blocked = g.rng.IntN(2) == 0
	}
	if rec.Blocked {
		rec.BlockedBy = pick(g.rng, othersThan(rec.Owner))
		// Sampled independently; UnblockedAt may precede BlockedSince.
		rec.BlockedSince = rec.CreatedOn.Add(time.Duration(g.between(1, 3)) * day)
		rec.UnblockedAt = rec.CreatedOn.Add(time.Duration(g.between(2, 4)) * day)
	}

	rec.EventLog = g.EventLog(EventLogInput{
		Owner:     rec.Owner,
		CreatedOn: rec.CreatedOn,
		Status:    rec.Status,
		ClosedOn:  rec.ClosedOn,
		BlockedBy: rec.BlockedBy,
	})

	rec.TimeInDevelopmentHours = g.between(5, 20)
	switch rec.Status {
	case domain.StatusTechQC, domain.StatusBusinessQC, domain.StatusReleased:
		rec.TimeInTechQCHours = g.between(0, 5)
	}
	switch rec.Status {
	case domain.StatusBusinessQC, domain.StatusReleased:
		rec.TimeInBusinessQCHours = g.between(0, 5)
	}
	rec.TimeInSprintBacklogHours = g.between(0, 3)
	if rec.Blocked {
		rec.TimeInBlockedForClarificationHours = g.between(0, 2)
	}
	for _, h := range rec.CycleTimeParts() {
		rec.TotalCycleTimeHours += h
	}

	rec.CodeReviewCount = g.between(0, 3)
	rec.RevisionCount = g.between(0, 2)
	rec.ReleaseVersion = fmt.Sprintf("1.0.%d", g.between(0, 5))
	return rec
}

// between returns a uniform integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.IntN(len(items))]
}

func othersThan(dev domain.Developer) []domain.Developer {
	out := make([]domain.Developer, 0, len(domain.AllDevelopers)-1)
	for _, d := range domain.AllDevelopers {
		if d != dev {
			out = append(out, d)
		}
	}
	return out
}
