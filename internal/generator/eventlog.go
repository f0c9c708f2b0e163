package generator

import (
	"time"

	"ticketfixture/internal/domain"
)

type userRule int

const (
	userRandom userRule = iota
	userBlocker
	userOwner
)

// stage is one event appended after the initial In Development entry.
type stage struct {
	status   domain.Status
	minHours int
	maxHours int
	user     userRule
	// atClose stamps the event at the close instant instead of advancing the clock.
	atClose bool
}

// stagesByStatus maps a final status to the events that follow In Development.
// Every status must have an entry, even an empty one.
var stagesByStatus = map[domain.Status][]stage{
	domain.StatusInDevelopment: nil,
	domain.StatusTechQC: {
		{status: domain.StatusTechQC, minHours: 8, maxHours: 24, user: userRandom},
	},
	domain.StatusBusinessQC: {
		{status: domain.StatusTechQC, minHours: 8, maxHours: 24, user: userRandom},
		{status: domain.StatusBusinessQC, minHours: 8, maxHours: 24, user: userRandom},
	},
	domain.StatusInReview: {
		{status: domain.StatusTechQC, minHours: 8, maxHours: 24, user: userRandom},
	},
	domain.StatusBlocked: {
		{status: domain.StatusBlocked, minHours: 4, maxHours: 12, user: userBlocker},
	},
	domain.StatusBlockedForClarification: {
		{status: domain.StatusBlockedForClarification, minHours: 4, maxHours: 12, user: userBlocker},
	},
	domain.StatusReleased: {
		{status: domain.StatusReleased, user: userOwner, atClose: true},
	},
	domain.StatusDeprioritized: nil,
}

// EventLogInput carries the ticket fields the event log depends on.
type EventLogInput struct {
	Owner     domain.Developer
	CreatedOn time.Time
	Status    domain.Status
	// ClosedOn is zero when the ticket is not closed.
	ClosedOn time.Time
	// BlockedBy is empty when the ticket is not blocked.
	BlockedBy domain.Developer
}

// EventLog derives the status history for a ticket from its final status.
// The first entry is always In Development at CreatedOn and timestamps never
// decrease.
func (g *Generator) EventLog(in EventLogInput) []domain.TransitionEvent {
	t := in.CreatedOn
	log := []domain.TransitionEvent{{Status: domain.StatusInDevelopment, Timestamp: t, User: in.Owner}}
	for _, st := range stagesByStatus[in.Status] {
		evt := domain.TransitionEvent{Status: st.status}
		if st.atClose {
			if in.ClosedOn.IsZero() {
				continue
			}
			t = in.ClosedOn
		} else {
			t = t.Add(time.Duration(g.between(st.minHours, st.maxHours)) * time.Hour)
		}
		evt.Timestamp = t
		switch st.user {
		case userOwner:
			evt.User = in.Owner
		case userBlocker:
			blocker := in.BlockedBy
			if blocker == "" {
				blocker = pick(g.rng, domain.AllDevelopers)
			}
			evt.User = blocker
			evt.BlockedBy = blocker
		default:
			evt.User = pick(g.rng, domain.AllDevelopers)
		}
		log = append(log, evt)
	}
	return log
}
