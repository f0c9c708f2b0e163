package domain

import (
	"strings"
	"time"
)

// TimeLayout is the local, zone-less ISO-8601 layout used for every timestamp
// written to the fixture.
const TimeLayout = "2006-01-02T15:04:05"

// FormatTime renders t with TimeLayout. The zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

// ParseTime parses a TimeLayout timestamp as a UTC wall-clock instant.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, strings.TrimSpace(s), time.UTC)
}

type Status string

const (
	StatusInDevelopment           Status = "In Development"
	StatusTechQC                  Status = "Tech QC"
	StatusBusinessQC              Status = "Business QC"
	StatusBlocked                 Status = "Blocked"
	StatusBlockedForClarification Status = "Blocked for Clarification"
	StatusInReview                Status = "In Review"
	StatusReleased                Status = "Released"
	StatusDeprioritized           Status = "Deprioritized"
)

// AllStatuses lists statuses in sampling order.
var AllStatuses = []Status{
	StatusInDevelopment,
	StatusTechQC,
	StatusBusinessQC,
	StatusBlocked,
	StatusBlockedForClarification,
	StatusInReview,
	StatusReleased,
	StatusDeprioritized,
}

// IsBlocked reports whether s is one of the blocked variants.
func (s Status) IsBlocked() bool {
	return strings.HasPrefix(string(s), "Blocked")
}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

var AllPriorities = []Priority{PriorityP1, PriorityP2, PriorityP3}

type Tag string

const (
	TagBug         Tag = "bug"
	TagFeature     Tag = "feature"
	TagEnhancement Tag = "enhancement"
	TagPerformance Tag = "performance"
	TagInfra       Tag = "infra"
)

var AllTags = []Tag{TagBug, TagFeature, TagEnhancement, TagPerformance, TagInfra}

type Team string

const (
	TeamBackend  Team = "Backend"
	TeamFrontend Team = "Frontend"
	TeamInfra    Team = "Infra"
)

var AllTeams = []Team{TeamBackend, TeamFrontend, TeamInfra}

type Sprint string

const (
	Sprint1 Sprint = "Sprint 1"
	Sprint2 Sprint = "Sprint 2"
	Sprint3 Sprint = "Sprint 3"
)

var AllSprints = []Sprint{Sprint1, Sprint2, Sprint3}

type Developer string

const (
	DevUnni  Developer = "Unni"
	DevVirat Developer = "Virat"
	DevSSR   Developer = "SSR"
	DevRam   Developer = "Ram"
	DevYukt  Developer = "Yukt"
)

var AllDevelopers = []Developer{DevUnni, DevVirat, DevSSR, DevRam, DevYukt}

// TransitionEvent is one entry of a ticket's event log.
type TransitionEvent struct {
	Status    Status
	Timestamp time.Time
	User      Developer
	// BlockedBy is set only on blocked entries.
	BlockedBy Developer
}

// TicketRecord is one synthesized fixture row.
type TicketRecord struct {
	ID          int
	Title       string
	Description string
	Status      Status
	Priority    Priority
	Tag         Tag
	Sprint      Sprint
	Team        Team
	Owner       Developer
	Assignee    Developer
	Reporter    Developer

	CreatedOn time.Time
	// ClosedOn is zero unless Status is Released.
	ClosedOn time.Time

	Blocked      bool
	BlockedBy    Developer
	BlockedSince time.Time
	UnblockedAt  time.Time

	TimeInDevelopmentHours             int
	TimeInTechQCHours                  int
	TimeInBusinessQCHours              int
	TimeInSprintBacklogHours           int
	TimeInBlockedForClarificationHours int
	TotalCycleTimeHours                int

	CodeReviewCount int
	RevisionCount   int
	ReleaseVersion  string

	EventLog []TransitionEvent
}

// CycleTimeParts returns the five duration fields that make up TotalCycleTimeHours.
func (r TicketRecord) CycleTimeParts() [5]int {
	return [5]int{
		r.TimeInDevelopmentHours,
		r.TimeInTechQCHours,
		r.TimeInBusinessQCHours,
		r.TimeInSprintBacklogHours,
		r.TimeInBlockedForClarificationHours,
	}
}

// Run describes a stored, generated dataset.
type Run struct {
	ID        string `json:"id"`
	Seed      int64  `json:"seed"`
	Count     int    `json:"count"`
	Reference string `json:"reference"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
