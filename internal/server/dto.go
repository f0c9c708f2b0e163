package server

import (
	"ticketfixture/internal/domain"
	"ticketfixture/internal/stats"
)

// Request payloads

type CreateRunRequest struct {
	Seed      *int64 `json:"seed,omitempty"`
	Count     *int   `json:"count,omitempty" maximum:"10000"`
	Reference string `json:"reference,omitempty" example:"2024-06-01T10:00:00"`
}

// Response payloads

type RunResponse domain.Run

type StatsResponse stats.Summary

type EventResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
	BlockedBy string `json:"blockedBy,omitempty"`
}

type TicketResponse struct {
	ID                                 int             `json:"id"`
	Title                              string          `json:"title"`
	Description                        string          `json:"description"`
	Status                             string          `json:"status"`
	CreatedOn                          string          `json:"createdOn"`
	ClosedOn                           string          `json:"closedOn"`
	Sprint                             string          `json:"sprint"`
	Team                               string          `json:"team"`
	Owner                              string          `json:"owner"`
	Assignee                           string          `json:"assignee"`
	Reporter                           string          `json:"reporter"`
	Blocked                            bool            `json:"blocked"`
	BlockedBy                          string          `json:"blockedBy"`
	BlockedSince                       string          `json:"blockedSince"`
	UnblockedAt                        string          `json:"unblockedAt"`
	EventLog                           []EventResponse `json:"eventLog"`
	TimeInDevelopmentHours             int             `json:"timeInDevelopmentHours"`
	TimeInTechQCHours                  int             `json:"timeInTechQCHours"`
	TimeInBusinessQCHours              int             `json:"timeInBusinessQCHours"`
	TimeInSprintBacklogHours           int             `json:"timeInSprintBacklogHours"`
	TimeInBlockedForClarificationHours int             `json:"timeInBlockedforClarificationHours"`
	TotalCycleTimeHours                int             `json:"totalCycleTimeHours"`
	Priority                           string          `json:"priority"`
	Tags                               string          `json:"tags"`
	CodeReviewCount                    int             `json:"codeReviewCount"`
	RevisionCount                      int             `json:"revisionCount"`
	ReleaseVersion                     string          `json:"releaseVersion"`
}

func ticketResponse(t domain.TicketRecord) TicketResponse {
	return TicketResponse{
		ID:                                 t.ID,
		Title:                              t.Title,
		Description:                        t.Description,
		Status:                             string(t.Status),
		CreatedOn:                          domain.FormatTime(t.CreatedOn),
		ClosedOn:                           domain.FormatTime(t.ClosedOn),
		Sprint:                             string(t.Sprint),
		Team:                               string(t.Team),
		Owner:                              string(t.Owner),
		Assignee:                           string(t.Assignee),
		Reporter:                           string(t.Reporter),
		Blocked:                            t.Blocked,
		BlockedBy:                          string(t.BlockedBy),
		BlockedSince:                       domain.FormatTime(t.BlockedSince),
		UnblockedAt:                        domain.FormatTime(t.UnblockedAt),
		EventLog:                           mapEvents(t.EventLog),
		TimeInDevelopmentHours:             t.TimeInDevelopmentHours,
		TimeInTechQCHours:                  t.TimeInTechQCHours,
		TimeInBusinessQCHours:              t.TimeInBusinessQCHours,
		TimeInSprintBacklogHours:           t.TimeInSprintBacklogHours,
		TimeInBlockedForClarificationHours: t.TimeInBlockedForClarificationHours,
		TotalCycleTimeHours:                t.TotalCycleTimeHours,
		Priority:                           string(t.Priority),
		Tags:                               string(t.Tag),
		CodeReviewCount:                    t.CodeReviewCount,
		RevisionCount:                      t.RevisionCount,
		ReleaseVersion:                     t.ReleaseVersion,
	}
}

func eventResponse(e domain.TransitionEvent) EventResponse {
	return EventResponse{
		Status:    string(e.Status),
		Timestamp: domain.FormatTime(e.Timestamp),
		User:      string(e.User),
		BlockedBy: string(e.BlockedBy),
	}
}

func mapTickets(items []domain.TicketRecord) []TicketResponse {
	out := make([]TicketResponse, 0, len(items))
	for _, t := range items {
		out = append(out, ticketResponse(t))
	}
	return out
}

func mapEvents(items []domain.TransitionEvent) []EventResponse {
	out := make([]EventResponse, 0, len(items))
	for _, e := range items {
		out = append(out, eventResponse(e))
	}
	return out
}

func mapRuns(items []domain.Run) []RunResponse {
	out := make([]RunResponse, 0, len(items))
	for _, r := range items {
		out = append(out, RunResponse(r))
	}
	return out
}
