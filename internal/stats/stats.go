// Package stats summarizes a generated dataset the way the ticket dashboard
// slices it: by status, team, sprint, priority and developer.
package stats

import (
	"sort"

	"ticketfixture/internal/domain"
)

type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type SprintBlocked struct {
	Sprint         string  `json:"sprint"`
	Tickets        int     `json:"tickets"`
	Blocked        int     `json:"blocked"`
	BlockedPercent float64 `json:"blocked_percent"`
}

type TeamCycleTime struct {
	Team             string  `json:"team"`
	Tickets          int     `json:"tickets"`
	AverageCycleTime float64 `json:"average_cycle_time_hours"`
}

type DeveloperLoad struct {
	Developer string `json:"developer"`
	Owned     int    `json:"owned"`
	Assigned  int    `json:"assigned"`
	Reported  int    `json:"reported"`
	Blocking  int    `json:"blocking"`
}

type Summary struct {
	Tickets          int             `json:"tickets"`
	Blocked          int             `json:"blocked"`
	Released         int             `json:"released"`
	ByStatus         []Count         `json:"by_status"`
	ByTeam           []Count         `json:"by_team"`
	BySprint         []Count         `json:"by_sprint"`
	ByPriority       []Count         `json:"by_priority"`
	SprintBlocked    []SprintBlocked `json:"sprint_blocked"`
	TeamCycleTime    []TeamCycleTime `json:"team_cycle_time"`
	Developers       []DeveloperLoad `json:"developers"`
	LongestCycleID   int             `json:"longest_cycle_ticket_id,omitempty"`
	LongestCycleTime int             `json:"longest_cycle_time_hours,omitempty"`
}

// Summarize computes a Summary. Enumerated keys always appear, in declaration
// order, even with a zero count.
func Summarize(records []domain.TicketRecord) Summary {
	s := Summary{Tickets: len(records)}

	status := map[string]int{}
	team := map[string]int{}
	sprint := map[string]int{}
	priority := map[string]int{}
	sprintBlocked := map[string]int{}
	teamCycle := map[string]int{}
	devs := map[domain.Developer]*DeveloperLoad{}
	for _, d := range domain.AllDevelopers {
		devs[d] = &DeveloperLoad{Developer: string(d)}
	}

	for _, rec := range records {
		status[string(rec.Status)]++
		team[string(rec.Team)]++
		sprint[string(rec.Sprint)]++
		priority[string(rec.Priority)]++
		teamCycle[string(rec.Team)] += rec.TotalCycleTimeHours
		if rec.Blocked {
			s.Blocked++
			sprintBlocked[string(rec.Sprint)]++
		}
		if rec.Status == domain.StatusReleased {
			s.Released++
		}
		if rec.TotalCycleTimeHours > s.LongestCycleTime {
			s.LongestCycleTime = rec.TotalCycleTimeHours
			s.LongestCycleID = rec.ID
		}
		load(devs, rec.Owner).Owned++
		load(devs, rec.Assignee).Assigned++
		load(devs, rec.Reporter).Reported++
		if rec.BlockedBy != "" {
			load(devs, rec.BlockedBy).Blocking++
		}
	}

	s.ByStatus = counts(keys(domain.AllStatuses), status)
	s.ByTeam = counts(keys(domain.AllTeams), team)
	s.BySprint = counts(keys(domain.AllSprints), sprint)
	s.ByPriority = counts(keys(domain.AllPriorities), priority)

	for _, sp := range domain.AllSprints {
		n := sprint[string(sp)]
		entry := SprintBlocked{Sprint: string(sp), Tickets: n, Blocked: sprintBlocked[string(sp)]}
		if n > 0 {
			entry.BlockedPercent = float64(entry.Blocked) * 100 / float64(n)
		}
		s.SprintBlocked = append(s.SprintBlocked, entry)
	}
	for _, tm := range domain.AllTeams {
		n := team[string(tm)]
		entry := TeamCycleTime{Team: string(tm), Tickets: n}
		if n > 0 {
			entry.AverageCycleTime = float64(teamCycle[string(tm)]) / float64(n)
		}
		s.TeamCycleTime = append(s.TeamCycleTime, entry)
	}
	for _, d := range domain.AllDevelopers {
		s.Developers = append(s.Developers, *devs[d])
	}
	sort.SliceStable(s.Developers, func(i, j int) bool {
		return s.Developers[i].Owned > s.Developers[j].Owned
	})
	return s
}

func load(devs map[domain.Developer]*DeveloperLoad, d domain.Developer) *DeveloperLoad {
	l, ok := devs[d]
	if !ok {
		l = &DeveloperLoad{Developer: string(d)}
		devs[d] = l
	}
	return l
}

func keys[T ~string](items []T) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = string(it)
	}
	return out
}

func counts(order []string, m map[string]int) []Count {
	out := make([]Count, 0, len(order))
	for _, k := range order {
		out = append(out, Count{Key: k, Count: m[k]})
	}
	return out
}
