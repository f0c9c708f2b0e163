package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"ticketfixture/internal/domain"
)

// DefaultPath is where the fixture is written relative to the working directory.
const DefaultPath = "public/ticket.csv"

// Header is the fixed column order of the fixture file.
var Header = []string{
	"id", "title", "description", "status", "createdOn", "closedOn", "sprint", "team", "owner", "assignee", "reporter",
	"blocked", "blockedBy", "Blocked_Since", "Unblocked_At", "Event_Log", "timeInDevelopmentHours", "timeInTechQCHours",
	"timeInBusinessQCHours", "timeInSprintBacklogHours", "timeInBlockedforClarificationHours", "totalCycleTimeHours",
	"priority", "tags", "codeReviewCount", "revisionCount", "releaseVersion",
}

// Row flattens rec into Header order.
func Row(rec domain.TicketRecord) ([]string, error) {
	eventLog, err := domain.EncodeEventLog(rec.EventLog)
	if err != nil {
		return nil, fmt.Errorf("ticket %d: %w", rec.ID, err)
	}
	blocked := "FALSE"
	if rec.Blocked {
		blocked = "TRUE"
	}
	return []string{
		strconv.Itoa(rec.ID),
		rec.Title,
		rec.Description,
		string(rec.Status),
		domain.FormatTime(rec.CreatedOn),
		domain.FormatTime(rec.ClosedOn),
		string(rec.Sprint),
		string(rec.Team),
		string(rec.Owner),
		string(rec.Assignee),
		string(rec.Reporter),
		blocked,
		string(rec.BlockedBy),
		domain.FormatTime(rec.BlockedSince),
		domain.FormatTime(rec.UnblockedAt),
		eventLog,
		strconv.Itoa(rec.TimeInDevelopmentHours),
		strconv.Itoa(rec.TimeInTechQCHours),
		strconv.Itoa(rec.TimeInBusinessQCHours),
		strconv.Itoa(rec.TimeInSprintBacklogHours),
		strconv.Itoa(rec.TimeInBlockedForClarificationHours),
		strconv.Itoa(rec.TotalCycleTimeHours),
		string(rec.Priority),
		string(rec.Tag),
		strconv.Itoa(rec.CodeReviewCount),
		strconv.Itoa(rec.RevisionCount),
		rec.ReleaseVersion,
	}, nil
}

// Rows flattens all records, preserving their order.
func Rows(records []domain.TicketRecord) ([][]string, error) {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row, err := Row(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Write emits the header followed by one row per record.
func Write(w io.Writer, records []domain.TicketRecord) error {
	rows, err := Rows(records)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// WriteFile creates or truncates path and writes the fixture to it. The parent
// directory must already exist; a failure mid-write leaves a truncated file.
func WriteFile(path string, records []domain.TicketRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	if err := Write(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
