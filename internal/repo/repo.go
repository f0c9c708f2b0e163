package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ticketfixture/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const ticketColumns = `id,title,description,status,priority,tag,sprint,team,owner,assignee,reporter,
created_on,COALESCE(closed_on,''),blocked,COALESCE(blocked_by,''),COALESCE(blocked_since,''),COALESCE(unblocked_at,''),
hours_development,hours_tech_qc,hours_business_qc,hours_backlog,hours_blocked,hours_total,
code_review_count,revision_count,release_version`

func (r Repo) InsertRunTx(ctx context.Context, tx *sql.Tx, run domain.Run) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO runs(id,seed,count,reference,created_at) VALUES (?,?,?,?,?)`,
		run.ID, run.Seed, run.Count, run.Reference, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r Repo) InsertTicketTx(ctx context.Context, tx *sql.Tx, runID string, t domain.TicketRecord) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tickets(run_id,id,title,description,status,priority,tag,sprint,team,owner,assignee,reporter,
created_on,closed_on,blocked,blocked_by,blocked_since,unblocked_at,
hours_development,hours_tech_qc,hours_business_qc,hours_backlog,hours_blocked,hours_total,
code_review_count,revision_count,release_version) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		runID, t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), string(t.Tag), string(t.Sprint), string(t.Team),
		string(t.Owner), string(t.Assignee), string(t.Reporter),
		domain.FormatTime(t.CreatedOn), nullableTime(t.ClosedOn), boolToInt(t.Blocked), nullable(string(t.BlockedBy)),
		nullableTime(t.BlockedSince), nullableTime(t.UnblockedAt),
		t.TimeInDevelopmentHours, t.TimeInTechQCHours, t.TimeInBusinessQCHours, t.TimeInSprintBacklogHours,
		t.TimeInBlockedForClarificationHours, t.TotalCycleTimeHours,
		t.CodeReviewCount, t.RevisionCount, t.ReleaseVersion)
	if err != nil {
		return fmt.Errorf("insert ticket %d: %w", t.ID, err)
	}
	return nil
}

func (r Repo) GetRun(ctx context.Context, id string) (domain.Run, error) {
	var run domain.Run
	err := r.DB.QueryRowContext(ctx, `SELECT id,seed,count,reference,created_at FROM runs WHERE id=?`, id).
		Scan(&run.ID, &run.Seed, &run.Count, &run.Reference, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return run, ErrNotFound
	}
	return run, err
}

// ListRuns returns runs newest first. A non-positive limit returns all runs.
func (r Repo) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	query := `SELECT id,seed,count,reference,created_at FROM runs ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Run
	for rows.Next() {
		var run domain.Run
		if err := rows.Scan(&run.ID, &run.Seed, &run.Count, &run.Reference, &run.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, rows.Err()
}

func (r Repo) DeleteRun(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM runs WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTickets returns the tickets of a run in id order, event logs included.
func (r Repo) ListTickets(ctx context.Context, runID string) ([]domain.TicketRecord, error) {
	if _, err := r.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE run_id=? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TicketRecord
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logs, err := r.eventsByTicket(ctx, runID)
	if err != nil {
		return nil, err
	}
	for i := range res {
		res[i].EventLog = logs[res[i].ID]
	}
	return res, nil
}

func (r Repo) GetTicket(ctx context.Context, runID string, id int) (domain.TicketRecord, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE run_id=? AND id=?`, runID, id)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.EventLog, err = r.ListTicketEvents(ctx, runID, id)
	return t, err
}

// ListTicketEvents returns one ticket's event log in recorded order.
func (r Repo) ListTicketEvents(ctx context.Context, runID string, ticketID int) ([]domain.TransitionEvent, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT ticket_id,status,ts,actor,COALESCE(blocked_by,'') FROM ticket_events
WHERE run_id=? AND ticket_id=? ORDER BY seq`, runID, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TransitionEvent
	for rows.Next() {
		_, evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

func (r Repo) eventsByTicket(ctx context.Context, runID string) (map[int][]domain.TransitionEvent, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT ticket_id,status,ts,actor,COALESCE(blocked_by,'') FROM ticket_events
WHERE run_id=? ORDER BY ticket_id, seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[int][]domain.TransitionEvent{}
	for rows.Next() {
		ticketID, evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res[ticketID] = append(res[ticketID], evt)
	}
	return res, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTicket(s scanner) (domain.TicketRecord, error) {
	var (
		t                                            domain.TicketRecord
		status, priority, tag, sprint, team          string
		owner, assignee, reporter, blockedBy         string
		createdOn, closedOn, blockedSince, unblocked string
		blocked                                      int
	)
	err := s.Scan(&t.ID, &t.Title, &t.Description, &status, &priority, &tag, &sprint, &team, &owner, &assignee, &reporter,
		&createdOn, &closedOn, &blocked, &blockedBy, &blockedSince, &unblocked,
		&t.TimeInDevelopmentHours, &t.TimeInTechQCHours, &t.TimeInBusinessQCHours, &t.TimeInSprintBacklogHours,
		&t.TimeInBlockedForClarificationHours, &t.TotalCycleTimeHours,
		&t.CodeReviewCount, &t.RevisionCount, &t.ReleaseVersion)
	if err != nil {
		return t, err
	}
	t.Status = domain.Status(status)
	t.Priority = domain.Priority(priority)
	t.Tag = domain.Tag(tag)
	t.Sprint = domain.Sprint(sprint)
	t.Team = domain.Team(team)
	t.Owner = domain.Developer(owner)
	t.Assignee = domain.Developer(assignee)
	t.Reporter = domain.Developer(reporter)
	t.BlockedBy = domain.Developer(blockedBy)
	t.Blocked = blocked != 0
	for _, f := range []struct {
		dst *time.Time
		src string
	}{
		{&t.CreatedOn, createdOn},
		{&t.ClosedOn, closedOn},
		{&t.BlockedSince, blockedSince},
		{&t.UnblockedAt, unblocked},
	} {
		if f.src == "" {
			continue
		}
		parsed, err := domain.ParseTime(f.src)
		if err != nil {
			return t, fmt.Errorf("ticket %d: %w", t.ID, err)
		}
		*f.dst = parsed
	}
	return t, nil
}

func scanEvent(s scanner) (int, domain.TransitionEvent, error) {
	var (
		ticketID                    int
		status, ts, user, blockedBy string
	)
	if err := s.Scan(&ticketID, &status, &ts, &user, &blockedBy); err != nil {
		return 0, domain.TransitionEvent{}, err
	}
	parsed, err := domain.ParseTime(ts)
	if err != nil {
		return 0, domain.TransitionEvent{}, fmt.Errorf("event for ticket %d: %w", ticketID, err)
	}
	return ticketID, domain.TransitionEvent{
		Status:    domain.Status(status),
		Timestamp: parsed,
		User:      domain.Developer(user),
		BlockedBy: domain.Developer(blockedBy),
	}, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableTime(t time.Time) any {
	return nullable(domain.FormatTime(t))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
