package events

import (
	"context"
	"testing"
	"time"

	"ticketfixture/internal/db"
	"ticketfixture/internal/domain"
	"ticketfixture/internal/migrate"
)

func TestAppendLog(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	created := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)
	rec := domain.TicketRecord{
		ID: 1, Title: "Ticket 1", Description: "Description for ticket 1",
		Status: domain.StatusBlocked, Priority: domain.PriorityP1, Tag: domain.TagInfra,
		Sprint: domain.Sprint1, Team: domain.TeamInfra,
		Owner: domain.DevVirat, Assignee: domain.DevVirat, Reporter: domain.DevRam,
		CreatedOn: created, ReleaseVersion: "1.0.0",
		EventLog: []domain.TransitionEvent{
			{Status: domain.StatusInDevelopment, Timestamp: created, User: domain.DevVirat},
			{Status: domain.StatusBlocked, Timestamp: created.Add(6 * time.Hour), User: domain.DevRam, BlockedBy: domain.DevRam},
		},
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs(id,seed,count,reference,created_at) VALUES ('r',1,1,'2024-06-01T10:00:00','2024-07-01T00:00:00Z')`); err != nil {
		t.Fatal(err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO tickets(run_id,id,title,description,status,priority,tag,sprint,team,owner,assignee,reporter,
created_on,hours_development,hours_tech_qc,hours_business_qc,hours_backlog,hours_blocked,hours_total,code_review_count,revision_count,release_version)
VALUES ('r',1,'t','d','Blocked','P1','infra','Sprint 1','Infra','Virat','Virat','Ram','2024-06-02T09:00:00',5,0,0,0,0,5,0,0,'1.0.0')`); err != nil {
		t.Fatal(err)
	}
	w := Writer{DB: conn}
	if err := w.AppendLog(ctx, tx, "r", rec); err != nil {
		t.Fatalf("append log: %v", err)
	}
	if err := w.Append(ctx, tx, "r", 1, 1, rec.EventLog[1]); err == nil {
		t.Fatalf("expected duplicate seq to fail")
	}
	var n int
	var blockedBy string
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM ticket_events WHERE run_id='r'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(blocked_by,'') FROM ticket_events WHERE run_id='r' AND seq=1`).Scan(&blockedBy); err != nil {
		t.Fatal(err)
	}
	if n != 2 || blockedBy != "Ram" {
		t.Fatalf("unexpected rows: n=%d blockedBy=%q", n, blockedBy)
	}
}
