package events

import (
	"context"
	"database/sql"
	"fmt"

	"ticketfixture/internal/domain"
)

// Writer persists ticket event logs, one row per transition.
type Writer struct {
	DB *sql.DB
}

// Append records a single transition at position seq of a ticket's log.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, runID string, ticketID, seq int, evt domain.TransitionEvent) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO ticket_events(run_id,ticket_id,seq,status,ts,actor,blocked_by) VALUES (?,?,?,?,?,?,?)`,
		runID, ticketID, seq, string(evt.Status), domain.FormatTime(evt.Timestamp), string(evt.User), nullable(string(evt.BlockedBy)))
	if err != nil {
		return fmt.Errorf("append event %d for ticket %d: %w", seq, ticketID, err)
	}
	return nil
}

// AppendLog records every entry of rec's event log in order.
func (w Writer) AppendLog(ctx context.Context, tx *sql.Tx, runID string, rec domain.TicketRecord) error {
	for seq, evt := range rec.EventLog {
		if err := w.Append(ctx, tx, runID, rec.ID, seq, evt); err != nil {
			return err
		}
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
