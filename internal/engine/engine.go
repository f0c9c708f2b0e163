package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"ticketfixture/internal/clock"
	"ticketfixture/internal/config"
	"ticketfixture/internal/domain"
	"ticketfixture/internal/events"
	"ticketfixture/internal/export"
	"ticketfixture/internal/generator"
	"ticketfixture/internal/logging"
	"ticketfixture/internal/repo"
	"ticketfixture/internal/stats"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Clock  clock.Clock
	Logger *slog.Logger
}

// New builds an engine. db may be nil when only in-memory generation is needed.
func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Clock:  clock.NewSystem(),
		Logger: logging.Discard(),
	}
}

func (e Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logging.Discard()
}

func (e Engine) now() string {
	c := e.Clock
	if c == nil {
		c = clock.NewSystem()
	}
	return c.Now().Format("2006-01-02T15:04:05Z07:00")
}

// DefaultOptions returns the generator options from the engine config.
func (e Engine) DefaultOptions() (generator.Options, error) {
	return e.Config.GeneratorOptions()
}

// Generate builds a dataset in memory.
func (e Engine) Generate(opts generator.Options) ([]domain.TicketRecord, error) {
	records, err := generator.Generate(opts)
	if err != nil {
		return nil, err
	}
	e.logger().Debug("generated tickets", "count", len(records), "seed", opts.Seed, "reference", domain.FormatTime(opts.Reference))
	return records, nil
}

// WriteFixture generates a dataset and writes it to path.
func (e Engine) WriteFixture(opts generator.Options, path string) ([]domain.TicketRecord, error) {
	records, err := e.Generate(opts)
	if err != nil {
		return nil, err
	}
	if err := export.WriteFile(path, records); err != nil {
		return nil, err
	}
	e.logger().Info("wrote fixture", "path", path, "rows", len(records), "seed", opts.Seed)
	return records, nil
}

// CreateRun generates a dataset and stores it, with its event logs, as a new run.
func (e Engine) CreateRun(ctx context.Context, opts generator.Options) (domain.Run, []domain.TicketRecord, error) {
	if e.DB == nil {
		return domain.Run{}, nil, fmt.Errorf("workspace database not open")
	}
	records, err := e.Generate(opts)
	if err != nil {
		return domain.Run{}, nil, err
	}
	run := domain.Run{
		ID:        uuid.NewString(),
		Seed:      opts.Seed,
		Count:     opts.Count,
		Reference: domain.FormatTime(opts.Reference),
		CreatedAt: e.now(),
	}
	if err := e.StoreRun(ctx, run, records); err != nil {
		return domain.Run{}, nil, err
	}
	e.logger().Info("stored run", "run_id", run.ID, "count", run.Count, "seed", run.Seed)
	return run, records, nil
}

// StoreRun persists run and its records in one transaction.
func (e Engine) StoreRun(ctx context.Context, run domain.Run, records []domain.TicketRecord) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertRunTx(ctx, tx, run); err != nil {
		return err
	}
	for _, rec := range records {
		if err := e.Repo.InsertTicketTx(ctx, tx, run.ID, rec); err != nil {
			return err
		}
		if err := e.Events.AppendLog(ctx, tx, run.ID, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RunTickets loads a stored run's tickets in id order.
func (e Engine) RunTickets(ctx context.Context, runID string) ([]domain.TicketRecord, error) {
	return e.Repo.ListTickets(ctx, runID)
}

// ExportRun writes a stored run to path in the fixture format.
func (e Engine) ExportRun(ctx context.Context, runID, path string) error {
	records, err := e.RunTickets(ctx, runID)
	if err != nil {
		return err
	}
	if err := export.WriteFile(path, records); err != nil {
		return err
	}
	e.logger().Info("exported run", "run_id", runID, "path", path, "rows", len(records))
	return nil
}

// Summarize computes dashboard statistics for records.
func (e Engine) Summarize(records []domain.TicketRecord) stats.Summary {
	return stats.Summarize(records)
}
