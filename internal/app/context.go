package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ticketfixture/internal/config"
	"ticketfixture/internal/db"
	"ticketfixture/internal/engine"
	"ticketfixture/internal/logging"
	"ticketfixture/internal/migrate"
)

// Overrides carry command-line and environment values that win over tf.yml.
// Nil pointers and empty strings leave the file value untouched.
type Overrides struct {
	Count     *int
	Seed      *int64
	Reference string
	Output    string
	LogLevel  string
	LogFormat string
}

// ResolveConfig loads tf.yml from the workspace, falling back to defaults,
// then applies overrides and validates the result.
func ResolveConfig(workspace string, o Overrides) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", config.Path(workspace), err)
	}
	if o.Count != nil {
		cfg.Generator.Count = *o.Count
	}
	if o.Seed != nil {
		cfg.Generator.Seed = *o.Seed
	}
	if v := strings.TrimSpace(o.Reference); v != "" {
		cfg.Generator.Reference = v
	}
	if v := strings.TrimSpace(o.Output); v != "" {
		cfg.Generator.Output = v
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(o.LogFormat); v != "" {
		cfg.Logging.Format = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger builds the CLI logger from the logging section.
func NewLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
}

// OpenEngine opens and migrates the workspace database and returns an engine
// bound to it. The returned func closes the database.
func OpenEngine(ctx context.Context, workspace string, cfg *config.Config, logger *slog.Logger) (engine.Engine, func() error, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return engine.Engine{}, nil, fmt.Errorf("open workspace db: %w", err)
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return engine.Engine{}, nil, fmt.Errorf("migrate: %w", err)
	}
	e := engine.New(conn, cfg)
	if logger != nil {
		e.Logger = logger
	}
	return e, conn.Close, nil
}

// MemoryEngine returns an engine with no database, for commands that only generate.
func MemoryEngine(cfg *config.Config, logger *slog.Logger) engine.Engine {
	e := engine.New(nil, cfg)
	if logger != nil {
		e.Logger = logger
	}
	return e
}
