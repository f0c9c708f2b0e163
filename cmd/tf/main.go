package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ticketfixture/internal/app"
	"ticketfixture/internal/config"
	"ticketfixture/internal/domain"
	"ticketfixture/internal/engine"
	"ticketfixture/internal/server"
	"ticketfixture/internal/stats"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	viper.Reset()
	root := &cobra.Command{
		Use:   "tf",
		Short: "Ticket fixture generator",
		Long: `tf generates a deterministic CSV of synthetic project-management tickets
for dashboard development and testing.
- Same seed, count and reference always produce the same file.
- Workspace: the directory holding tf.yml (optional) and .tf/fixtures.db (stored runs).
- Runs: generated datasets recorded in the workspace, re-exportable byte for byte.
- Event log: each ticket's status history, embedded as JSON in the CSV.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	initConfig()
	addPersistentFlags(root)
	root.AddCommand(generateCmd())
	root.AddCommand(previewCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(configCmd())
	root.AddCommand(runsCmd())
	root.AddCommand(serveCmd())
	return root
}

func initConfig() {
	viper.SetEnvPrefix("TF")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	root.PersistentFlags().Bool("json", false, "output JSON")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (json, text)")
	_ = viper.BindPFlag("workspace", root.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", root.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-format", root.PersistentFlags().Lookup("log-format"))
}

func addGeneratorFlags(cmd *cobra.Command) {
	cmd.Flags().Int("count", 0, "number of tickets (default from tf.yml, else 100)")
	cmd.Flags().Int64("seed", 0, "random seed (default from tf.yml, else 42)")
	cmd.Flags().String("reference", "", "reference instant, 2006-01-02T15:04:05 (default 2024-06-01T10:00:00)")
}

func generateCmd() *cobra.Command {
	var store bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the ticket fixture CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			opts, err := cfg.GeneratorOptions()
			if err != nil {
				return err
			}
			out := cfg.Generator.Output
			e := app.MemoryEngine(cfg, logger)
			records, err := e.WriteFixture(opts, out)
			if err != nil {
				return err
			}
			result := struct {
				Output  string      `json:"output"`
				Tickets int         `json:"tickets"`
				Seed    int64       `json:"seed"`
				Run     *domain.Run `json:"run,omitempty"`
			}{Output: out, Tickets: len(records), Seed: opts.Seed}
			if store {
				err := withEngine(cmd.Context(), cfg, logger, func(ctx context.Context, e engine.Engine) error {
					run, _, err := e.CreateRun(ctx, opts)
					if err != nil {
						return err
					}
					result.Run = &run
					return nil
				})
				if err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			if viper.GetBool("json") {
				return printJSON(w, result)
			}
			fmt.Fprintf(w, "wrote %d tickets to %s (seed %d)\n", result.Tickets, result.Output, result.Seed)
			if result.Run != nil {
				fmt.Fprintf(w, "stored run %s\n", result.Run.ID)
			}
			return nil
		},
	}
	addGeneratorFlags(cmd)
	cmd.Flags().String("out", "", "output path (default from tf.yml, else public/ticket.csv)")
	cmd.Flags().BoolVar(&store, "store", false, "also record the run in the workspace database")
	return cmd
}

func previewCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the first generated tickets without writing a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			opts, err := cfg.GeneratorOptions()
			if err != nil {
				return err
			}
			records, err := app.MemoryEngine(cfg, logger).Generate(opts)
			if err != nil {
				return err
			}
			if limit > 0 && limit < len(records) {
				records = records[:limit]
			}
			w := cmd.OutOrStdout()
			if viper.GetBool("json") {
				return printJSON(w, records)
			}
			printTickets(w, records)
			return nil
		},
	}
	addGeneratorFlags(cmd)
	cmd.Flags().IntVar(&limit, "limit", 10, "rows to show (0 for all)")
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize a generated dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			opts, err := cfg.GeneratorOptions()
			if err != nil {
				return err
			}
			e := app.MemoryEngine(cfg, logger)
			records, err := e.Generate(opts)
			if err != nil {
				return err
			}
			summary := e.Summarize(records)
			w := cmd.OutOrStdout()
			if viper.GetBool("json") {
				return printJSON(w, summary)
			}
			printSummary(w, summary)
			return nil
		},
	}
	addGeneratorFlags(cmd)
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage the workspace tf.yml",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default tf.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if viper.GetBool("json") {
				return printJSON(w, cfg)
			}
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
	return cmd
}

func runsCmd() *cobra.Command {
	runs := &cobra.Command{
		Use:   "runs",
		Short: "Manage stored runs",
	}
	runs.AddCommand(runsListCmd())
	runs.AddCommand(runsShowCmd())
	runs.AddCommand(runsExportCmd())
	runs.AddCommand(runsDeleteCmd())
	return runs
}

func runsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspaceEngine(cmd, func(ctx context.Context, e engine.Engine) error {
				runs, err := e.Repo.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if viper.GetBool("json") {
					return printJSON(w, runs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(w)
				tw.AppendHeader(table.Row{"ID", "Seed", "Count", "Reference", "Created"})
				for _, r := range runs {
					tw.AppendRow(table.Row{r.ID, r.Seed, r.Count, r.Reference, r.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs")
	return cmd
}

func runsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a stored run and its status breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspaceEngine(cmd, func(ctx context.Context, e engine.Engine) error {
				run, err := e.Repo.GetRun(ctx, args[0])
				if err != nil {
					return fmt.Errorf("run %s: %w", args[0], err)
				}
				records, err := e.RunTickets(ctx, run.ID)
				if err != nil {
					return err
				}
				summary := e.Summarize(records)
				w := cmd.OutOrStdout()
				if viper.GetBool("json") {
					return printJSON(w, struct {
						Run     domain.Run    `json:"run"`
						Summary stats.Summary `json:"summary"`
					}{run, summary})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(w)
				tw.AppendRows([]table.Row{
					{"ID", run.ID},
					{"Seed", run.Seed},
					{"Count", run.Count},
					{"Reference", run.Reference},
					{"Created", run.CreatedAt},
				})
				tw.Render()
				printCounts(w, "Status", summary.ByStatus)
				return nil
			})
		},
	}
	return cmd
}

func runsExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Write a stored run as a fixture CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(out) == "" {
				return fmt.Errorf("--out required")
			}
			return withWorkspaceEngine(cmd, func(ctx context.Context, e engine.Engine) error {
				if err := e.ExportRun(ctx, args[0], out); err != nil {
					return fmt.Errorf("run %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported run %s to %s\n", args[0], out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output path")
	return cmd
}

func runsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run with its tickets and events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspaceEngine(cmd, func(ctx context.Context, e engine.Engine) error {
				if err := e.Repo.DeleteRun(ctx, args[0]); err != nil {
					return fmt.Errorf("run %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted run %s\n", args[0])
				return nil
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			return withEngine(cmd.Context(), cfg, logger, func(ctx context.Context, e engine.Engine) error {
				authCfg := server.AuthConfig{JWTSecret: viper.GetString("jwt-secret")}
				handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg, Logger: logger})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				logger.Info("serving api", "addr", addr, "base_path", basePath, "auth", authCfg.JWTSecret != "")
				fmt.Fprintf(cmd.OutOrStdout(), "Serving Ticket Fixture API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from tf.yml)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from tf.yml)")
	return cmd
}

// --- helpers ---

// loadConfig resolves tf.yml plus flag and TF_* env overrides for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	for _, name := range []string{"count", "seed", "reference", "out"} {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = viper.BindPFlag(name, f)
		}
	}
	o := app.Overrides{
		Reference: viper.GetString("reference"),
		Output:    viper.GetString("out"),
		LogLevel:  viper.GetString("log-level"),
		LogFormat: viper.GetString("log-format"),
	}
	if viper.IsSet("count") {
		count := viper.GetInt("count")
		o.Count = &count
	}
	if viper.IsSet("seed") {
		seed := viper.GetInt64("seed")
		o.Seed = &seed
	}
	cfg, err := app.ResolveConfig(viper.GetString("workspace"), o)
	if err != nil {
		return nil, nil, err
	}
	logger, err := app.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func withWorkspaceEngine(cmd *cobra.Command, fn func(context.Context, engine.Engine) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return withEngine(cmd.Context(), cfg, logger, fn)
}

func withEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, fn func(context.Context, engine.Engine) error) error {
	e, closeDB, err := app.OpenEngine(ctx, viper.GetString("workspace"), cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()
	return fn(ctx, e)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTickets(w io.Writer, records []domain.TicketRecord) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Status", "Owner", "Assignee", "Team", "Sprint", "Priority", "Blocked", "Created", "Cycle (h)", "Events"})
	for _, r := range records {
		blocked := ""
		if r.Blocked {
			blocked = "by " + string(r.BlockedBy)
		}
		tw.AppendRow(table.Row{r.ID, r.Status, r.Owner, r.Assignee, r.Team, r.Sprint, r.Priority, blocked, domain.FormatTime(r.CreatedOn), r.TotalCycleTimeHours, len(r.EventLog)})
	}
	tw.Render()
}

func printCounts(w io.Writer, title string, counts []stats.Count) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{title, "Tickets"})
	for _, c := range counts {
		tw.AppendRow(table.Row{c.Key, c.Count})
	}
	tw.Render()
}

func printSummary(w io.Writer, s stats.Summary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendRows([]table.Row{
		{"Tickets", s.Tickets},
		{"Blocked", s.Blocked},
		{"Released", s.Released},
		{"Longest cycle", fmt.Sprintf("ticket %d (%dh)", s.LongestCycleID, s.LongestCycleTime)},
	})
	tw.Render()

	printCounts(w, "Status", s.ByStatus)
	printCounts(w, "Priority", s.ByPriority)

	tw = table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Sprint", "Tickets", "Blocked", "Blocked %"})
	for _, sb := range s.SprintBlocked {
		tw.AppendRow(table.Row{sb.Sprint, sb.Tickets, sb.Blocked, fmt.Sprintf("%.1f", sb.BlockedPercent)})
	}
	tw.Render()

	tw = table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Team", "Tickets", "Avg cycle (h)"})
	for _, tc := range s.TeamCycleTime {
		tw.AppendRow(table.Row{tc.Team, tc.Tickets, fmt.Sprintf("%.1f", tc.AverageCycleTime)})
	}
	tw.Render()

	tw = table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Developer", "Owned", "Assigned", "Reported", "Blocking"})
	for _, d := range s.Developers {
		tw.AppendRow(table.Row{d.Developer, d.Owned, d.Assigned, d.Reported, d.Blocking})
	}
	tw.Render()
}
