package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/TrendPulse/internal/config"
	"github.com/IshaanNene/TrendPulse/internal/observability"
	"github.com/IshaanNene/TrendPulse/internal/scoring"
	"github.com/IshaanNene/TrendPulse/internal/storage"
	"github.com/IshaanNene/TrendPulse/internal/store"
)

var (
	scoreWindow time.Duration
	scoreLimit  int
	scoreDryRun bool
	scoreDSN    string
)

func addScoreFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&scoreWindow, "window", 0, "only score news published within this window (0 = no window)")
	cmd.Flags().IntVar(&scoreLimit, "limit", 0, "only score the N most recent news records by id (0 = no limit)")
	cmd.Flags().BoolVar(&scoreDryRun, "dry-run", false, "compute updates and roll them back")
	cmd.Flags().StringVar(&scoreDSN, "dsn", "", "postgres connection string (default DATABASE_URL)")
}

// applyScoreFlags overrides the configured scope only for flags the user set,
// so --limit alone keeps the configured window.
func applyScoreFlags(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		if cmd.Flags().Changed("window") {
			cfg.Scoring.Window = scoreWindow
		}
		if cmd.Flags().Changed("limit") {
			cfg.Scoring.Limit = scoreLimit
		}
		if scoreDSN != "" {
			cfg.Database.DSN = scoreDSN
		}
	}
}

// scoreCmd creates the "score" subcommand.
func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score [snapshot]",
		Short: "Apply a keyword snapshot to the news archive",
		Long: `Reads the keyword snapshot (default storage.snapshot_path) and boosts the
popularity of every news record in scope that mentions a keyword. The whole
run is a single transaction.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(applyScoreFlags(cmd))
			if err != nil {
				return err
			}
			path := cfg.Storage.SnapshotPath
			if len(args) == 1 {
				path = args[0]
			}

			ctx, stop := signalContext()
			defer stop()

			metrics := observability.NewMetrics(logger)
			defer startMetrics(cfg, logger, metrics)()

			rep, err := runScore(ctx, cfg, logger, metrics, path)
			if err != nil {
				return err
			}
			printReport(rep)
			return nil
		},
	}
	addScoreFlags(cmd)
	return cmd
}

// runScore opens the news store for the duration of one scoring run.
func runScore(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, path string) (*scoring.Report, error) {
	st, err := store.NewPostgresStore(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	eng := scoring.NewEngine(st, scoring.NewWeights(&cfg.Scoring), logger,
		scoring.WithDryRun(scoreDryRun),
		scoring.WithMetrics(metrics),
		scoring.WithDefaults(storage.SnapshotDefaults{
			Category: cfg.Scoring.DefaultCategory,
			Rank:     cfg.Scoring.DefaultRank,
		}),
	)
	return eng.UpdatePopularity(ctx, path, scoring.ScopeFromConfig(&cfg.Scoring))
}

func printReport(rep *scoring.Report) {
	status := "committed"
	if rep.DryRun {
		status = "dry run, rolled back"
	}
	fmt.Printf("\n✅ Scoring complete in %s (%s)\n", rep.Duration.Round(time.Millisecond), status)
	fmt.Printf("   Run:       %s\n", rep.RunID)
	fmt.Printf("   Snapshot:  %s (%d records)\n", rep.Snapshot, rep.Records)
	fmt.Printf("   Scope:     %s\n", rep.Scope)
	fmt.Printf("   Keywords:  %d queried, %d skipped\n", rep.Keywords, len(rep.Skipped))
	fmt.Printf("   Updates:   %d across %d news records (+%.2f popularity)\n", len(rep.Updates), rep.Touched(), rep.TotalIncrement())
}

// runCmd creates the "run" subcommand: harvest followed by score.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Harvest trending keywords, then score the news archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scoreFlags := applyScoreFlags(cmd)
			cfg, logger, err := loadConfig(func(cfg *config.Config) {
				applyHarvestFlags(cfg)
				scoreFlags(cfg)
			})
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			metrics := observability.NewMetrics(logger)
			defer startMetrics(cfg, logger, metrics)()

			res, err := runHarvest(ctx, cfg, logger, metrics)
			if res != nil {
				printHarvest(res, cfg.Storage.SnapshotPath)
			}
			if err != nil {
				return err
			}

			rep, err := runScore(ctx, cfg, logger, metrics, cfg.Storage.SnapshotPath)
			if err != nil {
				return err
			}
			printReport(rep)
			return nil
		},
	}
	addHarvestFlags(cmd)
	addScoreFlags(cmd)
	return cmd
}
