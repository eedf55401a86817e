package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/TrendPulse/internal/config"
	"github.com/IshaanNene/TrendPulse/internal/extract"
	"github.com/IshaanNene/TrendPulse/internal/fetcher"
	"github.com/IshaanNene/TrendPulse/internal/harvest"
	"github.com/IshaanNene/TrendPulse/internal/observability"
	"github.com/IshaanNene/TrendPulse/internal/storage"
	"github.com/IshaanNene/TrendPulse/internal/types"
)

var (
	harvestOutput  string
	harvestFetcher string
	harvestNoNews  bool
	harvestHeaded  bool
)

func addHarvestFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&harvestOutput, "output", "o", "", "snapshot path (default from config)")
	cmd.Flags().StringVar(&harvestFetcher, "fetcher", "", "page fetcher: browser or http")
	cmd.Flags().BoolVar(&harvestNoNews, "no-news", false, "skip the news portal")
	cmd.Flags().BoolVar(&harvestHeaded, "headed", false, "show the browser window")
}

func applyHarvestFlags(cfg *config.Config) {
	if harvestOutput != "" {
		cfg.Storage.SnapshotPath = harvestOutput
	}
	if harvestFetcher != "" {
		cfg.Browser.Type = harvestFetcher
	}
	if harvestNoNews {
		cfg.Harvest.NewsPortal.Enabled = false
	}
	if harvestHeaded {
		cfg.Browser.Headless = false
	}
}

// harvestCmd creates the "harvest" subcommand.
func harvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Fetch trending keywords and write the snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(applyHarvestFlags)
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
			return err
		},
	}
	addHarvestFlags(cmd)
	return cmd
}

// runHarvest wires the fetcher, row source and sinks and runs one harvest.
// A browser that cannot be launched fails the run.
func runHarvest(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*harvest.Result, error) {
	pf, err := fetcher.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	defer func() {
		if err := pf.Close(); err != nil {
			logger.Warn("fetcher close error", "error", err)
		}
	}()

	rows, err := extract.NewRowSource(cfg.Harvest.Selectors, logger)
	if err != nil {
		return nil, fmt.Errorf("create row source: %w", err)
	}

	opts := []harvest.Option{harvest.WithMetrics(metrics)}
	if cfg.Storage.MongoURI != "" {
		archive, err := storage.NewMongoArchive(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection, logger)
		if err != nil {
			logger.Warn("snapshot archive unavailable, continuing without it", "error", err)
		} else {
			defer archive.Close()
			opts = append(opts, harvest.WithArchive(archive))
		}
	}

	snapshot := storage.NewSnapshotFile(cfg.Storage.SnapshotPath, logger)
	return harvest.New(cfg, pf, rows, snapshot, logger, opts...).Run(ctx)
}

func printHarvest(res *harvest.Result, path string) {
	fmt.Printf("\n✅ Harvest complete in %s\n", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	fmt.Printf("   Run:       %s\n", res.RunID)
	fmt.Printf("   Trends:    %d keywords\n", res.Count(types.SourceSearchTrends))
	fmt.Printf("   News:      %d keywords\n", res.Count(types.SourceNewsPortal))
	fmt.Printf("   Skipped:   %d\n", len(res.Skipped))
	fmt.Printf("   Snapshot:  %s\n", path)
	for _, d := range res.Skipped {
		if d.Stage == "source" {
			fmt.Printf("   ⚠ %s\n", d)
		}
	}
}
