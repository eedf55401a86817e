// Package harvest collects trending keywords from the configured sources and
// writes them as one snapshot.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/TrendPulse/internal/config"
	"github.com/IshaanNene/TrendPulse/internal/extract"
	"github.com/IshaanNene/TrendPulse/internal/fetcher"
	"github.com/IshaanNene/TrendPulse/internal/observability"
	"github.com/IshaanNene/TrendPulse/internal/storage"
	"github.com/IshaanNene/TrendPulse/internal/types"
)

// Result is the outcome of one harvest run.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Records    []types.TrendRecord
	// Skipped lists empty attempts, malformed rows and failed sources.
	Skipped []types.Diagnostic
}

// Count returns the number of records from src.
func (r *Result) Count(src types.Source) int {
	n := 0
	for _, rec := range r.Records {
		if rec.Source == src {
			n++
		}
	}
	return n
}

// Harvester walks every configured source sequentially.
type Harvester struct {
	cfg      config.HarvestConfig
	timeout  time.Duration
	fetcher  fetcher.PageFetcher
	rows     *extract.RowSource
	snapshot storage.Sink
	archive  storage.Sink
	metrics  *observability.Metrics
	sleep    SleepFunc
	logger   *slog.Logger
}

// Option configures a Harvester.
type Option func(*Harvester)

// WithArchive adds a best-effort sink written after the snapshot.
func WithArchive(s storage.Sink) Option {
	return func(h *Harvester) { h.archive = s }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Harvester) { h.metrics = m }
}

// WithSleep replaces the cooldown and retry-delay sleeper.
func WithSleep(fn SleepFunc) Option {
	return func(h *Harvester) { h.sleep = fn }
}

// New creates a Harvester. The snapshot sink is required and its failure
// fails the run.
func New(cfg *config.Config, pf fetcher.PageFetcher, rows *extract.RowSource, snapshot storage.Sink, logger *slog.Logger, opts ...Option) *Harvester {
	h := &Harvester{
		cfg:      cfg.Harvest,
		timeout:  cfg.Browser.SelectorTimeout,
		fetcher:  pf,
		rows:     rows,
		snapshot: snapshot,
		sleep:    sleepCtx,
		logger:   logger.With("component", "harvester"),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = observability.NewMetrics(logger)
	}
	return h
}

// Run harvests every source, writes the snapshot and returns what was
// collected. Source failures are recorded in Result.Skipped. A lost browser
// session stops the run early; it, a cancelled ctx and a failed snapshot
// write are returned as errors, the first two after writing the records
// gathered so far.
func (h *Harvester) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Records:   []types.TrendRecord{},
	}
	logger := h.logger.With("run_id", res.RunID)
	logger.Info("harvest starting", "trend_targets", len(h.cfg.Trends), "news_portal", h.cfg.NewsPortal.Enabled)

	var sessionErr error
	for _, target := range h.cfg.Trends {
		if ctx.Err() != nil {
			break
		}
		recs, diags, err := h.harvestTrends(ctx, logger, target)
		res.Skipped = append(res.Skipped, diags...)
		if err != nil {
			h.metrics.SourceFailures.Add(1)
			res.Skipped = append(res.Skipped, types.Diagnostic{
				Stage:    "source",
				Source:   types.SourceSearchTrends,
				Category: target.Category,
				Err:      err,
			})
			if errors.Is(err, types.ErrBrowserSession) {
				logger.Error("browser session lost, stopping harvest", "category", target.Category, "error", err)
				sessionErr = err
				break
			}
			logger.Warn("trend category failed, continuing", "category", target.Category, "error", err)
			continue
		}
		res.Records = append(res.Records, recs...)
		logger.Info("trend category done", "category", target.Category, "records", len(recs))
	}

	if h.cfg.NewsPortal.Enabled && sessionErr == nil && ctx.Err() == nil {
		recs, diags, err := h.harvestNewsWithRetry(ctx, logger)
		res.Records = append(res.Records, recs...)
		res.Skipped = append(res.Skipped, diags...)
		sessionErr = err
	}

	res.FinishedAt = time.Now()
	runErr := ctx.Err()

	batch := storage.Batch{RunID: res.RunID, HarvestedAt: res.FinishedAt, Records: res.Records}
	if err := h.snapshot.Store(ctx, batch); err != nil {
		logger.Error("snapshot write failed", "error", err)
		return res, err
	}
	h.metrics.RecordsWritten.Add(int64(len(res.Records)))

	if h.archive != nil {
		if err := h.archive.Store(ctx, batch); err != nil {
			logger.Warn("archive write failed", "sink", h.archive.Name(), "error", err)
		}
	}

	logger.Info("harvest complete",
		"records", len(res.Records),
		"skipped", len(res.Skipped),
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)
	if sessionErr != nil {
		return res, fmt.Errorf("harvest aborted: %w", sessionErr)
	}
	if runErr != nil {
		return res, fmt.Errorf("harvest interrupted: %w", runErr)
	}
	return res, nil
}

func (h *Harvester) awaitOptions(logger *slog.Logger) AwaitOptions {
	return AwaitOptions{
		SelectorTimeout: h.timeout,
		Cooldown:        h.cfg.ReloadCooldown,
		ReloadAttempts:  h.cfg.ReloadAttempts,
		Sleep:           h.sleep,
		Metrics:         h.metrics,
		Logger:          logger,
	}
}

// openPage opens url and hands the page to fn. The page is closed on every
// path out of fn.
func (h *Harvester) openPage(ctx context.Context, logger *slog.Logger, url string, fn func(fetcher.Page) error) error {
	page, err := h.fetcher.Open(ctx, url)
	if err != nil {
		return err
	}
	h.metrics.PagesOpened.Add(1)
	defer func() {
		if cerr := page.Close(); cerr != nil {
			logger.Warn("page close failed", "url", url, "error", cerr)
		}
	}()
	return fn(page)
}

func (h *Harvester) harvestTrends(ctx context.Context, logger *slog.Logger, target config.TrendTarget) ([]types.TrendRecord, []types.Diagnostic, error) {
	var (
		records []types.TrendRecord
		diags   []types.Diagnostic
	)
	logger = logger.With("source", types.SourceSearchTrends, "category", target.Category)
	sel := h.rows.Selectors()

	err := h.openPage(ctx, logger, target.URL, func(page fetcher.Page) error {
		rows, awaitDiags, err := AwaitRows(ctx, page, h.rows, extract.RoleTrendRow, h.awaitOptions(logger))
		diags = append(diags, tagDiagnostics(awaitDiags, types.SourceSearchTrends, target.Category)...)
		if err != nil {
			return err
		}

		for i, row := range rows {
			rank := i + 1
			f, err := extract.TrendRow(row, sel)
			if err != nil {
				h.metrics.RowsSkipped.Add(1)
				diags = append(diags, types.Diagnostic{
					Stage:    "extract",
					Source:   types.SourceSearchTrends,
					Category: target.Category,
					Rank:     rank,
					Err:      &types.ExtractionError{Source: types.SourceSearchTrends, Category: target.Category, Rank: rank, Err: err},
				})
				logger.Warn("row extraction failed, skipping", "rank", rank, "error", err)
				continue
			}
			h.metrics.RowsExtracted.Add(1)
			records = append(records, types.TrendRecord{
				Source:          types.SourceSearchTrends,
				Category:        target.Category,
				Rank:            rank,
				MainKeyword:     f.MainKeyword,
				RelatedKeywords: f.RelatedKeywords,
			})
		}
		return nil
	})
	return records, diags, err
}

// harvestNewsWithRetry retries the whole news-portal fetch when it fails.
// An empty but successful fetch is accepted without retrying. A lost browser
// session is not retried and is returned.
func (h *Harvester) harvestNewsWithRetry(ctx context.Context, logger *slog.Logger) ([]types.TrendRecord, []types.Diagnostic, error) {
	np := h.cfg.NewsPortal
	logger = logger.With("source", types.SourceNewsPortal)

	attempts := np.Retries
	if attempts < 1 {
		attempts = 1
	}

	var diags []types.Diagnostic
	for attempt := 1; attempt <= attempts; attempt++ {
		recs, attemptDiags, err := h.harvestNews(ctx, logger)
		diags = append(diags, attemptDiags...)
		if err == nil {
			logger.Info("news portal done", "records", len(recs), "attempt", attempt)
			return recs, diags, nil
		}

		diags = append(diags, types.Diagnostic{Stage: "source", Source: types.SourceNewsPortal, Attempt: attempt, Err: err})
		if errors.Is(err, types.ErrBrowserSession) {
			h.metrics.SourceFailures.Add(1)
			logger.Error("browser session lost, news portal not retried", "attempt", attempt, "error", err)
			return nil, diags, err
		}
		logger.Warn("news portal failed", "attempt", attempt, "max_attempts", attempts, "error", err)

		if attempt == attempts {
			break
		}
		if err := h.sleep(ctx, np.RetryDelay); err != nil {
			break
		}
	}

	h.metrics.SourceFailures.Add(1)
	return nil, diags, nil
}

func (h *Harvester) harvestNews(ctx context.Context, logger *slog.Logger) ([]types.TrendRecord, []types.Diagnostic, error) {
	var (
		records []types.TrendRecord
		diags   []types.Diagnostic
	)
	sel := h.rows.Selectors()
	limit := h.cfg.NewsPortal.Limit

	err := h.openPage(ctx, logger, h.cfg.NewsPortal.URL, func(page fetcher.Page) error {
		rows, awaitDiags, err := AwaitRows(ctx, page, h.rows, extract.RoleHotKeyword, h.awaitOptions(logger))
		diags = append(diags, tagDiagnostics(awaitDiags, types.SourceNewsPortal, "")...)
		if err != nil {
			return err
		}
		if limit > 0 && len(rows) > limit {
			rows = rows[:limit]
		}

		for i, row := range rows {
			rank := i + 1
			f, err := extract.HotKeyword(row, sel)
			if err != nil {
				h.metrics.RowsSkipped.Add(1)
				diags = append(diags, types.Diagnostic{
					Stage:  "extract",
					Source: types.SourceNewsPortal,
					Rank:   rank,
					Err:    &types.ExtractionError{Source: types.SourceNewsPortal, Rank: rank, Err: err},
				})
				logger.Warn("hot keyword extraction failed, skipping", "rank", rank, "error", err)
				continue
			}
			h.metrics.RowsExtracted.Add(1)
			records = append(records, types.TrendRecord{
				Source:      types.SourceNewsPortal,
				Rank:        rank,
				MainKeyword: f.Keyword,
				Link:        f.Link,
			})
		}
		return nil
	})
	if err != nil {
		return nil, diags, err
	}
	return records, diags, nil
}

func tagDiagnostics(diags []types.Diagnostic, src types.Source, category string) []types.Diagnostic {
	for i := range diags {
		diags[i].Source = src
		diags[i].Category = category
	}
	return diags
}
