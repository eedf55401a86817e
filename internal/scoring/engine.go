package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/TrendPulse/internal/config"
	"github.com/IshaanNene/TrendPulse/internal/observability"
	"github.com/IshaanNene/TrendPulse/internal/storage"
	"github.com/IshaanNene/TrendPulse/internal/store"
	"github.com/IshaanNene/TrendPulse/internal/types"
)

// Kind says which keyword of a trend record produced an update.
type Kind string

const (
	KindMain    Kind = "main"
	KindRelated Kind = "related"
)

// Update is one popularity increment applied to a news record.
type Update struct {
	NewsID      int64
	Keyword     string
	Kind        Kind
	PriorStatus int
	Increment   float64
	Popularity  float64
}

// Report describes a scoring run.
type Report struct {
	RunID     string
	Snapshot  string
	Scope     store.Scope
	Records   int
	Keywords  int
	Matches   int
	Updates   []Update
	Skipped   []types.Diagnostic
	DryRun    bool
	Committed bool
	Duration  time.Duration
}

// Touched returns the number of distinct news records updated.
func (r *Report) Touched() int {
	seen := make(map[int64]struct{}, len(r.Updates))
	for _, u := range r.Updates {
		seen[u.NewsID] = struct{}{}
	}
	return len(seen)
}

// TotalIncrement sums every applied increment.
func (r *Report) TotalIncrement() float64 {
	var sum float64
	for _, u := range r.Updates {
		sum += u.Increment
	}
	return sum
}

// Engine applies a snapshot's keyword signals to the news store.
type Engine struct {
	store    store.Store
	weights  Weights
	defaults storage.SnapshotDefaults
	metrics  *observability.Metrics
	dryRun   bool
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDryRun computes every update inside the transaction and rolls it back.
func WithDryRun(dry bool) Option {
	return func(e *Engine) { e.dryRun = dry }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithDefaults sets the category and rank assumed for snapshot records that
// lack them.
func WithDefaults(d storage.SnapshotDefaults) Option {
	return func(e *Engine) { e.defaults = d }
}

// NewEngine creates a scoring engine over s.
func NewEngine(s store.Store, w Weights, logger *slog.Logger, opts ...Option) *Engine {
	def := config.DefaultConfig().Scoring
	e := &Engine{
		store:    s,
		weights:  w,
		defaults: storage.SnapshotDefaults{Category: def.DefaultCategory, Rank: def.DefaultRank},
		logger:   logger.With("component", "scoring_engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = observability.NewMetrics(logger)
	}
	return e
}

// UpdatePopularity reads the snapshot at snapshotPath and boosts every news
// record in scope that mentions one of its keywords. Related keywords of a
// record are applied before its main keyword. All updates happen in one
// transaction: any failure rolls the whole run back. A snapshot that cannot
// be read aborts the run before the store is touched.
func (e *Engine) UpdatePopularity(ctx context.Context, snapshotPath string, scope store.Scope) (*Report, error) {
	start := time.Now()
	rep := &Report{
		RunID:    uuid.NewString(),
		Snapshot: snapshotPath,
		Scope:    scope,
		DryRun:   e.dryRun,
	}
	logger := e.logger.With("run_id", rep.RunID)

	records, err := storage.ReadSnapshot(snapshotPath, e.defaults)
	if err != nil {
		logger.Error("snapshot unreadable, aborting", "path", snapshotPath, "error", err)
		return nil, err
	}
	rep.Records = len(records)
	logger.Info("scoring starting", "path", snapshotPath, "records", len(records), "scope", scope.String(), "dry_run", e.dryRun)

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, err
	}

	if err := e.applyAll(ctx, tx, logger, rep, records); err != nil {
		e.metrics.Rollbacks.Add(1)
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			logger.Error("rollback failed", "error", rbErr)
		}
		logger.Error("scoring failed, transaction rolled back", "error", err, "pending_updates", len(rep.Updates))
		return nil, err
	}

	if e.dryRun {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
			return nil, err
		}
		rep.Duration = time.Since(start)
		logger.Info("dry run complete, nothing written", "updates", len(rep.Updates), "touched", rep.Touched())
		return rep, nil
	}

	if err := tx.Commit(ctx); err != nil {
		e.metrics.Rollbacks.Add(1)
		_ = tx.Rollback(context.WithoutCancel(ctx))
		logger.Error("commit failed", "error", err)
		return nil, err
	}
	rep.Committed = true
	rep.Duration = time.Since(start)
	e.metrics.NewsUpdated.Add(int64(len(rep.Updates)))

	logger.Info("scoring complete",
		"keywords", rep.Keywords,
		"matches", rep.Matches,
		"updates", len(rep.Updates),
		"touched", rep.Touched(),
		"skipped", len(rep.Skipped),
		"duration", rep.Duration,
	)
	return rep, nil
}

func (e *Engine) applyAll(ctx context.Context, tx store.Tx, logger *slog.Logger, rep *Report, records []types.TrendRecord) error {
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		mainScore := e.weights.MainScore(rec)

		for _, kw := range rec.RelatedKeywords {
			if err := e.boost(ctx, tx, logger, rep, rec, kw, KindRelated, e.weights.RelatedWeight); err != nil {
				return err
			}
		}
		if err := e.boost(ctx, tx, logger, rep, rec, rec.MainKeyword, KindMain, mainScore); err != nil {
			return err
		}
	}
	return nil
}

// boost applies weight, decayed per record, to every candidate matching
// keyword. Blank keywords would match every record and are skipped; others
// are matched exactly as harvested, surrounding whitespace included.
func (e *Engine) boost(ctx context.Context, tx store.Tx, logger *slog.Logger, rep *Report, rec types.TrendRecord, keyword string, kind Kind, weight float64) error {
	if strings.TrimSpace(keyword) == "" {
		rep.Skipped = append(rep.Skipped, types.Diagnostic{
			Stage:    "score",
			Source:   rec.Source,
			Category: rec.Category,
			Rank:     rec.Rank,
			Err:      fmt.Errorf("%s keyword: %w", kind, types.ErrEmptyKeyword),
		})
		return nil
	}
	rep.Keywords++

	candidates, err := tx.Candidates(ctx, keyword, rep.Scope)
	if err != nil {
		return err
	}
	rep.Matches += len(candidates)
	e.metrics.NewsMatched.Add(int64(len(candidates)))

	for _, c := range candidates {
		inc := e.weights.Decay(weight, c.ProcessingStatus)
		u := Update{
			NewsID:      c.ID,
			Keyword:     keyword,
			Kind:        kind,
			PriorStatus: c.ProcessingStatus,
			Increment:   inc,
			Popularity:  c.Popularity + inc,
		}
		if err := tx.Apply(ctx, c.ID, u.Popularity, c.ProcessingStatus+1); err != nil {
			return err
		}
		rep.Updates = append(rep.Updates, u)

		logger.Debug("popularity boosted",
			"news_id", c.ID,
			"kind", kind,
			"keyword", keyword,
			"old_popularity", c.Popularity,
			"increment", inc,
			"status", fmt.Sprintf("%d->%d", c.ProcessingStatus, c.ProcessingStatus+1),
		)
	}
	return nil
}
