package harvest

import (
	"context"
	"log/slog"
	"time"

	"github.com/IshaanNene/TrendPulse/internal/extract"
	"github.com/IshaanNene/TrendPulse/internal/fetcher"
	"github.com/IshaanNene/TrendPulse/internal/observability"
	"github.com/IshaanNene/TrendPulse/internal/types"
)

// State is a step of the selector-wait loop for one page.
type State int

const (
	StateAwaitingSelector State = iota
	StateHasRows
	StateEmpty
)

func (s State) String() string {
	switch s {
	case StateAwaitingSelector:
		return "awaiting_selector"
	case StateHasRows:
		return "has_rows"
	case StateEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// RowFinder locates rows by role on a loaded page.
type RowFinder interface {
	Selector(role extract.Role) (fetcher.Selector, error)
	Rows(ctx context.Context, page fetcher.Page, role extract.Role) ([]extract.Row, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// AwaitOptions bounds the selector-wait loop.
type AwaitOptions struct {
	SelectorTimeout time.Duration
	// Cooldown is the pause before each reload.
	Cooldown time.Duration
	// ReloadAttempts is the number of reload cycles after the first empty
	// query. Zero means the page is queried once.
	ReloadAttempts int
	Sleep          SleepFunc
	Metrics        *observability.Metrics
	Logger         *slog.Logger
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// AwaitRows waits for rows playing role to appear on page, reloading after
// a cooldown whenever the page comes up empty. A selector timeout counts as
// an empty page. Exhausting the reloads yields no rows and no error; the
// diagnostics list each empty attempt. Errors are returned only for failures
// that make the page unusable, such as a failed reload or a cancelled ctx.
func AwaitRows(ctx context.Context, page fetcher.Page, finder RowFinder, role extract.Role, opts AwaitOptions) ([]extract.Row, []types.Diagnostic, error) {
	sel, err := finder.Selector(role)
	if err != nil {
		return nil, nil, err
	}

	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("url", page.URL(), "role", role)

	var diags []types.Diagnostic
	state := StateAwaitingSelector
	queries := 0

	for {
		switch state {
		case StateAwaitingSelector:
			queries++
			waitErr := page.WaitFor(ctx, sel, opts.SelectorTimeout)
			if waitErr != nil && !types.IsTimeout(waitErr) {
				return nil, diags, waitErr
			}
			if waitErr != nil {
				if opts.Metrics != nil {
					opts.Metrics.SelectorTimeouts.Add(1)
				}
				logger.Debug("selector wait timed out", "attempt", queries, "timeout", opts.SelectorTimeout)
			}

			rows, err := finder.Rows(ctx, page, role)
			if err != nil {
				return nil, diags, err
			}
			if len(rows) > 0 {
				logger.Debug("rows found", "attempt", queries, "count", len(rows))
				return rows, diags, nil
			}

			cause := waitErr
			if cause == nil {
				cause = types.ErrNoRows
			}
			diags = append(diags, types.Diagnostic{Stage: "await", Attempt: queries, Err: cause})
			state = StateEmpty

		case StateEmpty:
			if queries-1 >= opts.ReloadAttempts {
				logger.Warn("no rows after reloads, accepting empty result", "attempts", queries)
				return nil, diags, nil
			}

			logger.Info("no rows, reloading after cooldown", "attempt", queries, "cooldown", opts.Cooldown)
			if err := sleep(ctx, opts.Cooldown); err != nil {
				return nil, diags, err
			}
			if err := page.Reload(ctx); err != nil {
				return nil, diags, err
			}
			if opts.Metrics != nil {
				opts.Metrics.Reloads.Add(1)
			}
			state = StateAwaitingSelector
		}
	}
}
