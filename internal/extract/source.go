package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/TrendPulse/internal/config"
	"github.com/IshaanNene/TrendPulse/internal/fetcher"
	"github.com/IshaanNene/TrendPulse/internal/types"
)

// Role names what a row means, independent of how it is selected.
type Role string

const (
	RoleTrendRow   Role = "trend_row"
	RoleHotKeyword Role = "hot_keyword"
)

// RowSource answers "which rows on this page play role X". The selector
// strategy lives here so the retry loop never sees concrete selectors.
type RowSource struct {
	locator   Locator
	selectors config.SelectorConfig
	logger    *slog.Logger
}

// NewRowSource builds a RowSource from the harvest selector settings.
func NewRowSource(sel config.SelectorConfig, logger *slog.Logger) (*RowSource, error) {
	loc, err := NewLocator(sel.Kind)
	if err != nil {
		return nil, err
	}
	return &RowSource{
		locator:   loc,
		selectors: sel,
		logger:    logger.With("component", "row_source", "kind", loc.Kind()),
	}, nil
}

// Selectors returns the selector settings used for sub-queries.
func (s *RowSource) Selectors() config.SelectorConfig {
	return s.selectors
}

// Selector returns the page selector for role.
func (s *RowSource) Selector(role Role) (fetcher.Selector, error) {
	var expr string
	switch role {
	case RoleTrendRow:
		expr = s.selectors.TrendRow
	case RoleHotKeyword:
		expr = s.selectors.HotKeyword
	default:
		return fetcher.Selector{}, fmt.Errorf("%w: %q", types.ErrUnknownRole, role)
	}
	return fetcher.Selector{Kind: s.locator.Kind(), Expr: expr}, nil
}

// Rows snapshots the page DOM and returns the rows playing role, in
// document order. Zero rows is not an error.
func (s *RowSource) Rows(ctx context.Context, page fetcher.Page, role Role) ([]Row, error) {
	sel, err := s.Selector(role)
	if err != nil {
		return nil, err
	}

	doc, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.locator.Locate(doc, sel.Expr)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("rows located", "role", role, "url", page.URL(), "count", len(rows))
	return rows, nil
}
