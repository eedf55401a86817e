// Package store is the news archive the scoring engine reads candidates from
// and writes popularity updates to.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/IshaanNene/TrendPulse/internal/types"
)

// Scope restricts which news records are candidates for a keyword. Window
// keeps records published within the last Window; Limit keeps the Limit
// records with the highest ids. Both may be set, in which case a record
// must satisfy both. A zero Scope matches the whole table.
type Scope struct {
	Window time.Duration
	Limit  int
}

func (s Scope) String() string {
	switch {
	case s.Window > 0 && s.Limit > 0:
		return fmt.Sprintf("window=%s limit=%d", s.Window, s.Limit)
	case s.Window > 0:
		return fmt.Sprintf("window=%s", s.Window)
	case s.Limit > 0:
		return fmt.Sprintf("limit=%d", s.Limit)
	default:
		return "all"
	}
}

// Store opens scoring transactions.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is one all-or-nothing scoring run.
type Tx interface {
	// Candidates returns records whose title or content contains keyword,
	// case-insensitively, within scope, ordered by id. Only ID, Popularity
	// and ProcessingStatus are populated. Returned rows stay locked until
	// the transaction ends.
	Candidates(ctx context.Context, keyword string, scope Scope) ([]types.NewsRecord, error)

	// Apply stores the new popularity and status for id.
	Apply(ctx context.Context, id int64, popularity float64, status int) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
