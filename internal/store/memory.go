package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/IshaanNene/TrendPulse/internal/types"
)

// MemoryStore is an in-process Store. Transactions work on a copy of the
// records that replaces the committed set on Commit.
type MemoryStore struct {
	mu      sync.Mutex
	records map[int64]types.NewsRecord
	now     func() time.Time

	// FailApply, when set, is consulted before every Apply.
	FailApply func(id int64) error

	begins    int
	commits   int
	rollbacks int
}

// NewMemoryStore creates a MemoryStore seeded with records.
func NewMemoryStore(records ...types.NewsRecord) *MemoryStore {
	m := &MemoryStore{
		records: make(map[int64]types.NewsRecord, len(records)),
		now:     time.Now,
	}
	for _, r := range records {
		m.records[r.ID] = r
	}
	return m
}

// SetClock overrides the time used for window scoping.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Get returns the committed state of id.
func (m *MemoryStore) Get(id int64) (types.NewsRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	return r, ok
}

// Stats returns how many transactions were begun, committed and rolled back.
func (m *MemoryStore) Stats() (begins, commits, rollbacks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begins, m.commits, m.rollbacks
}

func (m *MemoryStore) Begin(context.Context) (Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.begins++

	work := make(map[int64]types.NewsRecord, len(m.records))
	for id, r := range m.records {
		work[id] = r
	}
	return &memTx{store: m, work: work, now: m.now()}, nil
}

func (m *MemoryStore) Close() error { return nil }

type memTx struct {
	store *MemoryStore
	work  map[int64]types.NewsRecord
	now   time.Time
	done  bool
}

var errTxDone = errors.New("transaction already finished")

func (t *memTx) Candidates(ctx context.Context, keyword string, scope Scope) ([]types.NewsRecord, error) {
	if t.done {
		return nil, &types.DatastoreError{Op: "select", Err: errTxDone}
	}
	if err := ctx.Err(); err != nil {
		return nil, &types.DatastoreError{Op: "select", Err: err}
	}

	ids := make([]int64, 0, len(t.work))
	for id := range t.work {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if scope.Limit > 0 && len(ids) > scope.Limit {
		ids = ids[:scope.Limit]
	}

	kw := strings.ToLower(keyword)
	var out []types.NewsRecord
	for _, id := range ids {
		r := t.work[id]
		if scope.Window > 0 && r.PubDate.Before(t.now.Add(-scope.Window)) {
			continue
		}
		if !strings.Contains(strings.ToLower(r.Title), kw) && !strings.Contains(strings.ToLower(r.Content), kw) {
			continue
		}
		out = append(out, types.NewsRecord{ID: r.ID, Popularity: r.Popularity, ProcessingStatus: r.ProcessingStatus})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) Apply(ctx context.Context, id int64, popularity float64, status int) error {
	if t.done {
		return &types.DatastoreError{Op: "update", Err: errTxDone}
	}
	if t.store.FailApply != nil {
		if err := t.store.FailApply(id); err != nil {
			return &types.DatastoreError{Op: "update", Err: err}
		}
	}
	r, ok := t.work[id]
	if !ok {
		return &types.DatastoreError{Op: "update", Err: fmt.Errorf("news id %d: 0 rows affected", id)}
	}
	r.Popularity = popularity
	r.ProcessingStatus = status
	t.work[id] = r
	return nil
}

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return &types.DatastoreError{Op: "commit", Err: errTxDone}
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.records = t.work
	t.store.commits++
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.rollbacks++
	return nil
}
