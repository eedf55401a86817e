package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IshaanNene/TrendPulse/internal/config"
	"github.com/IshaanNene/TrendPulse/internal/types"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching keyword as a literal
// substring.
func containsPattern(keyword string) string {
	return "%" + likeEscaper.Replace(keyword) + "%"
}

// PostgresStore is a Store backed by a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// NewPostgresStore opens a pool and verifies connectivity.
func NewPostgresStore(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, &types.DatastoreError{Op: "connect", Err: errors.New("no DSN configured")}
	}

	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, &types.DatastoreError{Op: "parse dsn", Err: err}
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 2
	}
	pcfg.MaxConns = int32(maxConns)
	if cfg.SimpleProtocol {
		pcfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	if cfg.StatementTimeout > 0 {
		pcfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, &types.DatastoreError{Op: "connect", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &types.DatastoreError{Op: "ping", Err: err}
	}

	s := &PostgresStore{
		pool:   pool,
		table:  quoteTable(cfg.Table),
		logger: logger.With("component", "postgres_store"),
	}
	s.logger.Info("postgres store ready", "table", s.table, "max_conns", maxConns, "simple_protocol", cfg.SimpleProtocol)
	return s, nil
}

// quoteTable quotes a possibly schema-qualified table name.
func quoteTable(name string) string {
	if name == "" {
		name = "news"
	}
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, &types.DatastoreError{Op: "begin", Err: err}
	}
	return &pgTx{tx: tx, table: s.table}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type pgTx struct {
	tx    pgx.Tx
	table string
}

func (t *pgTx) Candidates(ctx context.Context, keyword string, scope Scope) ([]types.NewsRecord, error) {
	query, args, err := buildCandidateQuery(t.table, keyword, scope)
	if err != nil {
		return nil, &types.DatastoreError{Op: "build select", Err: err}
	}

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, &types.DatastoreError{Op: "select", Err: err}
	}
	defer rows.Close()

	var out []types.NewsRecord
	for rows.Next() {
		var (
			rec    types.NewsRecord
			status *string
		)
		if err := rows.Scan(&rec.ID, &rec.Popularity, &status); err != nil {
			return nil, &types.DatastoreError{Op: "scan", Err: err}
		}
		rec.ProcessingStatus = types.ParseProcessingStatus(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.DatastoreError{Op: "select", Err: err}
	}
	return out, nil
}

func (t *pgTx) Apply(ctx context.Context, id int64, popularity float64, status int) error {
	query, args, err := buildUpdate(t.table, id, popularity, status)
	if err != nil {
		return &types.DatastoreError{Op: "build update", Err: err}
	}
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return &types.DatastoreError{Op: "update", Err: err}
	}
	if tag.RowsAffected() != 1 {
		return &types.DatastoreError{Op: "update", Err: fmt.Errorf("news id %d: %d rows affected", id, tag.RowsAffected())}
	}
	return nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return &types.DatastoreError{Op: "commit", Err: err}
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return &types.DatastoreError{Op: "rollback", Err: err}
	}
	return nil
}

// buildCandidateQuery selects the rows a keyword matches. Status is read as
// text so non-numeric legacy values can be treated as 0 instead of failing
// the scan.
func buildCandidateQuery(table, keyword string, scope Scope) (string, []any, error) {
	pattern := containsPattern(keyword)
	q := psql.
		Select("id", "COALESCE(popularity, 0)::float8", "processing_status::text").
		From(table).
		Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"content": pattern},
		})

	if scope.Window > 0 {
		q = q.Where(sq.Expr("pub_date >= NOW() - make_interval(secs => ?)", scope.Window.Seconds()))
	}
	if scope.Limit > 0 {
		q = q.Where(sq.Expr("id IN (SELECT id FROM "+table+" ORDER BY id DESC LIMIT ?)", scope.Limit))
	}

	return q.OrderBy("id").Suffix("FOR UPDATE").ToSql()
}

func buildUpdate(table string, id int64, popularity float64, status int) (string, []any, error) {
	return psql.
		Update(table).
		Set("popularity", popularity).
		Set("processing_status", status).
		Where(sq.Eq{"id": id}).
		ToSql()
}
