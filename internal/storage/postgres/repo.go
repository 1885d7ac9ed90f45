// Package postgres implements a Postgres repository using pgx v5. A table
// write drops and recreates the table and streams rows with COPY, all inside
// one transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"datalake/internal/schema"
	"datalake/internal/storage"
)

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// Config holds Postgres repository configuration.
type Config struct {
	DSN string // connection string for pgxpool
	// Schema qualifies table names, e.g. "analytics". Empty uses search_path.
	Schema string
	Logger *zap.Logger
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

var dialect = storage.Dialect{
	Quote: pgIdent,
	TypeName: func(t schema.Type) string {
		switch t {
		case schema.Integer:
			return "INTEGER"
		case schema.Long:
			return "BIGINT"
		case schema.Double:
			return "DOUBLE PRECISION"
		case schema.Timestamp:
			return "TIMESTAMPTZ"
		default:
			return "TEXT"
		}
	},
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, closeFn, nil
}

func (r *Repository) ident(name string) pgx.Identifier {
	if r.cfg.Schema == "" {
		return pgx.Identifier{name}
	}
	return pgx.Identifier{r.cfg.Schema, name}
}

// WriteTable replaces t.Name.
func (r *Repository) WriteTable(ctx context.Context, t storage.Table) (storage.WriteResult, error) {
	if err := t.Validate(); err != nil {
		return storage.WriteResult{}, err
	}
	id := r.ident(t.Name)
	table := id.Sanitize()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storage.WriteResult{}, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stmts := []string{
		"DROP TABLE IF EXISTS " + table,
		dialect.CreateTable(table, t.Schema),
	}
	if idx := dialect.CreatePartitionIndex(table, t); idx != "" {
		stmts = append(stmts, idx)
	}
	for _, s := range stmts {
		if _, err := tx.Exec(ctx, s); err != nil {
			return storage.WriteResult{}, fmt.Errorf("postgres: %s: %w", t.Name, err)
		}
	}

	n, err := tx.CopyFrom(ctx, id, t.Schema.Names(), pgx.CopyFromRows(t.Rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return storage.WriteResult{}, fmt.Errorf("postgres: copy into %s: %s (%s)", t.Name, pgErr.Detail, pgErr.SQLState())
		}
		return storage.WriteResult{}, fmt.Errorf("postgres: copy into %s: %w", t.Name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storage.WriteResult{}, fmt.Errorf("postgres: commit: %w", err)
	}
	r.cfg.Logger.Info("table written", zap.String("table", table), zap.Int64("rows", n))
	return storage.WriteResult{Rows: n}, nil
}

// ReadTable reads every row of name.
func (r *Repository) ReadTable(ctx context.Context, name string, s schema.Struct) (storage.Table, error) {
	rows, err := r.pool.Query(ctx, dialect.Select(r.ident(name).Sanitize(), s))
	if err != nil {
		return storage.Table{}, r.readErr(name, err)
	}
	defer rows.Close()

	t := storage.Table{Name: name, Schema: s}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return storage.Table{}, fmt.Errorf("postgres: scan %s: %w", name, err)
		}
		t.Rows = append(t.Rows, storage.ConvertRow(vals, s))
	}
	if err := rows.Err(); err != nil {
		return storage.Table{}, r.readErr(name, err)
	}
	return t, nil
}

func (r *Repository) readErr(name string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("%w: %s", storage.ErrTableNotFound, name)
	}
	return fmt.Errorf("postgres: select %s: %w", name, err)
}

// pgIdent safely quotes an identifier for Postgres by wrapping it in double
// quotes and escaping any embedded quotes.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
