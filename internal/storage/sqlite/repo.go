// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. Each WriteTable drops and recreates the table and loads it
// with a prepared INSERT inside one transaction, so a failed write leaves
// the previous table in place.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"datalake/internal/schema"
	"datalake/internal/storage"
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:sparkify.db?cache=shared"
	//   "sparkify.db"
	DSN    string
	Logger *zap.Logger
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

var dialect = storage.Dialect{
	Quote: func(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` },
	TypeName: func(t schema.Type) string {
		switch t {
		case schema.Integer, schema.Long:
			return "INTEGER"
		case schema.Double:
			return "REAL"
		case schema.Timestamp:
			return "TIMESTAMP"
		default:
			return "TEXT"
		}
	},
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single connection keeps in-memory databases visible across calls.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// WriteTable drops, recreates and loads t.Name.
func (r *Repository) WriteTable(ctx context.Context, t storage.Table) (storage.WriteResult, error) {
	if err := t.Validate(); err != nil {
		return storage.WriteResult{}, err
	}
	table := dialect.Quote(t.Name)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.WriteResult{}, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		"DROP TABLE IF EXISTS " + table,
		dialect.CreateTable(table, t.Schema),
	}
	if idx := dialect.CreatePartitionIndex(table, t); idx != "" {
		stmts = append(stmts, idx)
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return storage.WriteResult{}, fmt.Errorf("sqlite: %s: %w", t.Name, err)
		}
	}

	cols := dialect.QuoteList(t.Schema.Names())
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders,
	))
	if err != nil {
		return storage.WriteResult{}, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range t.Rows {
		if _, err := stmt.ExecContext(ctx, bind(row)...); err != nil {
			return storage.WriteResult{}, fmt.Errorf("sqlite: insert into %s row %d: %w", t.Name, inserted, err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return storage.WriteResult{}, fmt.Errorf("sqlite: commit: %w", err)
	}
	r.cfg.Logger.Info("table written", zap.String("table", t.Name), zap.Int64("rows", inserted))
	return storage.WriteResult{Rows: inserted}, nil
}

// ReadTable reads every row of name.
func (r *Repository) ReadTable(ctx context.Context, name string, s schema.Struct) (storage.Table, error) {
	rows, err := r.db.QueryContext(ctx, dialect.Select(dialect.Quote(name), s))
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return storage.Table{}, fmt.Errorf("%w: %s", storage.ErrTableNotFound, name)
		}
		return storage.Table{}, fmt.Errorf("sqlite: select %s: %w", name, err)
	}
	defer rows.Close()

	t := storage.Table{Name: name, Schema: s}
	raw := make([]any, len(s.Fields))
	dest := make([]any, len(s.Fields))
	for i := range raw {
		dest[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return storage.Table{}, fmt.Errorf("sqlite: scan %s: %w", name, err)
		}
		t.Rows = append(t.Rows, storage.ConvertRow(raw, s))
	}
	if err := rows.Err(); err != nil {
		return storage.Table{}, fmt.Errorf("sqlite: rows %s: %w", name, err)
	}
	return t, nil
}

// bind converts row values to what the driver stores unambiguously.
// Timestamps are kept as RFC 3339 text in UTC.
func bind(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if ts, ok := v.(time.Time); ok {
			out[i] = ts.UTC().Format(time.RFC3339Nano)
			continue
		}
		out[i] = v
	}
	return out
}
