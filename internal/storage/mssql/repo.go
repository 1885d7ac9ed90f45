// Package mssql implements a Microsoft SQL Server repository using the
// go-mssqldb bulk copy API. A table write drops and recreates the table and
// bulk-copies the rows inside one transaction.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
	"go.uber.org/zap"

	"datalake/internal/schema"
	"datalake/internal/storage"
)

// invalidObjectName is the server error number for a missing table.
const invalidObjectName = 208

// Config holds MSSQL repository configuration.
type Config struct {
	DSN string
	// Schema qualifies table names; defaults to dbo.
	Schema string
	Logger *zap.Logger
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

var dialect = storage.Dialect{
	Quote: msIdent,
	TypeName: func(t schema.Type) string {
		switch t {
		case schema.Integer:
			return "INT"
		case schema.Long:
			return "BIGINT"
		case schema.Double:
			return "FLOAT"
		case schema.Timestamp:
			return "DATETIME2(3)"
		default:
			return "NVARCHAR(MAX)"
		}
	},
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	if cfg.Schema == "" {
		cfg.Schema = "dbo"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

func (r *Repository) fqn(name string) string {
	return msIdent(r.cfg.Schema) + "." + msIdent(name)
}

// WriteTable replaces t.Name.
func (r *Repository) WriteTable(ctx context.Context, t storage.Table) (storage.WriteResult, error) {
	if err := t.Validate(); err != nil {
		return storage.WriteResult{}, err
	}
	table := r.fqn(t.Name)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.WriteResult{}, fmt.Errorf("mssql: begin tx: %w", err)
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
			return storage.WriteResult{}, fmt.Errorf("mssql: %s: %w", t.Name, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, t.Schema.Names()...))
	if err != nil {
		return storage.WriteResult{}, fmt.Errorf("mssql: prepare bulk copy: %w", err)
	}
	for i, row := range t.Rows {
		if _, err := stmt.ExecContext(ctx, bind(row)...); err != nil {
			_ = stmt.Close()
			return storage.WriteResult{}, fmt.Errorf("mssql: bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx) // flush
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return storage.WriteResult{}, fmt.Errorf("mssql: bulk finalize: %w", err)
	}
	copied, err := res.RowsAffected()
	if err != nil {
		return storage.WriteResult{}, fmt.Errorf("mssql: rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return storage.WriteResult{}, fmt.Errorf("mssql: commit: %w", err)
	}
	r.cfg.Logger.Info("table written", zap.String("table", table), zap.Int64("rows", copied))
	return storage.WriteResult{Rows: copied}, nil
}

// ReadTable reads every row of name.
func (r *Repository) ReadTable(ctx context.Context, name string, s schema.Struct) (storage.Table, error) {
	rows, err := r.db.QueryContext(ctx, dialect.Select(r.fqn(name), s))
	if err != nil {
		return storage.Table{}, readErr(name, err)
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
			return storage.Table{}, fmt.Errorf("mssql: scan %s: %w", name, err)
		}
		t.Rows = append(t.Rows, storage.ConvertRow(raw, s))
	}
	if err := rows.Err(); err != nil {
		return storage.Table{}, readErr(name, err)
	}
	return t, nil
}

func readErr(name string, err error) error {
	var msErr mssql.Error
	if errors.As(err, &msErr) && msErr.Number == invalidObjectName {
		return fmt.Errorf("%w: %s", storage.ErrTableNotFound, name)
	}
	return fmt.Errorf("mssql: select %s: %w", name, err)
}

// bind widens integers for the bulk copy encoder.
func bind(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if n, ok := v.(int32); ok {
			out[i] = int64(n)
			continue
		}
		out[i] = v
	}
	return out
}

// msIdent quotes an identifier with brackets, escaping embedded ']'.
func msIdent(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" }
