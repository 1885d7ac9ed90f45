// Package storage contains the table repository contract and the registry
// of backends that implement it.
//
// A Repository persists whole tables. WriteTable always overwrites: whatever
// was stored under the table name before the call is gone after it returns
// successfully. Each backend makes a single table write as atomic as the
// medium allows; nothing coordinates writes across tables.
//
// Backends register a Factory for their kind from init; importing
// storage/all links every backend into a binary.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"datalake/internal/datasource"
	"datalake/internal/schema"
)

// ErrTableNotFound is wrapped by ReadTable when the table has never been
// written.
var ErrTableNotFound = errors.New("storage: table not found")

// Table is a named, typed row set. Row values follow Schema column order and
// use the Go types produced by schema.Convert (nil for NULL).
type Table struct {
	Name   string
	Schema schema.Struct
	// PartitionBy lists the columns the table is partitioned on, outermost
	// first. Empty for unpartitioned tables.
	PartitionBy []string
	Rows        [][]any
}

// ColumnIndex returns the position of column name, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, f := range t.Schema.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks that every row has one value per column and that the
// partition columns exist.
func (t Table) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("storage: table name must not be empty")
	}
	if len(t.Schema.Fields) == 0 {
		return fmt.Errorf("storage: %s: schema has no columns", t.Name)
	}
	for _, p := range t.PartitionBy {
		if t.ColumnIndex(p) < 0 {
			return fmt.Errorf("storage: %s: unknown partition column %q", t.Name, p)
		}
	}
	if len(t.PartitionBy) == len(t.Schema.Fields) {
		return fmt.Errorf("storage: %s: cannot partition on every column", t.Name)
	}
	for i, r := range t.Rows {
		if len(r) != len(t.Schema.Fields) {
			return fmt.Errorf("storage: %s: row %d has %d values, want %d", t.Name, i, len(r), len(t.Schema.Fields))
		}
	}
	return nil
}

// WriteResult summarizes a WriteTable call.
type WriteResult struct {
	Rows       int64
	Partitions int
	Files      int
}

// Repository persists and reads back whole tables.
type Repository interface {
	// WriteTable replaces the stored table t.Name with t.
	WriteTable(ctx context.Context, t Table) (WriteResult, error)

	// ReadTable reads table name, returning its rows in s column order with
	// values converted to the column types of s. It wraps ErrTableNotFound
	// when the table does not exist.
	ReadTable(ctx context.Context, name string, s schema.Struct) (Table, error)

	Close() error
}

// Config is the backend-agnostic configuration handed to factories.
type Config struct {
	Kind string

	// DSN is the connection string for SQL backends.
	DSN string

	// Schema qualifies SQL table names (Postgres, SQL Server).
	Schema string

	// Store is the output object store for file backends.
	Store datasource.Store

	// WriterWorkers bounds concurrent partition encoders.
	WriterWorkers int

	// RunID is embedded in file names.
	RunID string

	Logger *zap.Logger
}

// Factory opens a Repository.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register binds f to kind, replacing any previous registration.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// Kinds returns the registered kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens the Repository registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q (have %v)", cfg.Kind, Kinds())
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return f(ctx, cfg)
}
