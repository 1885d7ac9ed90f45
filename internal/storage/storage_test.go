package storage

import (
	"context"
	"errors"
	"slices"
	"testing"

	"datalake/internal/schema"
)

type stubRepo struct{ cfg Config }

func (stubRepo) WriteTable(context.Context, Table) (WriteResult, error) { return WriteResult{}, nil }
func (stubRepo) ReadTable(context.Context, string, schema.Struct) (Table, error) {
	return Table{}, ErrTableNotFound
}
func (stubRepo) Close() error { return nil }

func TestRegisterAndNew(t *testing.T) {
	Register("stub-test", func(_ context.Context, cfg Config) (Repository, error) {
		return stubRepo{cfg: cfg}, nil
	})
	if !slices.Contains(Kinds(), "stub-test") {
		t.Fatalf("Kinds()=%v, missing stub-test", Kinds())
	}

	repo, err := New(context.Background(), Config{Kind: "stub-test", DSN: "x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sr := repo.(stubRepo)
	if sr.cfg.Logger == nil {
		t.Fatalf("New should default the logger")
	}
	if _, err := repo.ReadTable(context.Background(), "t", schema.Struct{}); !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("ReadTable err=%v", err)
	}

	if _, err := New(context.Background(), Config{Kind: "nope"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
