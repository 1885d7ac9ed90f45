// Package parquet implements a storage.Repository that lays tables out as
// Hive-partitioned, snappy-compressed parquet files on a datasource.Store:
//
//	songs_table/year=2018/artist_id=ARJIE2Y1187B994AB7/part-00000-<run>.c000.snappy.parquet
//	songs_table/_SUCCESS
//
// Partition columns are encoded in directory names, not inside the files.
// WriteTable deletes everything under the table prefix before writing, so a
// rerun never leaves stale partitions behind.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"datalake/internal/datasource"
	"datalake/internal/schema"
	"datalake/internal/storage"
)

// SuccessMarker is written last under the table prefix once every file is
// in place.
const SuccessMarker = "_SUCCESS"

// Config holds parquet repository configuration derived from storage.Config.
type Config struct {
	Store   datasource.Store
	Workers int
	RunID   string
	Logger  *zap.Logger
}

// Repository writes and reads parquet tables.
type Repository struct {
	cfg Config
}

// NewRepository validates cfg and returns a Repository plus a Close function.
// The store is owned by the caller; closing the repository releases nothing.
func NewRepository(_ context.Context, cfg Config) (*Repository, func(), error) {
	if cfg.Store == nil {
		return nil, nil, fmt.Errorf("parquet: output store must not be nil")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RunID == "" {
		cfg.RunID = "00000000-0000-0000-0000-000000000000"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Repository{cfg: cfg}, func() {}, nil
}

func (r *Repository) fileName(i int) string {
	return fmt.Sprintf("part-%05d-%s.c000.snappy.parquet", i, r.cfg.RunID)
}

// WriteTable replaces table t.Name on the store.
func (r *Repository) WriteTable(ctx context.Context, t storage.Table) (storage.WriteResult, error) {
	if err := t.Validate(); err != nil {
		return storage.WriteResult{}, err
	}
	root := t.Name + "/"
	removed, err := r.cfg.Store.DeletePrefix(ctx, root)
	if err != nil {
		return storage.WriteResult{}, fmt.Errorf("parquet: clear %s: %w", t.Name, err)
	}

	dataSchema, pos := storage.DataColumns(t)
	groups := storage.GroupByPartition(t)
	// A partitioned table with no rows is just the marker; an unpartitioned
	// one still gets a file so its schema survives.
	if len(t.PartitionBy) > 0 && len(t.Rows) == 0 {
		groups = nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, grp := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows := make([][]any, len(grp.Rows))
			for j, full := range grp.Rows {
				proj := make([]any, len(pos))
				for k, p := range pos {
					proj[k] = full[p]
				}
				rows[j] = proj
			}
			data, err := encode(dataSchema, rows)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", t.Name, grp.Dir, err)
			}
			key := datasource.Join(t.Name, grp.Dir, r.fileName(i))
			if err := r.cfg.Store.Put(gctx, key, data); err != nil {
				return fmt.Errorf("parquet: put %s: %w", key, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return storage.WriteResult{}, err
	}
	if err := r.cfg.Store.Put(ctx, root+SuccessMarker, nil); err != nil {
		return storage.WriteResult{}, fmt.Errorf("parquet: put marker: %w", err)
	}

	res := storage.WriteResult{
		Rows:  int64(len(t.Rows)),
		Files: len(groups),
	}
	if len(t.PartitionBy) > 0 {
		res.Partitions = len(groups)
	}
	r.cfg.Logger.Info("table written",
		zap.String("table", t.Name),
		zap.String("location", r.cfg.Store.URL()+root),
		zap.Int64("rows", res.Rows),
		zap.Int("files", res.Files),
		zap.Int("replaced_objects", removed),
	)
	return res, nil
}

// ReadTable reads table name back, reconstructing partition columns from
// directory names.
func (r *Repository) ReadTable(ctx context.Context, name string, s schema.Struct) (storage.Table, error) {
	root := name + "/"
	keys, err := r.cfg.Store.List(ctx, root)
	if err != nil {
		return storage.Table{}, fmt.Errorf("parquet: list %s: %w", name, err)
	}
	if len(keys) == 0 {
		return storage.Table{}, fmt.Errorf("%w: %s", storage.ErrTableNotFound, r.cfg.Store.URL()+root)
	}
	var files []string
	for _, k := range keys {
		if datasource.Hidden(k) || !strings.HasSuffix(k, ".parquet") {
			continue
		}
		files = append(files, k)
	}

	results := make([][][]any, len(files))
	// Every file of a table shares the same nesting; the first one fixes the
	// partition column order.
	var partitionBy []string
	if len(files) > 0 {
		partitionBy, _ = storage.ParsePartitionPath(strings.TrimPrefix(files[0], root))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, k := range files {
		g.Go(func() error {
			data, err := datasource.ReadAll(gctx, r.cfg.Store, k)
			if err != nil {
				return err
			}
			d, err := decode(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path.Base(k), err)
			}
			_, parts := storage.ParsePartitionPath(strings.TrimPrefix(k, root))
			results[i] = project(d, parts, s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return storage.Table{}, fmt.Errorf("parquet: read %s: %w", name, err)
	}

	t := storage.Table{Name: name, Schema: s}
	for _, rows := range results {
		t.Rows = append(t.Rows, rows...)
	}
	for _, c := range partitionBy {
		if _, ok := s.Lookup(c); ok {
			t.PartitionBy = append(t.PartitionBy, c)
		}
	}
	return t, nil
}

// project maps decoded file rows plus partition values onto s.
func project(d decoded, parts map[string]string, s schema.Struct) [][]any {
	src := make([]int, len(s.Fields))
	for i, f := range s.Fields {
		src[i] = d.columnIndex(f.Name)
	}
	out := make([][]any, len(d.Rows))
	for ri, row := range d.Rows {
		vals := make([]any, len(s.Fields))
		for i, f := range s.Fields {
			if pv, ok := parts[f.Name]; ok {
				vals[i] = storage.ParsePartitionValue(pv, f.Type)
				continue
			}
			if src[i] < 0 || row[src[i]] == nil {
				continue
			}
			v, ok := schema.Convert(row[src[i]], f.Type)
			if ok {
				vals[i] = v
			}
		}
		out[ri] = vals
	}
	return out
}

// Close implements storage.Repository.
func (r *Repository) Close() error { return nil }

var errNoStore = errors.New("parquet: storage.Config.Store is required")
