package parquet

import (
	"context"

	"datalake/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

func (w *wrappedRepo) Close() error {
	if w.closeFn != nil {
		w.closeFn()
	}
	return nil
}

func init() {
	storage.Register("parquet", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		if cfg.Store == nil {
			return nil, errNoStore
		}
		r, closeFn, err := newRepository(ctx, Config{
			Store:   cfg.Store,
			Workers: cfg.WriterWorkers,
			RunID:   cfg.RunID,
			Logger:  cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
}
