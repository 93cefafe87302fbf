package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-cli/internal/assessment"
	"github.com/sells-group/esg-cli/internal/store"
	"github.com/sells-group/esg-cli/internal/supplier"
)

func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "memory":
		st = store.NewMemory()
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func newAssessments(st store.Store) *assessment.Service {
	return assessment.New(st, assessment.Options{
		LockAfterSubmit: cfg.Assessment.LockAfterSubmit,
		RecentLimit:     cfg.Dashboard.RecentLimit,
		Retry:           cfg.Retry.Resilience(),
	})
}

func newSuppliers(st store.Store) *supplier.Service {
	return supplier.New(st, cfg.Retry.Resilience())
}
