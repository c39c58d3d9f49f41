package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/Mrassimo/datapilot-sub008/internal/config"
	"github.com/Mrassimo/datapilot-sub008/internal/kb"
	"github.com/Mrassimo/datapilot-sub008/internal/store"
)

// initStore opens the configured run-history backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		poolCfg := &store.PoolConfig{
			MaxConns: cfg.Store.Pool.MaxConns,
			MinConns: cfg.Store.Pool.MinConns,
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, poolCfg)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initKB opens the knowledge-base catalogue.
func initKB(c config.KBConfig) (*kb.KB, error) {
	return kb.Open(c.Path, c.Backups)
}
