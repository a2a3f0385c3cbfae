// Package bootstrap holds the wiring shared by the bot and the admin CLI.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"search-chatter/internal/config"
	"search-chatter/internal/store"
	"search-chatter/internal/store/sqlstore"
)

// NewLogger builds a production zap logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}

// OpenStore opens the configured persistence backend.
func OpenStore(ctx context.Context, cfg *config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return store.NewFileStore(cfg.Path(cfg.ChannelsFile), cfg.Path(cfg.UsersFile), cfg.Path(cfg.StatsFile))
	case config.BackendSQLite:
		return sqlstore.Open(ctx, sqlstore.SQLite, cfg.SQLitePath)
	case config.BackendPostgres:
		return sqlstore.Open(ctx, sqlstore.Postgres, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}
