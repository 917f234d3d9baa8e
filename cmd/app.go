package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/psycacid/musichub/cache"
	"github.com/psycacid/musichub/core/catalog"
	"github.com/psycacid/musichub/db"
	"github.com/psycacid/musichub/logger"
	"github.com/psycacid/musichub/repository"
	"github.com/psycacid/musichub/storage"
)

// app holds the collaborators shared by the commands.
type app struct {
	conn  *sql.DB
	songs repository.SongRepository
	store storage.Store
	redis *cache.RedisStore
}

// openCatalog connects the database and prepares the schema.
func openCatalog(ctx context.Context) (*sql.DB, error) {
	conn, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.InitDB(ctx, conn, cfg.DBDriver, cfg.AdminPassword); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Info("Catalog database ready", logger.String("driver", cfg.DBDriver))
	return conn, nil
}

// bootstrap wires database, asset store and the optional song cache.
func bootstrap(ctx context.Context) (*app, error) {
	conn, err := openCatalog(ctx)
	if err != nil {
		return nil, err
	}
	a := &app{conn: conn, songs: repository.NewSQLSongRepository(conn)}

	a.store, err = storage.Open(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open asset store: %w", err)
	}
	logger.Info("Asset store ready", logger.String("backend", cfg.StorageBackend))

	if cfg.RedisEnabled {
		a.redis, err = cache.ConnectRedis(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.songs = cache.NewCachedSongRepository(a.songs, a.redis, cfg.SongCacheTTL)
		logger.Info("Song cache enabled",
			logger.String("addr", cfg.RedisAddr()),
			logger.Duration("ttl", cfg.SongCacheTTL))
	}
	return a, nil
}

func (a *app) catalog() *catalog.Service {
	return catalog.NewService(a.songs, a.store)
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("Failed to close Redis", logger.ErrorField(err))
		}
	}
	if err := a.conn.Close(); err != nil {
		logger.Warn("Failed to close database", logger.ErrorField(err))
	}
}
