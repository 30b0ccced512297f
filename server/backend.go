package server

import (
	"context"
	"fmt"
	"time"

	"musicbox/cache"
	"musicbox/config"
	"musicbox/core/events"
	"musicbox/core/library"
	"musicbox/db"
	"musicbox/logger"
	"musicbox/model"
	"musicbox/repository"
	"musicbox/repository/memory"
	"musicbox/storage"
)

// Backend 已连接的存储及其上的服务，供 HTTP 服务器和 CLI 共用
type Backend struct {
	Services *library.Services
	Audio    storage.AudioStore
	Minio    *storage.MinioAudioStore // nil for the memory backend

	closers []func() error
}

// OpenBackend connects the stores selected by cfg and builds the services.
// pub may be nil.
func OpenBackend(ctx context.Context, cfg *config.Config, pub events.Publisher) (*Backend, error) {
	b := &Backend{}
	deps := library.Deps{Events: pub}

	switch cfg.StoreBackend {
	case config.StoreMemory:
		logger.Warn("Using in-memory store; data is lost on exit")
		deps.Songs = memory.NewSongRepository()
		deps.Playlists = memory.NewPlaylistRepository()
		deps.Favourites = memory.NewFavouriteRepository()
		b.Audio = storage.NewMemoryAudioStore()

	case config.StoreMySQL:
		if err := b.openMySQL(cfg, &deps); err != nil {
			b.Close()
			return nil, err
		}
		minioStore, err := storage.NewMinioAudioStore(cfg)
		if err != nil {
			b.Close()
			return nil, err
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.Minio = minioStore
		b.Audio = minioStore

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	deps.Audio = b.Audio

	if cfg.RedisEnabled() {
		if err := db.ConnectRedis(cfg); err != nil {
			logger.Warn("Redis unavailable, song list cache disabled", logger.ErrorField(err))
		} else {
			ttl := time.Duration(cfg.SongCacheTTLSeconds) * time.Second
			deps.Cache = cache.NewSongListCache(db.RedisClient, ttl)
			b.closers = append(b.closers, db.CloseRedis)
			logger.Info("Song list cache enabled", logger.Duration("ttl", ttl))
		}
	}

	b.Services = library.New(deps)
	return b, nil
}

func (b *Backend) openMySQL(cfg *config.Config, deps *library.Deps) error {
	if err := db.ConnectDB(cfg); err != nil {
		return err
	}
	b.closers = append(b.closers, db.CloseDB)
	if err := db.InitDB(); err != nil {
		return err
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		return err
	}
	b.closers = append(b.closers, db.CloseGormDB)
	if err := db.AutoMigrateModels(&model.Playlist{}); err != nil {
		return err
	}

	deps.Songs = repository.NewMySQLSongRepository(db.DB)
	deps.Favourites = repository.NewMySQLFavouriteRepository(db.DB)
	deps.Playlists = repository.NewGormPlaylistRepository(db.GormDB)
	return nil
}

// Close releases connections in reverse order of opening.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logger.Warn("Failed to close connection", logger.ErrorField(err))
		}
	}
	b.closers = nil
}
