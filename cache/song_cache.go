package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"musicbox/logger"
	"musicbox/model"

	"github.com/go-redis/redis/v8"
)

const (
	// SongListKey 歌曲列表缓存的Redis键
	SongListKey = "musicbox:songs:summaries"
	// SongGenKey counts invalidations; a listing is only cached if it did not move.
	SongGenKey = "musicbox:songs:gen"
)

var errStaleListing = errors.New("song list generation changed")

// SongListCache 缓存歌曲列表（不含音频），任何写操作后失效
type SongListCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSongListCache 创建歌曲列表缓存
func NewSongListCache(client *redis.Client, ttl time.Duration) *SongListCache {
	return &SongListCache{client: client, ttl: ttl}
}

// GetSongs returns the cached listing; ok is false on a miss or any Redis error.
func (c *SongListCache) GetSongs(ctx context.Context) ([]model.SongSummary, bool) {
	raw, err := c.client.Get(ctx, SongListKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Song list cache read failed", logger.ErrorField(err))
		}
		return nil, false
	}

	var songs []model.SongSummary
	if err := json.Unmarshal(raw, &songs); err != nil {
		logger.Warn("Song list cache entry is corrupt", logger.ErrorField(err))
		return nil, false
	}
	return songs, true
}

// Generation returns the current invalidation counter. ok is false when
// Redis cannot be read, in which case the caller should not cache.
func (c *SongListCache) Generation(ctx context.Context) (int64, bool) {
	gen, err := c.client.Get(ctx, SongGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Warn("Song list cache generation read failed", logger.ErrorField(err))
		return 0, false
	}
	return gen, true
}

// SetSongs stores the listing with the configured TTL, but only if no
// invalidation happened since gen was read.
func (c *SongListCache) SetSongs(ctx context.Context, gen int64, songs []model.SongSummary) {
	raw, err := json.Marshal(songs)
	if err != nil {
		logger.Warn("Failed to marshal song list for cache", logger.ErrorField(err))
		return
	}

	// WATCH 保证读取代数与写入之间没有失效操作
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, SongGenKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleListing
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, SongListKey, raw, c.ttl)
			return nil
		})
		return err
	}, SongGenKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleListing), errors.Is(err, redis.TxFailedErr):
		logger.Debug("Song list changed while listing, not cached")
	default:
		logger.Warn("Song list cache write failed", logger.ErrorField(err))
	}
}

// Invalidate drops the cached listing and bumps the generation so that
// listings read before this call are never written back.
func (c *SongListCache) Invalidate(ctx context.Context) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, SongGenKey)
		pipe.Del(ctx, SongListKey)
		return nil
	})
	if err != nil {
		logger.Warn("Song list cache invalidation failed", logger.ErrorField(err))
	}
}
