package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"musicbox/core/classify"
	"musicbox/core/events"
	"musicbox/logger"
	"musicbox/model"
	"musicbox/repository"
	"musicbox/storage"

	"github.com/google/uuid"
)

// SongService 歌曲相关操作
type SongService struct {
	repo   repository.SongRepository
	audio  storage.AudioStore
	cache  SongCache
	events events.Publisher
	maint  *sync.Mutex // serializes FixMissingCategories and DeduplicateByName
}

// FixResult is reported by FixMissingCategories.
type FixResult struct {
	UpdatedCount int `json:"updatedCount"`
	TotalChecked int `json:"totalChecked"`
}

// CleanupResult is reported by DeduplicateByName.
type CleanupResult struct {
	DuplicatesRemoved int `json:"duplicatesRemoved"`
	TotalSongsBefore  int `json:"totalSongsBefore"`
	TotalSongsAfter   int `json:"totalSongsAfter"`
}

// ListSongs returns every song newest first, without audio.
func (s *SongService) ListSongs(ctx context.Context) ([]model.SongSummary, error) {
	var (
		gen       int64
		cacheable bool
	)
	if s.cache != nil {
		if cached, ok := s.cache.GetSongs(ctx); ok {
			return cached, nil
		}
		// 代数必须在读库之前取得
		gen, cacheable = s.cache.Generation(ctx)
	}

	songs, err := s.repo.ListSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	out := make([]model.SongSummary, 0, len(songs))
	for _, song := range songs {
		out = append(out, song.Summary(classify.ResolveSong(song)))
	}

	if cacheable {
		s.cache.SetSongs(ctx, gen, out)
	}
	return out, nil
}

// GetSongAudio returns the audio bytes of a song. A song whose audio object
// is missing is reported as not found.
func (s *SongService) GetSongAudio(ctx context.Context, id string) ([]byte, error) {
	song, err := s.repo.GetSongByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if song.AudioKey == "" {
		return nil, fmt.Errorf("song %s has no audio: %w", id, model.ErrNotFound)
	}
	return s.audio.GetAudio(ctx, song.AudioKey)
}

// CreateSong validates the upload, stores the record and then its audio.
// The persisted category is always the resolved one.
func (s *SongService) CreateSong(ctx context.Context, form *model.CreateSongForm) (*model.Song, error) {
	form.Normalize()
	if err := form.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)
	song := &model.Song{
		ID:        id,
		Name:      form.Name,
		Artist:    form.Artist,
		Image:     form.Image,
		Category:  classify.Resolve(form.Category, form.Language, form.Name, form.Artist),
		Language:  form.Language,
		AudioKey:  storage.AudioKey(id),
		CreatedAt: now,
		UpdatedAt: now,
	}

	// 唯一索引负责名称冲突检测，先写记录再传音频
	if err := s.repo.CreateSong(ctx, song); err != nil {
		return nil, err
	}
	if err := s.audio.PutAudio(ctx, song.AudioKey, form.Audio); err != nil {
		if rbErr := s.repo.DeleteSong(ctx, id); rbErr != nil {
			logger.Error("Failed to roll back song record after audio upload failure",
				logger.String("songId", id),
				logger.ErrorField(rbErr))
		}
		return nil, fmt.Errorf("failed to store audio for %q: %w", song.Name, err)
	}

	logger.Info("Song created",
		logger.String("songId", id),
		logger.String("name", song.Name),
		logger.String("category", string(song.Category)),
		logger.Int("audioBytes", len(form.Audio)))

	s.changed(ctx, events.Event{Type: events.SongAdded, ID: id, Name: song.Name})
	return song, nil
}

// DeleteSong removes the record and its audio. Playlists and favourites
// that reference the song are left alone.
func (s *SongService) DeleteSong(ctx context.Context, id string) error {
	song, err := s.repo.GetSongByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSong(ctx, id); err != nil {
		return err
	}
	s.removeAudio(ctx, song)

	logger.Info("Song deleted", logger.String("songId", id), logger.String("name", song.Name))
	s.changed(ctx, events.Event{Type: events.SongDeleted, ID: id, Name: song.Name})
	return nil
}

func (s *SongService) removeAudio(ctx context.Context, song *model.Song) {
	if song.AudioKey == "" {
		return
	}
	if err := s.audio.DeleteAudio(ctx, song.AudioKey); err != nil && !errors.Is(err, model.ErrNotFound) {
		logger.Warn("Failed to delete audio object",
			logger.String("songId", song.ID),
			logger.String("key", song.AudioKey),
			logger.ErrorField(err))
	}
}

// FixMissingCategories persists a resolved category for every song that has
// none. Running it again updates nothing.
func (s *SongService) FixMissingCategories(ctx context.Context) (FixResult, error) {
	s.maint.Lock()
	defer s.maint.Unlock()

	var res FixResult
	songs, err := s.repo.ListSongsMissingCategory(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list uncategorized songs: %w", err)
	}
	res.TotalChecked = len(songs)

	for _, song := range songs {
		category := classify.Resolve(model.CategoryNone, song.Language, song.Name, song.Artist)
		if err := s.repo.UpdateSongCategory(ctx, song.ID, category); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				logger.Debug("Song removed before categorization", logger.String("songId", song.ID))
				continue
			}
			s.bulkChanged(ctx, res.UpdatedCount)
			return res, fmt.Errorf("failed to update category of %s: %w", song.ID, err)
		}
		res.UpdatedCount++
		logger.Debug("Song categorized",
			logger.String("songId", song.ID),
			logger.String("name", song.Name),
			logger.String("category", string(category)))
	}

	logger.Info("Category fix finished",
		logger.Int("updatedCount", res.UpdatedCount),
		logger.Int("totalChecked", res.TotalChecked))
	s.bulkChanged(ctx, res.UpdatedCount)
	return res, nil
}

// DeduplicateByName keeps the oldest song of every name and deletes the
// rest with their audio. A failure stops the run; deletions already made stay.
func (s *SongService) DeduplicateByName(ctx context.Context) (CleanupResult, error) {
	s.maint.Lock()
	defer s.maint.Unlock()

	var res CleanupResult
	songs, err := s.repo.ListSongs(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list songs: %w", err)
	}
	res.TotalSongsBefore = len(songs)

	sort.SliceStable(songs, func(i, j int) bool {
		if !songs[i].CreatedAt.Equal(songs[j].CreatedAt) {
			return songs[i].CreatedAt.Before(songs[j].CreatedAt)
		}
		return songs[i].ID < songs[j].ID
	})

	kept := make(map[string]string, len(songs))
	for _, song := range songs {
		keeperID, dup := kept[song.Name]
		if !dup {
			kept[song.Name] = song.ID
			continue
		}

		if err := s.repo.DeleteSong(ctx, song.ID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			res.TotalSongsAfter = res.TotalSongsBefore - res.DuplicatesRemoved
			s.bulkChanged(ctx, res.DuplicatesRemoved)
			return res, fmt.Errorf("failed to delete duplicate %s: %w", song.ID, err)
		}
		s.removeAudio(ctx, song)
		res.DuplicatesRemoved++
		logger.Info("Duplicate song removed",
			logger.String("songId", song.ID),
			logger.String("name", song.Name),
			logger.String("keptId", keeperID))
	}
	res.TotalSongsAfter = res.TotalSongsBefore - res.DuplicatesRemoved

	logger.Info("Duplicate cleanup finished",
		logger.Int("duplicatesRemoved", res.DuplicatesRemoved),
		logger.Int("totalSongsBefore", res.TotalSongsBefore),
		logger.Int("totalSongsAfter", res.TotalSongsAfter))
	s.bulkChanged(ctx, res.DuplicatesRemoved)
	return res, nil
}

// Ping reports whether the song store is reachable.
func (s *SongService) Ping(ctx context.Context) error {
	if p, ok := s.repo.(repository.Pinger); ok {
		return p.Ping(ctx)
	}
	_, err := s.repo.ListSongsMissingCategory(ctx)
	return err
}

func (s *SongService) changed(ctx context.Context, e events.Event) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	s.events.Publish(e)
}

func (s *SongService) bulkChanged(ctx context.Context, n int) {
	if n == 0 {
		return
	}
	s.changed(ctx, events.Event{Type: events.SongsChanged, Count: n})
}
