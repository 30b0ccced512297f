package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"musicbox/core/classify"
	"musicbox/core/events"
	"musicbox/logger"
	"musicbox/model"
	"musicbox/repository"

	"github.com/google/uuid"
)

// FavouriteService 收藏操作
type FavouriteService struct {
	repo   repository.FavouriteRepository
	songs  repository.SongRepository
	events events.Publisher
}

// ListFavourites resolves favourites against the song store. Favourites
// whose song has been deleted are left out.
func (s *FavouriteService) ListFavourites(ctx context.Context) ([]model.SongSummary, error) {
	favs, err := s.repo.ListFavourites(ctx)
	if err != nil {
		return nil, err
	}
	if len(favs) == 0 {
		return []model.SongSummary{}, nil
	}

	ids := make([]string, 0, len(favs))
	for _, f := range favs {
		ids = append(ids, f.SongID)
	}
	songs, err := s.songs.GetSongsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve favourite songs: %w", err)
	}

	out := make([]model.SongSummary, 0, len(songs))
	for _, song := range songs {
		out = append(out, song.Summary(classify.ResolveSong(song)))
	}
	return out, nil
}

// AddFavourite reports created=false when the song is already a favourite.
func (s *FavouriteService) AddFavourite(ctx context.Context, form *model.AddFavouriteForm) (bool, error) {
	if err := form.Validate(); err != nil {
		return false, err
	}

	name := form.Name
	if name == "" {
		if song, err := s.songs.GetSongByID(ctx, form.SongID); err == nil {
			name = song.Name
		}
	}

	fav := &model.Favourite{
		ID:        uuid.NewString(),
		SongID:    form.SongID,
		Name:      name,
		Image:     form.Image,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.repo.AddFavourite(ctx, fav); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return false, nil
		}
		return false, err
	}

	logger.Info("Favourite added", logger.String("songId", fav.SongID), logger.String("name", fav.Name))
	s.events.Publish(events.Event{Type: events.FavouriteAdded, ID: fav.SongID, Name: fav.Name})
	return true, nil
}

// RemoveFavourite deletes by favourite id or song id. Unknown ids are not an error.
func (s *FavouriteService) RemoveFavourite(ctx context.Context, id string) error {
	if err := s.repo.RemoveFavourite(ctx, id); err != nil {
		return err
	}
	logger.Info("Favourite removed", logger.String("id", id))
	s.events.Publish(events.Event{Type: events.FavouriteRemoved, ID: id})
	return nil
}
