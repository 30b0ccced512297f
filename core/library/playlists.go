package library

import (
	"context"

	"musicbox/core/events"
	"musicbox/logger"
	"musicbox/model"
	"musicbox/repository"

	"github.com/google/uuid"
)

// PlaylistService 歌单操作；歌曲引用不做校验
type PlaylistService struct {
	repo   repository.PlaylistRepository
	events events.Publisher
}

func (s *PlaylistService) ListPlaylists(ctx context.Context) ([]*model.Playlist, error) {
	return s.repo.ListPlaylists(ctx)
}

func (s *PlaylistService) GetPlaylist(ctx context.Context, id string) (*model.Playlist, error) {
	return s.repo.GetPlaylistByID(ctx, id)
}

// CreatePlaylist accepts an empty song list but not a missing one.
func (s *PlaylistService) CreatePlaylist(ctx context.Context, form *model.CreatePlaylistForm) (*model.Playlist, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	p := &model.Playlist{
		ID:      uuid.NewString(),
		Name:    form.Name,
		SongIDs: append([]string{}, (*form.SongIDs)...),
	}
	if err := s.repo.CreatePlaylist(ctx, p); err != nil {
		return nil, err
	}

	logger.Info("Playlist created",
		logger.String("playlistId", p.ID),
		logger.String("name", p.Name),
		logger.Int("songs", len(p.SongIDs)))
	s.events.Publish(events.Event{Type: events.PlaylistCreated, ID: p.ID, Name: p.Name})
	return p, nil
}

// UpdatePlaylist replaces whichever of name and songIds were supplied.
func (s *PlaylistService) UpdatePlaylist(ctx context.Context, id string, form *model.UpdatePlaylistForm) (*model.Playlist, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	p, err := s.repo.UpdatePlaylist(ctx, id, form.Name, form.SongIDs)
	if err != nil {
		return nil, err
	}

	logger.Info("Playlist updated", logger.String("playlistId", id), logger.String("name", p.Name))
	s.events.Publish(events.Event{Type: events.PlaylistUpdated, ID: p.ID, Name: p.Name})
	return p, nil
}

func (s *PlaylistService) DeletePlaylist(ctx context.Context, id string) error {
	if err := s.repo.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	logger.Info("Playlist deleted", logger.String("playlistId", id))
	s.events.Publish(events.Event{Type: events.PlaylistDeleted, ID: id})
	return nil
}
