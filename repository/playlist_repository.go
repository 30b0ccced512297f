package repository

import (
	"context"
	"errors"
	"fmt"

	"musicbox/db"
	"musicbox/model"

	"gorm.io/gorm"
)

// GormPlaylistRepository stores playlists through GORM; song ids are a JSON column.
type GormPlaylistRepository struct {
	db *gorm.DB
}

// NewGormPlaylistRepository creates a playlist repository on top of conn.
func NewGormPlaylistRepository(conn *gorm.DB) *GormPlaylistRepository {
	return &GormPlaylistRepository{db: conn}
}

func mapPlaylistError(op, id string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("playlist %s: %w", id, model.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey), db.IsDuplicateKey(err):
		return fmt.Errorf("playlist name already exists: %w", model.ErrConflict)
	default:
		return fmt.Errorf("failed to %s playlist: %w", op, err)
	}
}

func (r *GormPlaylistRepository) ListPlaylists(ctx context.Context) ([]*model.Playlist, error) {
	playlists := make([]*model.Playlist, 0)
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&playlists).Error; err != nil {
		return nil, mapPlaylistError("list", "", err)
	}
	return playlists, nil
}

func (r *GormPlaylistRepository) GetPlaylistByID(ctx context.Context, id string) (*model.Playlist, error) {
	var p model.Playlist
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, mapPlaylistError("get", id, err)
	}
	return &p, nil
}

func (r *GormPlaylistRepository) CreatePlaylist(ctx context.Context, playlist *model.Playlist) error {
	if err := r.db.WithContext(ctx).Create(playlist).Error; err != nil {
		return mapPlaylistError("create", playlist.ID, err)
	}
	return nil
}

func (r *GormPlaylistRepository) UpdatePlaylist(ctx context.Context, id string, name *string, songIDs *[]string) (*model.Playlist, error) {
	var updated *model.Playlist
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Playlist
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			return err
		}
		if name != nil {
			p.Name = *name
		}
		if songIDs != nil {
			p.SongIDs = *songIDs
		}
		if err := tx.Save(&p).Error; err != nil {
			return err
		}
		updated = &p
		return nil
	})
	if err != nil {
		return nil, mapPlaylistError("update", id, err)
	}
	return updated, nil
}

func (r *GormPlaylistRepository) DeletePlaylist(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Playlist{})
	if res.Error != nil {
		return mapPlaylistError("delete", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("playlist %s: %w", id, model.ErrNotFound)
	}
	return nil
}
