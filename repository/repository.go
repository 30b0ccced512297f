// Package repository holds the store accessors for songs, playlists and
// favourites. Implementations return model.ErrNotFound and
// model.ErrConflict (wrapped) so callers never see driver errors for the
// cases they must handle.
package repository

import (
	"context"

	"musicbox/model"
)

// SongRepository defines the interface for song record operations.
// Audio bytes are not stored here; records only keep the audio key.
type SongRepository interface {
	// CreateSong inserts a song. A duplicate name yields model.ErrConflict.
	CreateSong(ctx context.Context, song *model.Song) error
	GetSongByID(ctx context.Context, id string) (*model.Song, error)
	// GetSongsByIDs skips ids that do not exist.
	GetSongsByIDs(ctx context.Context, ids []string) ([]*model.Song, error)
	// ListSongs returns every song, newest first.
	ListSongs(ctx context.Context) ([]*model.Song, error)
	// ListSongsMissingCategory returns songs whose category is null or empty.
	ListSongsMissingCategory(ctx context.Context) ([]*model.Song, error)
	UpdateSongCategory(ctx context.Context, id string, category model.Category) error
	DeleteSong(ctx context.Context, id string) error
}

// PlaylistRepository defines the interface for playlist operations.
type PlaylistRepository interface {
	ListPlaylists(ctx context.Context) ([]*model.Playlist, error)
	GetPlaylistByID(ctx context.Context, id string) (*model.Playlist, error)
	CreatePlaylist(ctx context.Context, playlist *model.Playlist) error
	// UpdatePlaylist replaces the non-nil fields and returns the updated playlist.
	UpdatePlaylist(ctx context.Context, id string, name *string, songIDs *[]string) (*model.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
}

// FavouriteRepository defines the interface for favourite operations.
type FavouriteRepository interface {
	ListFavourites(ctx context.Context) ([]*model.Favourite, error)
	// AddFavourite yields model.ErrConflict when the song is already a favourite.
	AddFavourite(ctx context.Context, fav *model.Favourite) error
	// RemoveFavourite deletes the favourite whose id or song id matches.
	RemoveFavourite(ctx context.Context, id string) error
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}
