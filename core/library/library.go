// Package library implements the song, playlist and favourite operations on
// top of the repositories, the audio store and the optional summary cache.
package library

import (
	"context"
	"sync"

	"musicbox/core/events"
	"musicbox/model"
	"musicbox/repository"
	"musicbox/storage"
)

// SongCache caches the song listing. Implementations swallow their own errors.
// SetSongs must drop the write if Invalidate ran after gen was read.
type SongCache interface {
	GetSongs(ctx context.Context) ([]model.SongSummary, bool)
	Generation(ctx context.Context) (gen int64, ok bool)
	SetSongs(ctx context.Context, gen int64, songs []model.SongSummary)
	Invalidate(ctx context.Context)
}

// Deps 构建服务所需的依赖；Cache 和 Events 可为空
type Deps struct {
	Songs      repository.SongRepository
	Playlists  repository.PlaylistRepository
	Favourites repository.FavouriteRepository
	Audio      storage.AudioStore
	Cache      SongCache
	Events     events.Publisher
}

// Services groups the three services sharing one set of dependencies.
type Services struct {
	Songs      *SongService
	Playlists  *PlaylistService
	Favourites *FavouriteService
}

// New wires the services.
func New(d Deps) *Services {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	return &Services{
		Songs: &SongService{
			repo:   d.Songs,
			audio:  d.Audio,
			cache:  d.Cache,
			events: d.Events,
			maint:  &sync.Mutex{},
		},
		Playlists: &PlaylistService{
			repo:   d.Playlists,
			events: d.Events,
		},
		Favourites: &FavouriteService{
			repo:   d.Favourites,
			songs:  d.Songs,
			events: d.Events,
		},
	}
}
