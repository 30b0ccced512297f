// Package memory implements the repository interfaces in process. It backs
// STORE_BACKEND=memory and the package tests, and enforces the same
// uniqueness rules as the MySQL schema.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"musicbox/model"
)

// SongRepository is an in-memory repository.SongRepository.
type SongRepository struct {
	mu    sync.RWMutex
	songs map[string]*model.Song
	seq   map[string]int // insertion order, used to break createdAt ties
	next  int
}

// NewSongRepository creates a song store pre-loaded with seed. Seed records
// bypass the name uniqueness check so that legacy data with duplicates can
// be represented.
func NewSongRepository(seed ...*model.Song) *SongRepository {
	r := &SongRepository{songs: make(map[string]*model.Song), seq: make(map[string]int)}
	for _, s := range seed {
		r.put(cloneSong(s))
	}
	return r
}

func (r *SongRepository) put(s *model.Song) {
	r.songs[s.ID] = s
	r.seq[s.ID] = r.next
	r.next++
}

func cloneSong(s *model.Song) *model.Song {
	c := *s
	c.Audio = nil
	if s.Image != nil {
		c.Image = append([]byte(nil), s.Image...)
	}
	return &c
}

func (r *SongRepository) CreateSong(_ context.Context, song *model.Song) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.songs {
		if s.Name == song.Name {
			return fmt.Errorf("song %q already exists: %w", song.Name, model.ErrConflict)
		}
	}
	if song.CreatedAt.IsZero() {
		song.CreatedAt = time.Now().UTC()
	}
	if song.UpdatedAt.IsZero() {
		song.UpdatedAt = song.CreatedAt
	}
	r.put(cloneSong(song))
	return nil
}

func (r *SongRepository) GetSongByID(_ context.Context, id string) (*model.Song, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.songs[id]
	if !ok {
		return nil, fmt.Errorf("song %s: %w", id, model.ErrNotFound)
	}
	return cloneSong(s), nil
}

func (r *SongRepository) GetSongsByIDs(_ context.Context, ids []string) ([]*model.Song, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Song, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if s, ok := r.songs[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, cloneSong(s))
		}
	}
	return out, nil
}

// ListSongs returns songs newest first.
func (r *SongRepository) ListSongs(_ context.Context) ([]*model.Song, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Song, 0, len(r.songs))
	for _, s := range r.songs {
		out = append(out, cloneSong(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return r.seq[out[i].ID] > r.seq[out[j].ID]
	})
	return out, nil
}

func (r *SongRepository) ListSongsMissingCategory(ctx context.Context) ([]*model.Song, error) {
	all, err := r.ListSongs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Song, 0)
	for _, s := range all {
		if s.Category == model.CategoryNone {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *SongRepository) UpdateSongCategory(_ context.Context, id string, category model.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.songs[id]
	if !ok {
		return fmt.Errorf("song %s: %w", id, model.ErrNotFound)
	}
	s.Category = category
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *SongRepository) DeleteSong(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.songs[id]; !ok {
		return fmt.Errorf("song %s: %w", id, model.ErrNotFound)
	}
	delete(r.songs, id)
	delete(r.seq, id)
	return nil
}

// Ping always succeeds.
func (r *SongRepository) Ping(context.Context) error { return nil }

// PlaylistRepository is an in-memory repository.PlaylistRepository.
type PlaylistRepository struct {
	mu        sync.RWMutex
	playlists []*model.Playlist
}

func NewPlaylistRepository() *PlaylistRepository {
	return &PlaylistRepository{}
}

func clonePlaylist(p *model.Playlist) *model.Playlist {
	c := *p
	c.SongIDs = append([]string{}, p.SongIDs...)
	return &c
}

func (r *PlaylistRepository) find(id string) (int, bool) {
	for i, p := range r.playlists {
		if p.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (r *PlaylistRepository) nameTaken(name, exceptID string) bool {
	for _, p := range r.playlists {
		if p.Name == name && p.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *PlaylistRepository) ListPlaylists(context.Context) ([]*model.Playlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Playlist, 0, len(r.playlists))
	for _, p := range r.playlists {
		out = append(out, clonePlaylist(p))
	}
	return out, nil
}

func (r *PlaylistRepository) GetPlaylistByID(_ context.Context, id string) (*model.Playlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.find(id)
	if !ok {
		return nil, fmt.Errorf("playlist %s: %w", id, model.ErrNotFound)
	}
	return clonePlaylist(r.playlists[i]), nil
}

func (r *PlaylistRepository) CreatePlaylist(_ context.Context, playlist *model.Playlist) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(playlist.Name, "") {
		return fmt.Errorf("playlist name already exists: %w", model.ErrConflict)
	}
	now := time.Now().UTC()
	if playlist.CreatedAt.IsZero() {
		playlist.CreatedAt = now
	}
	playlist.UpdatedAt = now
	r.playlists = append(r.playlists, clonePlaylist(playlist))
	return nil
}

func (r *PlaylistRepository) UpdatePlaylist(_ context.Context, id string, name *string, songIDs *[]string) (*model.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.find(id)
	if !ok {
		return nil, fmt.Errorf("playlist %s: %w", id, model.ErrNotFound)
	}
	p := r.playlists[i]
	if name != nil {
		if r.nameTaken(*name, id) {
			return nil, fmt.Errorf("playlist name already exists: %w", model.ErrConflict)
		}
		p.Name = *name
	}
	if songIDs != nil {
		p.SongIDs = append([]string{}, (*songIDs)...)
	}
	p.UpdatedAt = time.Now().UTC()
	return clonePlaylist(p), nil
}

func (r *PlaylistRepository) DeletePlaylist(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.find(id)
	if !ok {
		return fmt.Errorf("playlist %s: %w", id, model.ErrNotFound)
	}
	r.playlists = append(r.playlists[:i], r.playlists[i+1:]...)
	return nil
}

// FavouriteRepository is an in-memory repository.FavouriteRepository.
type FavouriteRepository struct {
	mu   sync.RWMutex
	favs []*model.Favourite
}

func NewFavouriteRepository() *FavouriteRepository {
	return &FavouriteRepository{}
}

func (r *FavouriteRepository) ListFavourites(context.Context) ([]*model.Favourite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Favourite, 0, len(r.favs))
	for _, f := range r.favs {
		c := *f
		out = append(out, &c)
	}
	return out, nil
}

func (r *FavouriteRepository) AddFavourite(_ context.Context, fav *model.Favourite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range r.favs {
		if f.SongID == fav.SongID {
			return fmt.Errorf("song %s already in favourites: %w", fav.SongID, model.ErrConflict)
		}
	}
	if fav.CreatedAt.IsZero() {
		fav.CreatedAt = time.Now().UTC()
	}
	c := *fav
	r.favs = append(r.favs, &c)
	return nil
}

func (r *FavouriteRepository) RemoveFavourite(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.favs[:0]
	for _, f := range r.favs {
		if f.ID != id && f.SongID != id {
			kept = append(kept, f)
		}
	}
	r.favs = kept
	return nil
}
