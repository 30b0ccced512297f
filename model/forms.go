package model

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxNameLength = 255

// CreateSongForm carries an upload before it becomes a Song.
type CreateSongForm struct {
	Name     string   `json:"name"`
	Artist   string   `json:"artist"`
	Category Category `json:"category"`
	Language string   `json:"language"`
	Audio    []byte   `json:"audio"`
	Image    []byte   `json:"image"`
}

// Normalize trims free-text fields and lower-cases the category.
func (f *CreateSongForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Artist = strings.TrimSpace(f.Artist)
	f.Language = strings.TrimSpace(f.Language)
	f.Category = Category(strings.ToLower(strings.TrimSpace(string(f.Category))))
}

func (f *CreateSongForm) Validate() error {
	return invalid(validation.ValidateStruct(f,
		validation.Field(&f.Name, validation.Required, validation.Length(1, maxNameLength)),
		validation.Field(&f.Audio, validation.Required.Error("audio file is required")),
		validation.Field(&f.Category, validation.In(CategoryLocal, CategoryGlobal).Error("must be local or global")),
		validation.Field(&f.Artist, validation.Length(0, maxNameLength)),
	))
}

// CreatePlaylistForm is the body of POST /playlists. SongIDs is a pointer so
// that a missing or null array can be told apart from an empty one.
type CreatePlaylistForm struct {
	Name    string    `json:"name"`
	SongIDs *[]string `json:"songIds"`
}

func (f *CreatePlaylistForm) Validate() error {
	f.Name = strings.TrimSpace(f.Name)
	return invalid(validation.ValidateStruct(f,
		validation.Field(&f.Name, validation.Required, validation.Length(1, maxNameLength)),
		validation.Field(&f.SongIDs, validation.NotNil.Error("must be an array")),
	))
}

// UpdatePlaylistForm is the body of PUT /playlists/{id}; nil fields are left as they are.
type UpdatePlaylistForm struct {
	Name    *string   `json:"name"`
	SongIDs *[]string `json:"songIds"`
}

func (f *UpdatePlaylistForm) Validate() error {
	if f.Name != nil {
		trimmed := strings.TrimSpace(*f.Name)
		f.Name = &trimmed
	}
	return invalid(validation.ValidateStruct(f,
		validation.Field(&f.Name, validation.NilOrNotEmpty, validation.Length(1, maxNameLength)),
	))
}

// AddFavouriteForm is the body of POST /favourites.
type AddFavouriteForm struct {
	SongID string `json:"songId"`
	Name   string `json:"name"`
	Image  string `json:"image"`
}

func (f *AddFavouriteForm) Validate() error {
	f.SongID = strings.TrimSpace(f.SongID)
	return invalid(validation.ValidateStruct(f,
		validation.Field(&f.SongID, validation.Required),
	))
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
