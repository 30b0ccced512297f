package model

import (
	"encoding/base64"
	"time"
)

// Category buckets a song for UI grouping. The empty value means the song
// still needs classification.
type Category string

const (
	CategoryNone   Category = ""
	CategoryLocal  Category = "local"
	CategoryGlobal Category = "global"
)

// Valid reports whether c is one of the two concrete categories.
func (c Category) Valid() bool {
	return c == CategoryLocal || c == CategoryGlobal
}

// Song represents an uploaded song. Audio lives in the audio store under
// AudioKey and is only populated on the way in.
type Song struct {
	ID        string
	Name      string
	Artist    string
	Image     []byte
	Category  Category
	Language  string
	AudioKey  string
	Audio     []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SongSummary is the JSON shape used by listings and upload responses.
// It never carries audio.
type SongSummary struct {
	ID                string    `json:"_id"`
	Name              string    `json:"name"`
	Artist            *string   `json:"artist"`
	Category          *string   `json:"category"`
	EffectiveCategory Category  `json:"effectiveCategory"`
	Language          *string   `json:"language"`
	Image             *string   `json:"image"` // base64, no data: prefix
	CreatedAt         time.Time `json:"createdAt"`
}

// Summary converts the song to its JSON shape. effective is the category
// resolved by the categorization policy.
func (s *Song) Summary(effective Category) SongSummary {
	return SongSummary{
		ID:                s.ID,
		Name:              s.Name,
		Artist:            nullable(s.Artist),
		Category:          nullable(string(s.Category)),
		EffectiveCategory: effective,
		Language:          nullable(s.Language),
		Image:             encodeImage(s.Image),
		CreatedAt:         s.CreatedAt,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func encodeImage(b []byte) *string {
	if len(b) == 0 {
		return nil
	}
	enc := base64.StdEncoding.EncodeToString(b)
	return &enc
}
