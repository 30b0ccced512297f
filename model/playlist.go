package model

import "time"

// Playlist is an ordered list of song ids. Ids are soft references: a
// playlist may point at songs that were deleted since.
type Playlist struct {
	ID        string    `json:"_id" gorm:"primaryKey;type:char(36)"`
	Name      string    `json:"name" gorm:"type:varchar(255) COLLATE utf8mb4_bin;not null;uniqueIndex:uq_playlists_name"`
	SongIDs   []string  `json:"songIds" gorm:"column:song_ids;serializer:json;type:json"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

// TableName pins the table name used by GORM.
func (Playlist) TableName() string {
	return "playlists"
}

// Favourite is a liked song with display fields captured at like-time.
type Favourite struct {
	ID        string    `json:"_id"`
	SongID    string    `json:"songId"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
