package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"musicbox/db"
	"musicbox/logger"
	"musicbox/model"
)

const songColumns = `id, name, artist, image, category, language, audio_key, created_at, updated_at`

// MySQLSongRepository implements SongRepository for MySQL.
type MySQLSongRepository struct {
	DB *sql.DB
}

// NewMySQLSongRepository creates a new instance of MySQLSongRepository.
func NewMySQLSongRepository(conn *sql.DB) *MySQLSongRepository {
	return &MySQLSongRepository{DB: conn}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSong(row rowScanner) (*model.Song, error) {
	var (
		song                       model.Song
		artist, category, language sql.NullString
	)
	err := row.Scan(&song.ID, &song.Name, &artist, &song.Image, &category, &language,
		&song.AudioKey, &song.CreatedAt, &song.UpdatedAt)
	if err != nil {
		return nil, err
	}
	song.Artist = artist.String
	song.Category = model.Category(category.String)
	song.Language = language.String
	return &song, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateSong adds a new song. The unique key on name turns a duplicate into ErrConflict.
func (r *MySQLSongRepository) CreateSong(ctx context.Context, song *model.Song) error {
	query := `INSERT INTO songs (` + songColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if song.CreatedAt.IsZero() {
		song.CreatedAt = time.Now().UTC()
	}
	if song.UpdatedAt.IsZero() {
		song.UpdatedAt = song.CreatedAt
	}

	var image interface{}
	if len(song.Image) > 0 {
		image = song.Image
	}

	_, err := r.DB.ExecContext(ctx, query,
		song.ID, song.Name, nullString(song.Artist), image, nullString(string(song.Category)),
		nullString(song.Language), song.AudioKey, song.CreatedAt, song.UpdatedAt)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return fmt.Errorf("song %q already exists: %w", song.Name, model.ErrConflict)
		}
		return fmt.Errorf("failed to execute CreateSong: %w", err)
	}
	logger.Debug("Song row inserted", logger.String("id", song.ID), logger.String("name", song.Name))
	return nil
}

// GetSongByID retrieves a song by its ID.
func (r *MySQLSongRepository) GetSongByID(ctx context.Context, id string) (*model.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE id = ?`
	song, err := scanSong(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("song %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan song by ID %s: %w", id, err)
	}
	return song, nil
}

// GetSongsByIDs retrieves the songs that still exist among ids.
func (r *MySQLSongRepository) GetSongsByIDs(ctx context.Context, ids []string) ([]*model.Song, error) {
	if len(ids) == 0 {
		return []*model.Song{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + songColumns + ` FROM songs WHERE id IN (` + placeholders + `)`
	return r.querySongs(ctx, "GetSongsByIDs", query, args...)
}

// ListSongs retrieves all songs ordered by creation time, newest first.
func (r *MySQLSongRepository) ListSongs(ctx context.Context) ([]*model.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs ORDER BY created_at DESC, id DESC`
	return r.querySongs(ctx, "ListSongs", query)
}

// ListSongsMissingCategory retrieves songs whose category is absent.
func (r *MySQLSongRepository) ListSongsMissingCategory(ctx context.Context) ([]*model.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE category IS NULL OR category = '' ORDER BY created_at ASC`
	return r.querySongs(ctx, "ListSongsMissingCategory", query)
}

func (r *MySQLSongRepository) querySongs(ctx context.Context, op, query string, args ...interface{}) ([]*model.Song, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs in %s: %w", op, err)
	}
	defer rows.Close()

	songs := make([]*model.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song in %s: %w", op, err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in %s: %w", op, err)
	}
	return songs, nil
}

// UpdateSongCategory sets the category of a song.
func (r *MySQLSongRepository) UpdateSongCategory(ctx context.Context, id string, category model.Category) error {
	query := `UPDATE songs SET category = ?, updated_at = ? WHERE id = ?`
	res, err := r.DB.ExecContext(ctx, query, nullString(string(category)), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateSongCategory for song %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for UpdateSongCategory: %w", err)
	}
	if n > 0 {
		return nil
	}

	// MySQL 对未变化的行返回 0，需要确认记录是否还在
	var exists int
	err = r.DB.QueryRowContext(ctx, `SELECT 1 FROM songs WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("song %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check song %s after UpdateSongCategory: %w", id, err)
	}
	return nil
}

// DeleteSong removes a song record.
func (r *MySQLSongRepository) DeleteSong(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to execute DeleteSong for song %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for DeleteSong: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("song %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// Ping checks the database connection.
func (r *MySQLSongRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}
