package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"musicbox/db"
	"musicbox/model"
)

// MySQLFavouriteRepository MySQL实现的收藏仓库
type MySQLFavouriteRepository struct {
	db *sql.DB
}

// NewMySQLFavouriteRepository 创建新的MySQL收藏仓库实例
func NewMySQLFavouriteRepository(conn *sql.DB) *MySQLFavouriteRepository {
	return &MySQLFavouriteRepository{db: conn}
}

// ListFavourites 按收藏时间返回全部收藏
func (r *MySQLFavouriteRepository) ListFavourites(ctx context.Context) ([]*model.Favourite, error) {
	query := `SELECT id, song_id, name, image, created_at FROM favourites ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query favourites: %w", err)
	}
	defer rows.Close()

	favs := make([]*model.Favourite, 0)
	for rows.Next() {
		var (
			fav   model.Favourite
			image sql.NullString
		)
		if err := rows.Scan(&fav.ID, &fav.SongID, &fav.Name, &image, &fav.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan favourite: %w", err)
		}
		fav.Image = image.String
		favs = append(favs, &fav)
	}
	return favs, rows.Err()
}

// AddFavourite 添加收藏，song_id 唯一索引冲突时返回 ErrConflict
func (r *MySQLFavouriteRepository) AddFavourite(ctx context.Context, fav *model.Favourite) error {
	query := `INSERT INTO favourites (id, song_id, name, image, created_at) VALUES (?, ?, ?, ?, ?)`

	if fav.CreatedAt.IsZero() {
		fav.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query, fav.ID, fav.SongID, fav.Name, nullString(fav.Image), fav.CreatedAt)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return fmt.Errorf("song %s already in favourites: %w", fav.SongID, model.ErrConflict)
		}
		return fmt.Errorf("failed to insert favourite: %w", err)
	}
	return nil
}

// RemoveFavourite 按收藏ID或歌曲ID删除收藏
func (r *MySQLFavouriteRepository) RemoveFavourite(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM favourites WHERE id = ? OR song_id = ?`, id, id); err != nil {
		return fmt.Errorf("failed to delete favourite %s: %w", id, err)
	}
	return nil
}
