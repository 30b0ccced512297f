package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"musicbox/config"
	"musicbox/logger"

	"github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// DSN builds the MySQL data source name shared by database/sql and GORM.
func DSN(cfg *config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	var err error
	DB, err = sql.Open("mysql", DSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxIdleConns(10)
	DB.SetMaxOpenConns(50)
	DB.SetConnMaxLifetime(time.Hour)

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Successfully connected to the database.", logger.String("host", cfg.DBHost), logger.String("db", cfg.DBName))
	return nil
}

// CloseDB closes the shared connection pool.
func CloseDB() error {
	if DB == nil {
		return nil
	}
	return DB.Close()
}

// IsDuplicateKey reports whether err is a MySQL unique constraint violation.
func IsDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// InitDB creates the songs and favourites tables. Playlists are migrated by GORM.
func InitDB() error {
	if err := createSongsTable(); err != nil {
		return err
	}
	if err := createFavouritesTable(); err != nil {
		return err
	}
	// Tables created before the unique keys existed may still hold duplicates.
	ensureUniqueIndex("songs", "uq_songs_name", "name")
	ensureUniqueIndex("favourites", "uq_favourites_song", "song_id")

	logger.Info("Database initialization completed.")
	return nil
}

func createSongsTable() error {
	// name uses a binary collation so uniqueness is a case-sensitive exact match.
	query := `
	CREATE TABLE IF NOT EXISTS songs (
		id CHAR(36) NOT NULL PRIMARY KEY,
		name VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		artist VARCHAR(255) NULL,
		image MEDIUMBLOB NULL,
		category VARCHAR(16) NULL,
		language VARCHAR(64) NULL,
		audio_key VARCHAR(512) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_songs_name (name),
		KEY idx_songs_created_at (created_at)
	) DEFAULT CHARSET=utf8mb4;
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create songs table: %w", err)
	}
	logger.Info("Songs table initialized successfully (or already exists).")
	return nil
}

func createFavouritesTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS favourites (
		id CHAR(36) NOT NULL PRIMARY KEY,
		song_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL DEFAULT '',
		image MEDIUMTEXT NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_favourites_song (song_id)
	) DEFAULT CHARSET=utf8mb4;
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create favourites table: %w", err)
	}
	logger.Info("Favourites table initialized successfully (or already exists).")
	return nil
}

// ensureUniqueIndex adds a missing unique key. A failure is logged, not
// returned: the server still works, and `musicbox cleanup` removes the
// duplicates that usually cause it.
func ensureUniqueIndex(table, index, column string) {
	var count int
	err := DB.QueryRow(`SELECT COUNT(*) FROM INFORMATION_SCHEMA.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND INDEX_NAME = ?`, table, index).Scan(&count)
	if err != nil {
		logger.Warn("Could not inspect indexes", logger.String("table", table), logger.ErrorField(err))
		return
	}
	if count > 0 {
		return
	}

	_, err = DB.Exec(fmt.Sprintf("ALTER TABLE %s ADD UNIQUE KEY %s (%s)", table, index, column))
	if err != nil {
		if IsDuplicateKey(err) {
			logger.Warn("Duplicate rows prevent unique index; run `musicbox cleanup`",
				logger.String("table", table), logger.String("index", index))
			return
		}
		logger.Warn("Could not add unique index", logger.String("table", table), logger.ErrorField(err))
		return
	}
	logger.Info("Unique index added", logger.String("table", table), logger.String("index", index))
}
