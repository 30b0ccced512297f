// Package importer loads audio files from a directory into the library,
// either once or continuously by watching the directory.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"musicbox/logger"
	"musicbox/model"

	"github.com/fsnotify/fsnotify"
)

// audioExtensions 支持导入的音频格式
var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
}

// coverExtensions are tried, in order, for a sidecar cover image.
var coverExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// Creator is the part of the song service the importer needs.
type Creator interface {
	CreateSong(ctx context.Context, form *model.CreateSongForm) (*model.Song, error)
}

// Importer 目录导入器
type Importer struct {
	songs    Creator
	maxBytes int64
	settle   time.Duration // a watched file must be quiet this long before import
	tick     time.Duration
}

// Result summarizes one directory scan.
type Result struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// New creates an importer. Files larger than maxBytes are rejected; 0 means no limit.
func New(songs Creator, maxBytes int64) *Importer {
	return &Importer{
		songs:    songs,
		maxBytes: maxBytes,
		settle:   500 * time.Millisecond,
		tick:     100 * time.Millisecond,
	}
}

// IsAudioFile reports whether path has a supported audio extension.
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// ParseFilename splits "Artist - Title.mp3" into title and artist. Without a
// separator the whole stem is the title.
func ParseFilename(path string) (name, artist string) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.Index(stem, " - "); i >= 0 {
		artist = strings.TrimSpace(stem[:i])
		name = strings.TrimSpace(stem[i+3:])
		if name != "" {
			return name, artist
		}
	}
	return strings.TrimSpace(stem), ""
}

// ImportDir imports every audio file directly inside dir. Songs whose name
// already exists are skipped; other per-file failures are counted and logged.
func (im *Importer) ImportDir(ctx context.Context, dir string) (Result, error) {
	var res Result

	entries, err := os.ReadDir(dir)
	if err != nil {
		return res, fmt.Errorf("failed to read import dir %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !IsAudioFile(entry.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		im.count(&res, im.ImportFile(ctx, filepath.Join(dir, entry.Name())))
	}

	logger.Info("Directory import finished",
		logger.String("dir", dir),
		logger.Int("imported", res.Imported),
		logger.Int("skipped", res.Skipped),
		logger.Int("failed", res.Failed))
	return res, nil
}

func (im *Importer) count(res *Result, err error) {
	switch {
	case err == nil:
		res.Imported++
	case errors.Is(err, model.ErrConflict):
		res.Skipped++
	default:
		res.Failed++
	}
}

// ImportFile creates one song from an audio file and its optional cover.
func (im *Importer) ImportFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if im.maxBytes > 0 && info.Size() > im.maxBytes {
		logger.Warn("Audio file too large, skipped",
			logger.String("file", path),
			logger.Int64("size", info.Size()),
			logger.Int64("limit", im.maxBytes))
		return fmt.Errorf("%s exceeds %d bytes: %w", path, im.maxBytes, model.ErrInvalidInput)
	}

	audio, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	// 优先使用 ID3 标签，缺失时回退到文件名
	name, artist := ParseFilename(path)
	tags := readTags(path)
	if tags.Title != "" {
		name = tags.Title
		if tags.Artist != "" {
			artist = tags.Artist
		}
	}
	cover := readCover(path)
	if cover == nil {
		cover = tags.Cover
	}

	form := &model.CreateSongForm{
		Name:   name,
		Artist: artist,
		Audio:  audio,
		Image:  cover,
	}

	song, err := im.songs.CreateSong(ctx, form)
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			logger.Debug("Song already exists, skipped", logger.String("file", path), logger.String("name", name))
		} else {
			logger.Error("Failed to import audio file", logger.String("file", path), logger.ErrorField(err))
		}
		return err
	}

	logger.Info("Audio file imported",
		logger.String("file", path),
		logger.String("songId", song.ID),
		logger.String("category", string(song.Category)))
	return nil
}

func readCover(audioPath string) []byte {
	base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	for _, ext := range coverExtensions {
		if data, err := os.ReadFile(base + ext); err == nil {
			return data
		}
	}
	return nil
}

// Watch imports the directory once and then every audio file that appears
// in it until ctx is cancelled.
func (im *Importer) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if _, err := im.ImportDir(ctx, dir); err != nil {
		return err
	}
	logger.Info("Watching import directory", logger.String("dir", dir))

	// 文件写入期间会持续触发事件，等待稳定后再导入
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(im.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && IsAudioFile(event.Name) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for path, last := range pending {
				if now.Sub(last) < im.settle {
					continue
				}
				delete(pending, path)
				if err := im.ImportFile(ctx, path); err != nil && !errors.Is(err, model.ErrConflict) {
					logger.Warn("Watched file not imported", logger.String("file", path), logger.ErrorField(err))
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Import watcher error", logger.ErrorField(err))
		}
	}
}
