package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"musicbox/core/classify"
	"musicbox/logger"
	"musicbox/model"
	"musicbox/storage"

	"github.com/gorilla/mux"
)

// multipartMemory is how much of an upload is kept in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// GetSongsHandler 返回全部歌曲（不含音频）
func (h *APIHandler) GetSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.svc.Songs.ListSongs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"songs": songs})
}

// UploadSongHandler handles song uploads.
// Expected multipart form fields:
// - audio: the audio file (required)
// - name: song name (required)
// - artist, category, language: optional text
// - image: cover image (optional)
func (h *APIHandler) UploadSongHandler(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUpload {
		writeError(w, r, fmt.Errorf("%w: limit is %d bytes", errTooLarge, h.maxUpload))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, fmt.Errorf("%w: limit is %d bytes", errTooLarge, maxErr.Limit))
			return
		}
		writeError(w, r, fmt.Errorf("%w: failed to parse multipart form: %v", model.ErrInvalidInput, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	audio, err := readFormFile(r, "audio")
	if err != nil {
		writeError(w, r, err)
		return
	}
	image, err := readFormFile(r, "image")
	if err != nil {
		writeError(w, r, err)
		return
	}

	form := &model.CreateSongForm{
		Name:     r.FormValue("name"),
		Artist:   r.FormValue("artist"),
		Category: model.Category(r.FormValue("category")),
		Language: r.FormValue("language"),
		Audio:    audio,
		Image:    image,
	}

	song, err := h.svc.Songs.CreateSong(r.Context(), form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"song": song.Summary(classify.ResolveSong(song))})
}

// readFormFile returns nil when the field is absent.
func readFormFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s file: %v", model.ErrInvalidInput, field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file: %w", field, err)
	}
	return data, nil
}

// GetSongAudioHandler streams a song's audio. Range requests are honoured.
func (h *APIHandler) GetSongAudioHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	audio, err := h.svc.Songs.GetSongAudio(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", storage.AudioContentType)
	w.Header().Set("Accept-Ranges", "bytes")
	http.ServeContent(w, r, id, time.Time{}, bytes.NewReader(audio))
}

func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.svc.Songs.DeleteSong(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Song deleted successfully"})
}

// CleanupSongsHandler removes songs whose name is already taken by an older song.
func (h *APIHandler) CleanupSongsHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Songs.DeduplicateByName(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":           fmt.Sprintf("Cleanup completed. Removed %d duplicate songs.", res.DuplicatesRemoved),
		"duplicatesRemoved": res.DuplicatesRemoved,
		"totalSongsBefore":  res.TotalSongsBefore,
		"totalSongsAfter":   res.TotalSongsAfter,
	})
}

// FixCategoriesHandler 为缺少分类的歌曲补全分类
func (h *APIHandler) FixCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Songs.FixMissingCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.Debug("Fix categories requested", logger.Int("updatedCount", res.UpdatedCount))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      fmt.Sprintf("Successfully updated %d songs with categories", res.UpdatedCount),
		"updatedCount": res.UpdatedCount,
		"totalChecked": res.TotalChecked,
	})
}
