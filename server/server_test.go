package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"musicbox/core/events"
	"musicbox/core/library"
	"musicbox/model"
	"musicbox/repository/memory"
	"musicbox/storage"

	"github.com/gorilla/websocket"
)

type brokenSongs struct{ *memory.SongRepository }

func (brokenSongs) Ping(context.Context) error { return errors.New("connection refused") }

func newTestRouter(t *testing.T, maxUpload int64) http.Handler {
	t.Helper()
	svc := library.New(library.Deps{
		Songs:      memory.NewSongRepository(),
		Playlists:  memory.NewPlaylistRepository(),
		Favourites: memory.NewFavouriteRepository(),
		Audio:      storage.NewMemoryAudioStore(),
	})
	return NewRouter(NewAPIHandler(svc, maxUpload), nil)
}

func uploadRequest(t *testing.T, fields map[string]string, audio []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if audio != nil {
		fw, err := mw.CreateFormFile("audio", "song.mp3")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(audio)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/songs", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func doJSON(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(h, req)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

type songResponse struct {
	Song struct {
		ID                string  `json:"_id"`
		Name              string  `json:"name"`
		Category          *string `json:"category"`
		EffectiveCategory string  `json:"effectiveCategory"`
	} `json:"song"`
}

func upload(t *testing.T, h http.Handler, name, artist string, audio []byte) songResponse {
	t.Helper()
	rec := do(h, uploadRequest(t, map[string]string{"name": name, "artist": artist}, audio))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload %q: status %d body %s", name, rec.Code, rec.Body.String())
	}
	var resp songResponse
	decode(t, rec, &resp)
	return resp
}

func TestUploadClassifiesSongs(t *testing.T) {
	h := newTestRouter(t, 1<<20)

	local := upload(t, h, "Kabhi Khushi Kabhie Gham", "Lata Mangeshkar", []byte("audio-1"))
	if local.Song.Category == nil || *local.Song.Category != "local" || local.Song.EffectiveCategory != "local" {
		t.Errorf("expected local, got %+v", local.Song)
	}
	global := upload(t, h, "Shape of You", "Ed Sheeran", []byte("audio-2"))
	if global.Song.EffectiveCategory != "global" {
		t.Errorf("expected global, got %+v", global.Song)
	}

	rec := doJSON(h, http.MethodGet, "/api/songs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	var list struct {
		Songs []map[string]interface{} `json:"songs"`
	}
	decode(t, rec, &list)
	if len(list.Songs) != 2 {
		t.Fatalf("expected 2 songs, got %d", len(list.Songs))
	}
	if _, ok := list.Songs[0]["audio"]; ok {
		t.Error("listing must not carry audio")
	}
}

func TestUploadErrors(t *testing.T) {
	h := newTestRouter(t, 1024)
	upload(t, h, "Yellow", "Coldplay", []byte("audio"))

	tests := []struct {
		desc   string
		req    *http.Request
		status int
	}{
		{"duplicate name", uploadRequest(t, map[string]string{"name": "Yellow"}, []byte("x")), http.StatusConflict},
		{"missing audio", uploadRequest(t, map[string]string{"name": "Clocks"}, nil), http.StatusBadRequest},
		{"missing name", uploadRequest(t, map[string]string{}, []byte("x")), http.StatusBadRequest},
		{"bad category", uploadRequest(t, map[string]string{"name": "Clocks", "category": "indie"}, []byte("x")), http.StatusBadRequest},
		{"too large", uploadRequest(t, map[string]string{"name": "Big"}, make([]byte, 4096)), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		rec := do(h, tt.req)
		if rec.Code != tt.status {
			t.Errorf("%s: status %d, want %d (%s)", tt.desc, rec.Code, tt.status, rec.Body.String())
		}
		var body map[string]string
		decode(t, rec, &body)
		if body["error"] == "" {
			t.Errorf("%s: missing error message", tt.desc)
		}
	}
}

func TestAudioRoundTrip(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	audio := []byte("0123456789abcdef")
	song := upload(t, h, "Clocks", "Coldplay", audio)

	rec := doJSON(h, http.MethodGet, "/api/songs/"+song.Song.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), audio) {
		t.Fatalf("audio mismatch: %q", rec.Body.Bytes())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("Accept-Ranges") != "bytes" || rec.Header().Get("Content-Length") != "16" {
		t.Errorf("unexpected headers %v", rec.Header())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/songs/"+song.Song.ID, nil)
	req.Header.Set("Range", "bytes=4-7")
	rec = do(h, req)
	if rec.Code != http.StatusPartialContent || rec.Body.String() != "4567" {
		t.Errorf("range request: status %d body %q", rec.Code, rec.Body.String())
	}

	if rec := doJSON(h, http.MethodGet, "/api/songs/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown song: status %d", rec.Code)
	}
}

func TestDeleteSong(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	song := upload(t, h, "Clocks", "Coldplay", []byte("a"))

	if rec := doJSON(h, http.MethodDelete, "/api/songs/"+song.Song.ID, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := doJSON(h, http.MethodDelete, "/api/songs/"+song.Song.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: %d", rec.Code)
	}
	if rec := doJSON(h, http.MethodGet, "/api/songs/"+song.Song.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("audio after delete: %d", rec.Code)
	}
}

func TestMaintenanceEndpoints(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	upload(t, h, "Clocks", "Coldplay", []byte("a"))

	rec := doJSON(h, http.MethodPost, "/api/songs/fix-categories", "")
	var fix map[string]interface{}
	decode(t, rec, &fix)
	if rec.Code != http.StatusOK || fix["updatedCount"] != float64(0) || fix["totalChecked"] != float64(0) {
		t.Errorf("fix-categories: %d %v", rec.Code, fix)
	}

	rec = doJSON(h, http.MethodPost, "/api/songs/cleanup", "")
	var cleanup map[string]interface{}
	decode(t, rec, &cleanup)
	if rec.Code != http.StatusOK || cleanup["duplicatesRemoved"] != float64(0) || cleanup["totalSongsAfter"] != float64(1) {
		t.Errorf("cleanup: %d %v", rec.Code, cleanup)
	}
	if msg, _ := cleanup["message"].(string); !strings.Contains(msg, "Removed 0") {
		t.Errorf("cleanup message %q", msg)
	}
}

func TestPlaylistEndpoints(t *testing.T) {
	h := newTestRouter(t, 1<<20)

	if rec := doJSON(h, http.MethodPost, "/api/playlists", `{"name":"Road trip"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing songIds: %d", rec.Code)
	}
	if rec := doJSON(h, http.MethodPost, "/api/playlists", `{"name":"Road trip","songIds":null}`); rec.Code != http.StatusBadRequest {
		t.Errorf("null songIds: %d", rec.Code)
	}
	if rec := doJSON(h, http.MethodPost, "/api/playlists", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: %d", rec.Code)
	}

	rec := doJSON(h, http.MethodPost, "/api/playlists", `{"name":"Road trip","songIds":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Playlist model.Playlist `json:"playlist"`
	}
	decode(t, rec, &created)
	id := created.Playlist.ID

	if rec := doJSON(h, http.MethodPost, "/api/playlists", `{"name":"Road trip","songIds":[]}`); rec.Code != http.StatusConflict {
		t.Errorf("duplicate: %d", rec.Code)
	}

	rec = doJSON(h, http.MethodPut, "/api/playlists/"+id, `{"songIds":["a","b","a"]}`)
	var updated struct {
		Playlist model.Playlist `json:"playlist"`
	}
	decode(t, rec, &updated)
	if rec.Code != http.StatusOK || updated.Playlist.Name != "Road trip" || len(updated.Playlist.SongIDs) != 3 {
		t.Errorf("update: %d %+v", rec.Code, updated.Playlist)
	}
	if rec := doJSON(h, http.MethodPut, "/api/playlists/"+id, `{"name":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty name: %d", rec.Code)
	}
	if rec := doJSON(h, http.MethodPut, "/api/playlists/missing", `{"name":"x"}`); rec.Code != http.StatusNotFound {
		t.Errorf("update missing: %d", rec.Code)
	}

	if rec := doJSON(h, http.MethodGet, "/api/playlists/"+id, ""); rec.Code != http.StatusOK {
		t.Errorf("get: %d", rec.Code)
	}
	rec = doJSON(h, http.MethodDelete, "/api/playlists/"+id, "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Errorf("delete: %d %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(h, http.MethodGet, "/api/playlists/"+id, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d", rec.Code)
	}
}

func TestFavouriteEndpoints(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	keep := upload(t, h, "Clocks", "Coldplay", []byte("a"))
	gone := upload(t, h, "Yellow", "Coldplay", []byte("b"))

	if rec := doJSON(h, http.MethodPost, "/api/favourites", `{"name":"x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing songId: %d", rec.Code)
	}
	for _, id := range []string{keep.Song.ID, gone.Song.ID} {
		if rec := doJSON(h, http.MethodPost, "/api/favourites", `{"songId":"`+id+`","name":"n"}`); rec.Code != http.StatusCreated {
			t.Fatalf("add: %d", rec.Code)
		}
	}
	if rec := doJSON(h, http.MethodPost, "/api/favourites", `{"songId":"`+keep.Song.ID+`"}`); rec.Code != http.StatusOK {
		t.Errorf("duplicate add: %d", rec.Code)
	}

	doJSON(h, http.MethodDelete, "/api/songs/"+gone.Song.ID, "")

	rec := doJSON(h, http.MethodGet, "/api/favourites", "")
	var favs struct {
		Songs []struct {
			ID string `json:"_id"`
		} `json:"songs"`
	}
	decode(t, rec, &favs)
	if rec.Code != http.StatusOK || len(favs.Songs) != 1 || favs.Songs[0].ID != keep.Song.ID {
		t.Errorf("list: %d %+v", rec.Code, favs)
	}

	if rec := doJSON(h, http.MethodDelete, "/api/favourites/"+keep.Song.ID, ""); rec.Code != http.StatusOK {
		t.Errorf("remove: %d", rec.Code)
	}
	if rec := doJSON(h, http.MethodDelete, "/api/favourites/unknown", ""); rec.Code != http.StatusOK {
		t.Errorf("remove unknown: %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	rec := doJSON(h, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Errorf("healthy: %d %s", rec.Code, rec.Body.String())
	}

	svc := library.New(library.Deps{
		Songs:      brokenSongs{memory.NewSongRepository()},
		Playlists:  memory.NewPlaylistRepository(),
		Favourites: memory.NewFavouriteRepository(),
		Audio:      storage.NewMemoryAudioStore(),
	})
	rec = doJSON(NewRouter(NewAPIHandler(svc, 1<<20), nil), http.MethodGet, "/api/health", "")
	var body map[string]interface{}
	decode(t, rec, &body)
	if rec.Code != http.StatusInternalServerError || body["ok"] != false || body["error"] != "connection refused" {
		t.Errorf("unhealthy: %d %v", rec.Code, body)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	rec := doJSON(h, http.MethodOptions, "/api/playlists/abc", "")
	if rec.Code != http.StatusOK {
		t.Errorf("preflight status %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header: %v", rec.Header())
	}
	if rec := doJSON(h, http.MethodGet, "/api/songs", ""); rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing on GET")
	}
}

func TestLibraryFeed(t *testing.T) {
	hub := events.NewHub()
	go hub.Run()
	defer hub.Stop()

	svc := library.New(library.Deps{
		Songs:      memory.NewSongRepository(),
		Playlists:  memory.NewPlaylistRepository(),
		Favourites: memory.NewFavouriteRepository(),
		Audio:      storage.NewMemoryAudioStore(),
		Events:     hub,
	})
	srv := httptest.NewServer(NewRouter(NewAPIHandler(svc, 1<<20), hub))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/library", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Post(srv.URL+"/api/playlists", "application/json", strings.NewReader(`{"name":"Gym","songIds":[]}`))
	if err != nil {
		t.Fatalf("create playlist: %v", err)
	}
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e events.Event
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if e.Type != events.PlaylistCreated || e.Name != "Gym" {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestScheduleMaintenance(t *testing.T) {
	stop, err := scheduleMaintenance(60, func() {})
	if err != nil {
		t.Fatalf("scheduleMaintenance: %v", err)
	}
	stop <- true

	if _, err := scheduleMaintenance(60, "not a func"); err == nil {
		t.Fatal("expected an error for a non-function job")
	}
}
