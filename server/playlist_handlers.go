package server

import (
	"net/http"

	"musicbox/model"

	"github.com/gorilla/mux"
)

// GetPlaylistsHandler 返回全部歌单
func (h *APIHandler) GetPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.svc.Playlists.ListPlaylists(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playlists": playlists})
}

func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var form model.CreatePlaylistForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.svc.Playlists.CreatePlaylist(r.Context(), &form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playlist": p})
}

func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Playlists.GetPlaylist(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playlist": p})
}

// UpdatePlaylistHandler replaces only the fields present in the body.
func (h *APIHandler) UpdatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var form model.UpdatePlaylistForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.svc.Playlists.UpdatePlaylist(r.Context(), mux.Vars(r)["id"], &form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playlist": p})
}

func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Playlists.DeletePlaylist(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
