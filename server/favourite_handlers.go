package server

import (
	"net/http"

	"musicbox/model"

	"github.com/gorilla/mux"
)

// GetFavouritesHandler 返回收藏的歌曲，已删除的歌曲不会出现
func (h *APIHandler) GetFavouritesHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.svc.Favourites.ListFavourites(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"songs": songs})
}

// AddFavouriteHandler answers 201 for a new favourite and 200 when it already exists.
func (h *APIHandler) AddFavouriteHandler(w http.ResponseWriter, r *http.Request) {
	var form model.AddFavouriteForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.svc.Favourites.AddFavourite(r.Context(), &form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Already in favourites"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Added to favourites"})
}

func (h *APIHandler) RemoveFavouriteHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Favourites.RemoveFavourite(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Removed from favourites"})
}
