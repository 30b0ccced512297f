package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"musicbox/core/library"
	"musicbox/logger"
	"musicbox/model"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	svc       *library.Services
	maxUpload int64
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(svc *library.Services, maxUpload int64) *APIHandler {
	return &APIHandler{svc: svc, maxUpload: maxUpload}
}

// HealthHandler reports whether the song store answers.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Songs.Ping(r.Context()); err != nil {
		logger.Error("Health check failed", logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// errTooLarge marks a request body over the upload limit.
var errTooLarge = errors.New("request body too large")

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errTooLarge), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", logger.ErrorField(err))
	}
}

// writeError maps err to a status code; 5xx errors are logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.ErrorField(err))
	} else {
		logger.Debug("Request rejected",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.ErrorField(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeJSON reads a JSON body into v; malformed bodies are invalid input.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", model.ErrInvalidInput, err)
	}
	return nil
}
