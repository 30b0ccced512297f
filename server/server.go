package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"musicbox/config"
	"musicbox/core/events"
	"musicbox/core/library"
	"musicbox/logger"

	"github.com/gorilla/mux"
	"github.com/jasonlvhit/gocron"
)

// NewRouter mounts the REST API under /api and the change feed under /ws.
func NewRouter(h *APIHandler, hub *events.Hub) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware, accessLogMiddleware)

	api := router.PathPrefix("/api").Subrouter()

	// 歌曲
	api.HandleFunc("/songs", h.GetSongsHandler).Methods(http.MethodGet)
	api.HandleFunc("/songs", h.UploadSongHandler).Methods(http.MethodPost)
	api.HandleFunc("/songs/cleanup", h.CleanupSongsHandler).Methods(http.MethodPost)
	api.HandleFunc("/songs/fix-categories", h.FixCategoriesHandler).Methods(http.MethodPost)
	api.HandleFunc("/songs/{id}", h.GetSongAudioHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/songs/{id}", h.DeleteSongHandler).Methods(http.MethodDelete)

	// 歌单
	api.HandleFunc("/playlists", h.GetPlaylistsHandler).Methods(http.MethodGet)
	api.HandleFunc("/playlists", h.CreatePlaylistHandler).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{id}", h.GetPlaylistHandler).Methods(http.MethodGet)
	api.HandleFunc("/playlists/{id}", h.UpdatePlaylistHandler).Methods(http.MethodPut)
	api.HandleFunc("/playlists/{id}", h.DeletePlaylistHandler).Methods(http.MethodDelete)

	// 收藏
	api.HandleFunc("/favourites", h.GetFavouritesHandler).Methods(http.MethodGet)
	api.HandleFunc("/favourites", h.AddFavouriteHandler).Methods(http.MethodPost)
	api.HandleFunc("/favourites/{id}", h.RemoveFavouriteHandler).Methods(http.MethodDelete)

	api.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	// preflight requests are answered by corsMiddleware
	api.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	if hub != nil {
		router.HandleFunc("/ws/library", hub.ServeWS)
	}
	return router
}

// 添加 CORS 中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack is needed by the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Info("HTTP request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Duration("duration", time.Since(start)))
	})
}

// scheduleMaintenance runs job every interval minutes.
// Send on the returned channel to stop it.
func scheduleMaintenance(interval uint64, job interface{}, params ...interface{}) (chan bool, error) {
	scheduler := gocron.NewScheduler()
	if err := scheduler.Every(interval).Minutes().Do(job, params...); err != nil {
		return nil, fmt.Errorf("failed to schedule maintenance: %w", err)
	}
	logger.Info("Periodic maintenance scheduled", logger.Int("intervalMinutes", int(interval)))
	return scheduler.Start(), nil
}

// runMaintenance 依次补全分类并清理重复歌曲
func runMaintenance(songs *library.SongService) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := songs.FixMissingCategories(ctx); err != nil {
		logger.Error("Scheduled category fix failed", logger.ErrorField(err))
	}
	if _, err := songs.DeduplicateByName(ctx); err != nil {
		logger.Error("Scheduled cleanup failed", logger.ErrorField(err))
	}
}

// Start initializes and starts the HTTP server, blocking until SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	hub := events.NewHub()
	go hub.Run()
	defer hub.Stop()

	backend, err := OpenBackend(context.Background(), cfg, hub)
	if err != nil {
		return err
	}
	defer backend.Close()

	if cfg.MaintenanceIntervalMinutes > 0 {
		stopMaintenance, err := scheduleMaintenance(uint64(cfg.MaintenanceIntervalMinutes), runMaintenance, backend.Services.Songs)
		if err != nil {
			logger.Error("Periodic maintenance disabled", logger.ErrorField(err))
		} else {
			defer func() { stopMaintenance <- true }()
		}
	}

	handler := NewAPIHandler(backend.Services, cfg.MaxUploadBytes())

	// 设置服务器超时；音频响应较大，写超时放宽
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      NewRouter(handler, hub),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			logger.String("addr", cfg.HTTPAddr),
			logger.String("store", cfg.StoreBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case <-stop:
	}
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
