package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/port"
	"go.uber.org/zap"
)

type statusHandler struct {
	store  port.StatusStore
	logger *zap.Logger
}

// NewRouter exposes health, metrics and the read-only video status endpoint.
func NewRouter(store port.StatusStore, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := &statusHandler{store: store, logger: logger}
	router.GET("/videos/:id/status", h.getStatus)
	return router
}

func (h *statusHandler) getStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video id must be a positive integer"})
		return
	}

	repo, err := h.store.Open(c.Request.Context())
	if err != nil {
		h.logger.Error("status lookup: open session", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "status store unavailable"})
		return
	}
	defer repo.Close()

	video, err := repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("status lookup failed", zap.Int64("video_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status lookup failed"})
		return
	}
	if video == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("video %d not found", id)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          video.ID,
		"status":      video.Status.String(),
		"status_code": int(video.Status),
		"file_path":   video.FilePath,
	})
}

func Start(port int, handler http.Handler, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	go func() {
		logger.Info("http server starting", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	return srv
}

func Shutdown(ctx context.Context, srv *http.Server, logger *zap.Logger) {
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http server shutdown", zap.Error(err))
	}
}
