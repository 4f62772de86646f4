// Package server exposes a running session over HTTP: health, status, the
// enable toggle, stored session summaries, an MJPEG preview and a WebSocket
// feed of per-frame reports.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ayusman/airpoint/internal/observability"
	"github.com/ayusman/airpoint/internal/session"
	"github.com/ayusman/airpoint/internal/store"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
	defaultListLimit  = 50
)

// Controller is the part of a session the server drives.
type Controller interface {
	Status() session.Status
	SetEnabled(enabled bool)
}

// Config holds the server configuration. Routes whose dependency is nil
// are not registered.
type Config struct {
	Addr string
	// CORS lists allowed origins; empty disables the CORS middleware.
	CORS       []string
	Controller Controller
	Store      *store.Store
	Hub        *Hub
	Logger     *zap.Logger
}

// Server is the HTTP front end of a session.
type Server struct {
	config Config
	engine *gin.Engine
	logger *zap.Logger
	start  time.Time
	done   chan struct{}
}

// New creates a Server and registers its routes.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = observability.GetLogger()
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), requestLogger(logger))
	if len(config.CORS) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  config.CORS,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	s := &Server{
		config: config,
		engine: r,
		logger: logger,
		start:  time.Now(),
		done:   make(chan struct{}),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)

	if s.config.Controller != nil {
		api.GET("/status", s.handleStatus)
		api.POST("/enable", s.handleEnable)
	}

	if s.config.Store != nil {
		api.GET("/sessions", s.handleListSessions)
		api.GET("/sessions/:id", s.handleGetSession)
	}

	if s.config.Hub != nil {
		api.GET("/stream", s.handleStream)
		api.GET("/landmarks", s.handleLandmarks)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully. Open streams and WebSockets are ended first.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.config.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	close(s.done)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errCh; !errors.Is(serveErr, http.ErrServerClosed) {
		err = errors.Join(err, serveErr)
	}
	return err
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.config.Controller.Status())
}

type enableRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (s *Server) handleEnable(c *gin.Context) {
	var req enableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"enabled\": true|false}"})
		return
	}
	s.config.Controller.SetEnabled(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
}

func (s *Server) handleListSessions(c *gin.Context) {
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	sessions, err := s.config.Store.Sessions().List(limit)
	if err != nil {
		s.logger.Error("Failed to list sessions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}
	if sessions == nil {
		sessions = []*store.SessionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Server) handleGetSession(c *gin.Context) {
	rec, err := s.config.Store.Sessions().GetByID(c.Param("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case err != nil:
		s.logger.Error("Failed to load session", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
	default:
		c.JSON(http.StatusOK, rec)
	}
}

// requestLogger writes one debug entry per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
