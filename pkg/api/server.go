// Package api provides HTTP API handlers for the pipeline service.
package api

import (
	"context"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/axonote/pipeline/pkg/config"
	"github.com/axonote/pipeline/pkg/database"
	"github.com/axonote/pipeline/pkg/events"
	"github.com/axonote/pipeline/pkg/queue"
	"github.com/axonote/pipeline/pkg/services"
)

// maxBodyBytes bounds ordinary JSON request bodies. Chunk uploads go through
// their own streaming endpoint with a dedicated limit.
const maxBodyBytes = 32 * 1024 * 1024

// Server is the HTTP API server.
type Server struct {
	engine         *gin.Engine
	httpServer     *http.Server
	cfg            *config.Config
	dbClient       *database.Client
	sessionService *services.SessionService
	workerPool     *queue.WorkerPool
	connManager    *events.ConnectionManager
	dashboardDir   string // path to dashboard build dir (empty = no static serving)
}

// NewServer creates a new API server with gin.
func NewServer(
	cfg *config.Config,
	dbClient *database.Client,
	sessionService *services.SessionService,
	workerPool *queue.WorkerPool,
	connManager *events.ConnectionManager,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery())

	s := &Server{
		engine:         e,
		cfg:            cfg,
		dbClient:       dbClient,
		sessionService: sessionService,
		workerPool:     workerPool,
		connManager:    connManager,
	}

	s.setupRoutes()
	return s
}

// SetDashboardDir sets the path to the dashboard build directory and
// registers static file serving routes. When set and the directory
// contains an index.html, assets are served from /assets/* and a SPA
// fallback is registered for all non-API routes.
//
// Must be called after NewServer (which registers API routes first)
// so that API routes take priority over the wildcard SPA fallback.
func (s *Server) SetDashboardDir(dir string) {
	s.dashboardDir = dir
	s.setupDashboardRoutes()
}

// bodyLimitMiddleware caps the size of request bodies read by downstream handlers.
func bodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// setupRoutes registers all API routes.
func (s *Server) setupRoutes() {
	s.engine.Use(bodyLimitMiddleware(maxBodyBytes))
	s.engine.Use(securityHeaders())

	// Health check
	s.engine.GET("/health", s.healthHandler)

	// API v1
	v1 := s.engine.Group("/api/v1")

	// Static paths before :id param.
	v1.GET("/sessions", s.listSessionsHandler)
	v1.GET("/sessions/search", s.searchSessionsHandler)

	// Session detail and actions.
	v1.GET("/sessions/:id", s.getSessionHandler)
	v1.POST("/sessions/:id/cancel", s.cancelSessionHandler)
	v1.POST("/sessions/:id/retry", s.retryJobHandler)

	// WebSocket endpoint for real-time stage-event streaming.
	v1.GET("/ws", s.wsHandler)

	// Dashboard static file serving is registered via SetDashboardDir(),
	// called after NewServer. This ensures API routes (registered above)
	// take priority over the wildcard SPA fallback.
}

// setupDashboardRoutes registers static file serving for the dashboard build
// directory. When dashboardDir is set and contains an index.html, Vite-built
// assets are served from /assets/* and all other non-API paths fall back to
// index.html (SPA routing).
//
// Cache headers:
//   - /assets/* — immutable (1 year): Vite-built files include content hashes
//     in their filenames, so aggressive caching is safe.
//   - index.html and other root files — no-cache: forces browser revalidation
//     on every visit so new asset hashes are picked up after deployments.
func (s *Server) setupDashboardRoutes() {
	if s.dashboardDir == "" {
		return
	}

	indexPath := filepath.Join(s.dashboardDir, "index.html")
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		slog.Warn("Dashboard directory set but index.html not found — skipping static serving",
			"dir", s.dashboardDir)
		return
	}

	slog.Info("Serving dashboard from disk", "dir", s.dashboardDir)

	dashFS := os.DirFS(s.dashboardDir)

	// Serve hashed Vite assets (JS, CSS, images) from /assets/ with immutable
	// caching. Filenames include content hashes so aggressive caching is safe.
	if assetsFS, err := fs.Sub(dashFS, "assets"); err == nil {
		s.engine.GET("/assets/*filepath", func(c *gin.Context) {
			c.Header("Cache-Control", "public, max-age=31536000, immutable")
			http.ServeFileFS(c.Writer, c.Request, assetsFS, strings.TrimPrefix(c.Param("filepath"), "/"))
		})
	}

	// SPA fallback: all other non-API, non-health, non-ws paths serve index.html.
	// This allows the dashboard's client-side router to handle routing.
	s.engine.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path

		if strings.HasPrefix(path, "/api/") || path == "/health" {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
			return
		}

		c.Header("Cache-Control", "no-cache")

		// Try to serve the exact file first (e.g., /favicon.ico, /robots.txt).
		relPath := strings.TrimPrefix(path, "/")
		if relPath != "" {
			if info, statErr := fs.Stat(dashFS, relPath); statErr == nil && !info.IsDir() {
				http.ServeFileFS(c.Writer, c.Request, dashFS, relPath)
				return
			}
		}

		// Fall back to index.html for client-side routing.
		http.ServeFileFS(c.Writer, c.Request, dashFS, "index.html")
	})
}

// Start starts the HTTP server on the given address (non-blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener.
// Used by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// parseDashboardOrigin splits a configured dashboard URL into its origin
// (scheme://host) and bare host, defaulting to the http scheme when raw has
// none. Returns ok=false for an empty or unparseable input.
func parseDashboardOrigin(raw string) (origin, host string, ok bool) {
	if raw == "" {
		return "", "", false
	}

	withScheme := raw
	if !strings.Contains(raw, "://") {
		withScheme = "http://" + raw
	}

	u, err := url.Parse(withScheme)
	if err != nil || u.Host == "" {
		return "", "", false
	}

	return u.Scheme + "://" + u.Host, u.Host, true
}

// resolveWSOriginPatterns builds the WebSocket origin allowlist: the
// configured dashboard's host, local development hosts, and any extra
// origins from AllowedWSOrigins.
func (s *Server) resolveWSOriginPatterns() []string {
	patterns := make([]string, 0, 4)

	if _, host, ok := parseDashboardOrigin(s.cfg.DashboardURL); ok {
		patterns = append(patterns, host)
	}

	patterns = append(patterns, "localhost:*", "127.0.0.1:*")
	patterns = append(patterns, s.cfg.AllowedWSOrigins...)

	return patterns
}
