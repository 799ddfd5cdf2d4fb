// Package api provides the HTTP API server for sound settings, custom
// uploads and configuration delivery.
package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/remowork/soundswap/internal/logger"
)

// Options holds HTTP-level settings that are not services.
type Options struct {
	// CORSOrigins are the origins allowed to call the API. Empty disables
	// CORS handling, leaving same-origin only.
	CORSOrigins []string
	// MaxUploadBytes bounds custom sound uploads.
	MaxUploadBytes int64
	// UploadsPerMinute is the per-client upload rate; zero disables the limit.
	UploadsPerMinute int
	// Presets serves the bundled preset files under AssetsPath.
	Presets fs.FS
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
	opts     Options

	uploadRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options, log *slog.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadSize
	}

	router := chi.NewRouter()
	s := &Server{
		services: services,
		router:   router,
		logger:   logger.OrDiscard(log),
		opts:     opts,
	}
	if opts.UploadsPerMinute > 0 {
		s.uploadRateLimiter = NewRateLimiter(opts.UploadsPerMinute, time.Minute, opts.UploadsPerMinute)
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Soundswap API", "1.0.0")
	humaConfig.Info.Description = "Sound substitution settings and configuration delivery"
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerSoundRoutes()
	s.registerChannelRoutes()
	s.registerAssetRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests.
func (s *Server) API() huma.API {
	return s.api
}

// Shutdown releases background resources held by the server.
func (s *Server) Shutdown() error {
	if s.uploadRateLimiter != nil {
		return s.uploadRateLimiter.Shutdown()
	}
	return nil
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	if len(s.opts.CORSOrigins) == 0 {
		return
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Last-Event-ID"},
		ExposedHeaders:   []string{HeaderSettingsRevision},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}
