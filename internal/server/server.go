// Package server provides the HTTP surface of the mood player: scan state,
// rescan, the live board feed, the camera preview, the frame catalog and
// installed mood hooks.
package server

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/moodplayer/internal/reaction"
	"github.com/ayusman/moodplayer/internal/scan"
	"github.com/ayusman/moodplayer/internal/server/api"
	"github.com/ayusman/moodplayer/internal/store"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// FrameSource supplies preview frames. The caller closes the Mat.
type FrameSource interface {
	ReadFrame() (*gocv.Mat, error)
}

// Scanner is the scan controller as seen by the HTTP layer.
type Scanner interface {
	Arm()
	State() scan.Snapshot
}

// Config holds the server configuration. Every dependency is optional; the
// matching routes are only mounted when it is set.
type Config struct {
	StaticFS fs.FS
	Store    *store.Store
	Frames   FrameSource
	Board    *reaction.Board
	Scanner  Scanner
	Hooks    api.HookCatalog
	Logger   zerolog.Logger
}

// Server is the HTTP server for the mood player.
type Server struct {
	config Config
	router chi.Router
	logger zerolog.Logger
	start  time.Time

	events *EventsHandler
	frames *api.FramesHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		logger: config.Logger.With().Str("component", "server").Logger(),
		start:  time.Now(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/api/health", s.handleHealth)

	if s.config.Scanner != nil {
		s.router.Get("/api/state", s.handleState)
		s.router.Post("/api/rescan", s.handleRescan)
	}

	if s.config.Board != nil {
		s.events = NewEventsHandler(s.config.Board, s.config.Logger)
		s.router.Handle("/api/events", s.events)
	}

	if s.config.Frames != nil {
		s.router.Handle("/api/stream", NewStreamHandler(s.config.Frames, s.config.Logger))
	}

	if s.config.Store != nil {
		var registry api.FrameRegistry
		if s.config.Board != nil {
			registry = s.config.Board
		}
		s.frames = api.NewFramesHandler(s.config.Store, registry, s.config.Logger)
		s.router.Route("/api/frames", s.frames.Routes)
	}

	if s.config.Hooks != nil {
		s.router.Route("/api/hooks", api.NewHooksHandler(s.config.Hooks, s.config.Logger).Routes)
	}

	if s.config.StaticFS != nil {
		s.router.Handle("/*", http.FileServer(http.FS(s.config.StaticFS)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Frames returns the catalog handler, or nil without a store.
func (s *Server) Frames() *api.FramesHandler {
	return s.frames
}

type stateResponse struct {
	Scan  scan.Snapshot      `json:"scan"`
	Board *reaction.Snapshot `json:"board,omitempty"`
}

func (s *Server) state() stateResponse {
	resp := stateResponse{Scan: s.config.Scanner.State()}
	if s.config.Board != nil {
		snap := s.config.Board.Snapshot()
		resp.Board = &snap
	}
	return resp
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleState handles GET /api/state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, s.state())
}

// handleRescan handles POST /api/rescan and re-arms the scan.
func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	s.config.Scanner.Arm()
	s.logger.Info().Msg("rescan requested")
	api.WriteJSON(w, http.StatusAccepted, s.state())
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("server stopped")
	return nil
}

// Close disconnects live feed clients.
func (s *Server) Close() {
	if s.events != nil {
		s.events.Close()
	}
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
