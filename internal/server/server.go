package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"acervo/internal/api"
	"acervo/internal/config"
)

type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	httpServer *http.Server
	router     *chi.Mux
	handler    *api.Handler
}

func New(cfg *config.Config, logger zerolog.Logger, handler *api.Handler) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		handler: handler,
	}

	s.router = chi.NewRouter()
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(CORSMiddleware)
	s.router.Use(LoggingMiddleware(s.logger))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handler.Health)

		r.Post("/auth/credential", s.handler.SetCredential)
		r.Delete("/auth", s.handler.Logout)

		r.Get("/catalog", s.handler.GetCatalog)
		r.Post("/catalog/sync", s.handler.SyncCatalog)
		r.Get("/catalog/items/{id}/cover", s.handler.GetCover)
		r.Get("/catalog/continue", s.handler.ContinueListening)

		r.Route("/player", func(r chi.Router) {
			r.Get("/state", s.handler.GetPlayerState)
			r.Post("/load", s.handler.LoadItem)
			r.Post("/play", s.handler.Play)
			r.Post("/pause", s.handler.Pause)
			r.Post("/toggle", s.handler.Toggle)
			r.Post("/seek", s.handler.Seek)
			r.Post("/seek/relative", s.handler.SeekRelative)
			r.Post("/skip/forward", s.handler.SkipForward)
			r.Post("/skip/backward", s.handler.SkipBackward)
			r.Post("/speed/cycle", s.handler.CycleSpeed)
			r.Post("/speed", s.handler.SetSpeed)
			r.Post("/volume", s.handler.SetVolume)
			r.Post("/mute/toggle", s.handler.ToggleMute)
			r.Post("/repeat/toggle", s.handler.ToggleRepeat)
			r.Post("/sleep", s.handler.SetSleep)

			r.Get("/bookmarks", s.handler.ListBookmarks)
			r.Post("/bookmarks", s.handler.AddBookmark)
			r.Delete("/bookmarks/{id}", s.handler.RemoveBookmark)
		})
	})
}

func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Msg("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
