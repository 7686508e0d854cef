package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"acervo/internal/api"
	"acervo/internal/auth"
	"acervo/internal/catalog"
	"acervo/internal/config"
	"acervo/internal/covers"
	"acervo/internal/drive"
	"acervo/internal/player"
	"acervo/internal/server"
	"acervo/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Optional .env for credential bootstrap; absence is fine.
	godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("version", api.Version).
		Msg("starting acervo server")

	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer store.Close()

	authMgr := auth.NewManager(store, logger)
	if cred := os.Getenv("ACERVO_CREDENTIAL"); cred != "" && authMgr.Credential() == "" {
		authMgr.SetCredential(cred)
	}

	client := drive.NewClient(logger)
	if cfg.Drive.BaseURL != "" {
		client.BaseURL = cfg.Drive.BaseURL
	}
	client.PageSize = cfg.Drive.PageSize

	synchronizer := catalog.NewSynchronizer(
		client,
		authMgr,
		cfg.RootCollections(),
		cfg.Drive.BatchSize,
		cfg.Drive.Workers,
		logger,
	)

	coverService := covers.NewService(client, authMgr, cfg.Covers.CacheCapacity, cfg.Covers.CacheMaxSize, logger)

	session := player.NewSession(
		player.NopTransport{Logger: logger},
		player.LogNotifier{Logger: logger},
		logger,
	)
	session.SetBookmarkStore(store)
	session.SetProgressStore(store)
	if marks, err := store.ListBookmarks(); err != nil {
		logger.Warn().Err(err).Msg("failed to restore bookmarks")
	} else {
		session.RestoreBookmarks(marks)
	}

	handler := api.NewHandler(synchronizer, session, authMgr, coverService, store, logger)
	srv := server.New(cfg, logger, handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The stand-in transport pushes no events, so positions advance on the
	// cooperative tick.
	go session.RunTicker(ctx, cfg.Player.TickInterval)

	// Initial sync if already signed in.
	if authMgr.Credential() != "" {
		go func() {
			logger.Info().Msg("starting initial catalog sync")
			if err := synchronizer.Sync(ctx); err != nil {
				logger.Error().Err(err).Msg("initial sync failed")
			}
		}()
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info().Msg("received shutdown signal")
		cancel()

		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Error().Err(err).Msg("server error")
	}

	logger.Info().Msg("server stopped")
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()
}
