package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"server/internal/adapter/repo"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/middleware"
	"server/internal/orchestrator"
	"server/internal/provider/musicgen"
	"server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	jobs := repo.NewJobRepository(pool)
	credits := repo.NewCreditLedger(pool)
	notifications := repo.NewNotificationRepository(pool)

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	var events orchestrator.EventPublisher
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("songs-api"))
		if err != nil {
			logger.Warn().Err(err).Msg("nats connection failed, completion events disabled")
		} else {
			defer nc.Close()
			events = nc
		}
	}

	provider := musicgen.NewClient(musicgen.Options{
		BaseURL: cfg.MusicAPIBaseURL,
		APIKey:  cfg.MusicAPIKey,
		Model:   cfg.MusicModel,
	})
	if !provider.Configured() {
		logger.Warn().Msg("music api key missing, submissions will be rejected")
	}

	notifier := orchestrator.NewNotifier(notifications, events, logger)
	scheduler := orchestrator.NewScheduler(ctx, jobs, provider, notifier, logger, cfg.PollInterval, cfg.PollMaxAttempts)
	submitter := orchestrator.NewSubmitter(jobs, credits, notifier, provider, scheduler, logger, cfg.CreditsPerJob)

	// Jobs left processing by a previous run resume their polling loops.
	if err := scheduler.Resume(ctx); err != nil {
		logger.Error().Err(err).Msg("startup recovery scan failed")
	}

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip resolver unavailable")
	} else if resolver != nil {
		countryLookup = resolver.CountryCode
	}

	app := &handlers.App{
		Config:        cfg,
		Logger:        logger,
		Jobs:          jobs,
		Credits:       credits,
		Notifications: notifications,
		Submitter:     submitter,
		Uploader:      provider,
		Store:         fileStore,
	}

	router := httpapi.NewRouter(app, countryLookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
