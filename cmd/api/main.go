package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"clipforge/internal/adapter/repo"
	"clipforge/internal/adapter/repo/memory"
	"clipforge/internal/domain"
	"clipforge/internal/http/handlers"
	httpapi "clipforge/internal/http/httpapi"
	"clipforge/internal/infra"
	"clipforge/internal/infra/geoip"
	"clipforge/internal/middleware"
	"clipforge/internal/orchestrator"
	"clipforge/internal/provider"
	"clipforge/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	var (
		jobs   domain.JobRepository
		assets domain.AssetRepository
	)
	if cfg.DatabaseURL != "" {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		jobs = repo.NewJobRepository(dbpool)
		assets = repo.NewAssetRepository(dbpool)
	} else {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory stores")
		jobs = memory.NewJobRepository()
		assets = memory.NewAssetRepository()
	}

	var adapter provider.Adapter
	if cfg.VideoProvider == "veo" && cfg.VeoAPIKey != "" {
		adapter = provider.NewVeo(provider.VeoOptions{
			APIKey:  cfg.VeoAPIKey,
			BaseURL: cfg.VeoBaseURL,
			Model:   cfg.VeoModel,
		})
	} else {
		logger.Warn().Msg("no provider credentials, using simulated provider")
		adapter = provider.NewSimulated()
	}

	var archiver orchestrator.Archiver
	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init file store")
	}
	archiver, err = storage.NewArchiver(store, cfg.StorageBaseURL, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init archiver")
	}

	orc := orchestrator.New(jobs, assets, adapter, logger, orchestrator.Options{
		PollInterval:   cfg.JobPollInterval,
		JobTimeout:     cfg.JobTimeout,
		RefreshTimeout: cfg.RefreshTimeout,
		Archiver:       archiver,
	})

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip unavailable")
	} else if resolver != nil {
		lookup = resolver.CountryCode
	}

	app := handlers.NewApp(logger, orc)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:         logger,
		JWTSecret:      cfg.JWTSecret,
		DefaultLocale:  cfg.DefaultLocale,
		CountryLookup:  lookup,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimitPerMin,
		RateWindow:     time.Minute,
	})
	mux := withStatic(router, cfg.StoragePath)

	server := infra.NewHTTPServer(cfg, mux)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	// In-flight generation tasks write through background contexts, so let
	// them settle before exit.
	orc.Wait()
	logger.Info().Msg("server stopped")
}

// withStatic serves archived clips from disk next to the API routes.
func withStatic(api http.Handler, storagePath string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(storagePath))))
	mux.Handle("/", api)
	return mux
}
