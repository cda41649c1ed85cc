package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tryon-api/internal/catalog"
	httpapi "tryon-api/internal/http"
	"tryon-api/internal/http/handlers"
	"tryon-api/internal/infra"
	"tryon-api/internal/infra/geoip"
	"tryon-api/internal/middleware"
	"tryon-api/internal/providers/fal"
	"tryon-api/internal/ratelimit"
	"tryon-api/internal/tryon"
	"tryon-api/internal/urlcheck"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	redisClient := infra.NewRedisClient(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip unavailable, locale falls back to headers")
	}
	var lookup middleware.CountryLookup
	if resolver != nil {
		lookup = resolver.CountryCode
	}

	falClient := fal.NewClient(fal.Options{
		APIKey:  cfg.FalAPIKey,
		BaseURL: cfg.FalBaseURL,
		ModelID: cfg.FalModelID,
		Logger:  &logger,
	})
	executor := fal.NewExecutor(fal.ExecutorOptions{
		MaxAttempts:      cfg.RetryMaxAttempts,
		BaseDelay:        cfg.RetryBaseDelay,
		MaxDelay:         cfg.RetryMaxDelay,
		FailureThreshold: cfg.CircuitFailureThreshold,
		OpenFor:          cfg.CircuitOpenFor,
		Logger:           &logger,
	})

	cache := tryon.NewCache(redisClient, logger)
	tracker := tryon.NewTracker(cfg.MaxActiveJobsPerClient, cfg.ActiveJobTTL)
	service := tryon.NewService(falClient, executor, cache, logger)

	app := &handlers.App{
		Config:       cfg,
		Logger:       logger,
		DB:           dbpool,
		TryOnLimiter: ratelimit.New(cfg.TryOnRateLimitMax, cfg.TryOnRateLimitWindow),
		Tracker:      tracker,
		Service:      service,
		URLValidator: urlcheck.Validator{AllowedHosts: cfg.FalAllowedImageHosts},
		Catalog:      catalog.New(),
		Favorites:    catalog.NewFavorites(),
	}

	generalLimiter := ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow)
	router := httpapi.NewRouter(app, generalLimiter, lookup)

	server := infra.NewHTTPServer(cfg, router)

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
	logger.Info().Msg("server stopped")
}
