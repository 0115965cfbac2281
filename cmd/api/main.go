package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"weddingplanner/internal/credential"
	"weddingplanner/internal/http/handlers"
	httpapi "weddingplanner/internal/http/httpapi"
	"weddingplanner/internal/infra"
	"weddingplanner/internal/infra/credentials"
	"weddingplanner/internal/infra/geoip"
	"weddingplanner/internal/middleware"
	"weddingplanner/internal/observability"
	"weddingplanner/internal/planner"
	"weddingplanner/internal/providers/genai"
)

func main() {
	// Load .env (optional)
	infra.LoadDotEnv()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	ctx := context.Background()

	metrics := observability.NewMetrics("weddingplanner")

	client, err := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build model client")
	}

	// Without a database the env key is the only credential and the gate never
	// asks. With one, the key picked in the front-end is read from the store.
	state := credential.NewState(credential.Credential{APIKey: cfg.GeminiAPIKey, Source: "env"})
	var (
		selector credential.Selector
		store    handlers.CredentialStore
	)
	if cfg.HasDatabase() {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		s := credentials.NewStore(infra.NewSQLRunner(dbpool, logger))
		if err := s.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare credential table")
		}
		selector = credential.StoreSelector{Store: s}
		store = s
	} else {
		logger.Warn().Msg("DATABASE_URL not set; key selection is kept in memory only")
	}
	gate := credential.NewGate(state, selector, &logger)

	svc, err := planner.NewService(planner.Options{
		Client:  client,
		Gate:    gate,
		Config:  planner.ConfigFrom(cfg),
		Metrics: metrics,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build planner")
	}

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		lookup = resolver.CountryCode
		defer resolver.Close()
	}

	app := handlers.NewApp(svc, store, &logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		Metrics:         metrics,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   lookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := app.Videos.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("video jobs still running at shutdown")
	}
	logger.Info().Msg("server stopped")
}
