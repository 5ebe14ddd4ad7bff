package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"aquarelle/internal/adapter/repo"
	"aquarelle/internal/http/handlers"
	"aquarelle/internal/http/httpapi"
	"aquarelle/internal/infra"
	"aquarelle/internal/infra/geoip"
	"aquarelle/internal/render"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()

	countries, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip disabled")
	}

	jobs := repo.NewRenderJobRepository(pool)
	profiles := repo.NewBillingProfileRepository(pool)
	metrics := render.NewMetrics()

	// The pipeline runs only in the worker process; the API submits to the
	// persisted job table and serves status lookups.
	service := render.NewService(jobs, profiles, nil, logger, metrics)

	app := handlers.NewApp(logger, service, metrics.Handler())
	router := httpapi.NewRouter(cfg, logger, countries, app)
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
