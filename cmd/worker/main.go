package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"aquarelle/internal/adapter/repo"
	"aquarelle/internal/imagegen"
	"aquarelle/internal/infra"
	"aquarelle/internal/infra/credentials"
	"aquarelle/internal/pipeline"
	"aquarelle/internal/queue"
	"aquarelle/internal/render"
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
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	apiKey := strings.TrimSpace(cfg.RenderAPIKey)
	if apiKey == "" {
		credStore := credentials.NewStore(pool)
		keyFromStore, err := credStore.RenderAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load render api key from store")
		} else {
			apiKey = keyFromStore
		}
	}

	client, err := imagegen.NewClient(imagegen.Options{
		BaseURL: cfg.RenderBaseURL,
		APIKey:  apiKey,
		Timeout: cfg.RenderTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure render backend client")
	}

	jobs := repo.NewRenderJobRepository(pool)
	profiles := repo.NewBillingProfileRepository(pool)
	metrics := render.NewMetrics()
	orchestrator := pipeline.NewOrchestrator(client, logger)
	service := render.NewService(jobs, profiles, orchestrator, logger, metrics)

	workers := queue.NewPool(jobs, service.Process, logger, queue.Options{
		Workers:       cfg.WorkerCount,
		PollInterval:  cfg.WorkerPollInterval,
		StaleDeadline: cfg.StaleJobDeadline,
	})
	service.AttachWaker(workers)
	workers.Start(ctx)

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Msgf("worker metrics listening on :%s", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("worker: metrics server failed")
		}
	}()

	<-ctx.Done()
	workers.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	logger.Info().Msg("worker: stopped")
}
