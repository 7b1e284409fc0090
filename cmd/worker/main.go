package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-laundry/internal/app"
	"github.com/noah-isme/backend-laundry/internal/config"
	"github.com/noah-isme/backend-laundry/internal/jobs"
	"github.com/noah-isme/backend-laundry/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.New(initCtx, cfg, "laundry-worker", logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("init dependencies")
	}
	defer deps.Close()

	redisOpts, err := app.RedisConnOpt(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	audit := jobs.NewRepriceAuditJob(deps.Orders, obs.Component(logger, "reprice_audit"))
	sweep, err := jobs.NewRepriceSweepTask(cfg.RepriceAuditWindow, cfg.RepriceAuditLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("build sweep task")
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Concurrency: cfg.WorkerConcurrency,
		Logger:      logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRepriceAudit, Handler: audit.Handle},
			{Type: jobs.TaskRepriceSweep, Handler: audit.HandleSweep},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RepriceAuditCron, Task: sweep, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init worker")
	}

	logger.Info().Str("cron", cfg.RepriceAuditCron).Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
	} else {
		logger.Info().Msg("worker shutdown complete")
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
