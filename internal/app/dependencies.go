package app

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-laundry/internal/cache"
	"github.com/noah-isme/backend-laundry/internal/config"
	"github.com/noah-isme/backend-laundry/internal/customer"
	"github.com/noah-isme/backend-laundry/internal/db"
	"github.com/noah-isme/backend-laundry/internal/events"
	"github.com/noah-isme/backend-laundry/internal/extraitem"
	"github.com/noah-isme/backend-laundry/internal/jobs"
	"github.com/noah-isme/backend-laundry/internal/lock"
	"github.com/noah-isme/backend-laundry/internal/obs"
	"github.com/noah-isme/backend-laundry/internal/order"
	"github.com/noah-isme/backend-laundry/internal/quote"
	"github.com/noah-isme/backend-laundry/internal/settings"
)

// Dependencies holds the infrastructure and services shared by the API and
// worker binaries.
type Dependencies struct {
	DB         *pgxpool.Pool
	Redis      *redis.Client
	TaskClient *asynq.Client
	Locker     lock.Locker
	Bus        *events.Bus

	Settings   *settings.Service
	ExtraItems *extraitem.Service
	Customers  *customer.Service
	Quotes     *quote.Service
	Orders     *order.Service
}

// New connects to Postgres and Redis and wires every service.
func New(ctx context.Context, cfg *config.Config, applicationName string, logger zerolog.Logger) (*Dependencies, error) {
	pool, err := db.New(ctx, cfg.DatabaseURL, db.Options{ApplicationName: applicationName, Tracer: obs.PGXTracer{}})
	if err != nil {
		return nil, err
	}
	redisClient, err := NewRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	taskOpts, err := RedisConnOpt(cfg.RedisURL)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}

	d := &Dependencies{
		DB:         pool,
		Redis:      redisClient,
		TaskClient: asynq.NewClient(taskOpts),
		Locker:     lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff, MaxWait: cfg.LockTTL},
	}
	d.Bus = &events.Bus{
		Store: events.PgStore{DB: pool},
		Notifiers: []events.Notifier{
			events.LogNotifier{Logger: obs.Component(logger, "events")},
			jobs.AuditNotifier{Queue: d.TaskClient},
		},
	}
	if err := d.wireServices(cfg, logger); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Dependencies) wireServices(cfg *config.Config, logger zerolog.Logger) error {
	var err error
	d.Settings, err = settings.NewService(settings.ServiceConfig{
		Store:  settings.PgStore{DB: d.DB},
		Cache:  cache.NewJSON(d.Redis, cfg.SettingsCacheTTL),
		Logger: obs.Component(logger, "settings"),
	})
	if err != nil {
		return err
	}
	d.ExtraItems, err = extraitem.NewService(extraitem.ServiceConfig{
		Store:  extraitem.PgStore{DB: d.DB},
		Cache:  cache.NewJSON(d.Redis, cfg.CatalogCacheTTL),
		Logger: obs.Component(logger, "extra_items"),
	})
	if err != nil {
		return err
	}
	d.Customers, err = customer.NewService(customer.ServiceConfig{
		Store:   customer.PgStore{DB: d.DB},
		Locker:  d.Locker,
		LockTTL: cfg.LockTTL,
		Logger:  obs.Component(logger, "customers"),
	})
	if err != nil {
		return err
	}
	d.Quotes, err = quote.NewService(quote.ServiceConfig{
		Settings:  d.Settings,
		Catalog:   d.ExtraItems,
		Customers: d.Customers,
		Policy:    cfg.Pricing,
		Logger:    obs.Component(logger, "quotes"),
	})
	if err != nil {
		return err
	}
	d.Orders, err = order.NewService(order.ServiceConfig{
		Repo:    order.PgRepository{Pool: d.DB},
		Quotes:  d.Quotes,
		Locker:  d.Locker,
		LockTTL: cfg.LockTTL,
		Events:  d.Bus,
		Logger:  obs.Component(logger, "orders"),
	})
	return err
}

// Close releases every connection.
func (d *Dependencies) Close() {
	if d.TaskClient != nil {
		_ = d.TaskClient.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

// NewRedis connects to Redis with tracing instrumentation.
func NewRedis(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisConnOpt converts a redis:// URL into asynq connection options.
func RedisConnOpt(url string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url for tasks: %w", err)
	}
	return opt, nil
}
