package settings

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-laundry/internal/cache"
	"github.com/noah-isme/backend-laundry/internal/pricing"
)

// ServiceConfig configures the Service dependencies.
type ServiceConfig struct {
	Store  Store
	Cache  *cache.JSON
	Logger zerolog.Logger
}

// Service reads and writes pricing settings through a Redis read-through cache.
type Service struct {
	store  Store
	cache  *cache.JSON
	logger zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("settings: store is required")
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, logger: cfg.Logger}, nil
}

// Get returns the current settings. Cache failures fall back to the store.
func (s *Service) Get(ctx context.Context) (Record, error) {
	var cached Record
	ok, err := s.cache.Get(ctx, cache.KeySettings, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Msg("settings cache read failed")
	}
	if ok {
		return cached, nil
	}
	rec, err := s.store.Get(ctx)
	if err != nil {
		return Record{}, err
	}
	if err := s.cache.Set(ctx, cache.KeySettings, rec); err != nil {
		s.logger.Warn().Err(err).Msg("settings cache write failed")
	}
	return rec, nil
}

// Pricing returns only the pricing constants.
func (s *Service) Pricing(ctx context.Context) (pricing.Settings, error) {
	rec, err := s.Get(ctx)
	if err != nil {
		return pricing.Settings{}, err
	}
	return rec.Settings, nil
}

// Update validates and stores new settings, then invalidates the cache.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (Record, error) {
	if err := req.validate(); err != nil {
		return Record{}, err
	}
	rec, err := s.store.Save(ctx, req.settings())
	if err != nil {
		return Record{}, err
	}
	if err := s.cache.Delete(ctx, cache.KeySettings); err != nil {
		s.logger.Warn().Err(err).Msg("settings cache invalidation failed")
	}
	s.logger.Info().
		Str("minimum_price", rec.MinimumPrice.String()).
		Str("price_per_pound", rec.PricePerPound.String()).
		Msg("pricing settings updated")
	return rec, nil
}
