package extraitem

import (
	"context"
	"errors"

	"github.com/google/uuid"
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

// Service manages the extra item catalog.
type Service struct {
	store  Store
	cache  *cache.JSON
	logger zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("extraitem: store is required")
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, logger: cfg.Logger}, nil
}

// List returns the catalog; inactive items only when includeInactive is set.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]Record, error) {
	key := cache.KeyExtraItemsActive
	if includeInactive {
		key = cache.KeyExtraItemsAll
	}
	var cached []Record
	ok, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("extra item cache read failed")
	}
	if ok {
		return cached, nil
	}
	items, err := s.store.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, items); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("extra item cache write failed")
	}
	return items, nil
}

// Active returns the catalog the pricing engine quotes against.
func (s *Service) Active(ctx context.Context) ([]pricing.ExtraItem, error) {
	items, err := s.List(ctx, false)
	if err != nil {
		return nil, err
	}
	return pricing.ActiveOnly(Items(items)), nil
}

// Create adds a catalog entry.
func (s *Service) Create(ctx context.Context, req WriteRequest) (Record, error) {
	if err := req.validate(); err != nil {
		return Record{}, err
	}
	var rec Record
	req.apply(&rec)
	rec.ID = uuid.NewString()
	out, err := s.store.Insert(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	s.invalidate(ctx)
	s.logger.Info().Str("extra_item_id", out.ID).Str("name", out.Name).Msg("extra item created")
	return out, nil
}

// Update replaces a catalog entry.
func (s *Service) Update(ctx context.Context, id string, req WriteRequest) (Record, error) {
	if err := req.validate(); err != nil {
		return Record{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, ErrNotFound
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	req.apply(&rec)
	out, err := s.store.Update(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	s.invalidate(ctx)
	s.logger.Info().Str("extra_item_id", out.ID).Bool("active", out.IsActive).Msg("extra item updated")
	return out, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeyExtraItemsActive, cache.KeyExtraItemsAll); err != nil {
		s.logger.Warn().Err(err).Msg("extra item cache invalidation failed")
	}
}
