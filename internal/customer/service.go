package customer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-laundry/internal/common"
)

// Locker serialises work per key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
	CustomerKey(customerID string) string
}

// ServiceConfig configures the Service dependencies.
type ServiceConfig struct {
	Store   Store
	Locker  Locker
	LockTTL time.Duration
	Logger  zerolog.Logger
}

// Service manages customers and their credit.
type Service struct {
	store   Store
	locker  Locker
	lockTTL time.Duration
	logger  zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("customer: store is required")
	}
	return &Service{store: cfg.Store, locker: cfg.Locker, lockTTL: cfg.LockTTL, logger: cfg.Logger}, nil
}

// Create registers a customer.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Customer, error) {
	if err := req.validate(); err != nil {
		return Customer{}, err
	}
	c := Customer{
		ID:     uuid.NewString(),
		Name:   strings.TrimSpace(req.Name),
		Phone:  strings.TrimSpace(req.Phone),
		Email:  strings.TrimSpace(req.Email),
		Credit: req.Credit.Decimal,
	}
	if req.DeliveryPrice != nil {
		price := req.DeliveryPrice.Decimal
		c.DeliveryPrice = &price
	}
	out, err := s.store.Insert(ctx, c)
	if err != nil {
		return Customer{}, err
	}
	s.logger.Info().Str("customer_id", out.ID).Msg("customer created")
	return out, nil
}

// Get loads a customer by id.
func (s *Service) Get(ctx context.Context, id string) (Customer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Customer{}, ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// AddCredit adjusts the balance while holding the customer's credit lock.
func (s *Service) AddCredit(ctx context.Context, id string, req CreditRequest) (Customer, error) {
	if req.Amount.IsZero() {
		return Customer{}, common.ValidationError("invalid credit adjustment", map[string]string{"amount": "must not be zero"})
	}
	if _, err := uuid.Parse(id); err != nil {
		return Customer{}, ErrNotFound
	}
	var balance decimal.Decimal
	adjust := func(ctx context.Context) error {
		var err error
		balance, err = s.store.AdjustCredit(ctx, id, req.Amount.Decimal)
		return err
	}
	var err error
	if s.locker != nil {
		err = s.locker.WithLock(ctx, s.locker.CustomerKey(id), s.lockTTL, adjust)
	} else {
		err = adjust(ctx)
	}
	if err != nil {
		return Customer{}, err
	}
	s.logger.Info().
		Str("customer_id", id).
		Str("delta", req.Amount.String()).
		Str("balance", balance.String()).
		Str("note", req.Note).
		Msg("customer credit adjusted")
	return s.store.Get(ctx, id)
}
