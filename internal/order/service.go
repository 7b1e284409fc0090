package order

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-laundry/internal/common"
	"github.com/noah-isme/backend-laundry/internal/customer"
	"github.com/noah-isme/backend-laundry/internal/events"
	"github.com/noah-isme/backend-laundry/internal/obs"
	"github.com/noah-isme/backend-laundry/internal/quote"
)

// ErrConcurrentChange is returned when the order's customer changed while
// its credit lock was being acquired.
var ErrConcurrentChange = errors.New("order: changed concurrently")

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// ServiceConfig configures Service.
type ServiceConfig struct {
	Repo    Repository
	Quotes  *quote.Service
	Locker  customer.Locker
	LockTTL time.Duration
	Events  Emitter
	Logger  zerolog.Logger
}

// Service creates, reprices and advances orders.
type Service struct {
	repo    Repository
	quotes  *quote.Service
	locker  customer.Locker
	lockTTL time.Duration
	events  Emitter
	logger  zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repo == nil || cfg.Quotes == nil {
		return nil, errors.New("order: repository and quote service are required")
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	return &Service{
		repo:    cfg.Repo,
		quotes:  cfg.Quotes,
		locker:  cfg.Locker,
		lockTTL: cfg.LockTTL,
		events:  cfg.Events,
		logger:  cfg.Logger,
	}, nil
}

func (s *Service) prepare(ctx context.Context, req quote.Request) (quote.Env, quote.Form, error) {
	env, err := s.quotes.Load(ctx, strings.TrimSpace(req.CustomerID))
	if err != nil {
		return quote.Env{}, quote.Form{}, err
	}
	form := req.Form(env.Catalog)
	if problems := form.Problems(); len(problems) > 0 {
		return quote.Env{}, quote.Form{}, common.ValidationError("invalid order", problems)
	}
	return env, form, nil
}

// Create prices and saves a new order, debiting customer credit in the same
// transaction.
func (s *Service) Create(ctx context.Context, req quote.Request) (Order, error) {
	env, form, err := s.prepare(ctx, req)
	if err != nil {
		return Order{}, err
	}
	var out Order
	err = s.withCustomerLocks(ctx, []string{form.CustomerID}, func(ctx context.Context) error {
		return s.repo.InTx(ctx, func(tx Tx) error {
			credit := decimal.Zero
			if form.ApplyCredit {
				if credit, err = tx.LockCredit(ctx, form.CustomerID); err != nil {
					return err
				}
			}
			o := Assemble(s.quotes.Price(env, form, credit))
			o.ID = uuid.NewString()
			if out, err = tx.Insert(ctx, o); err != nil {
				return err
			}
			return debit(ctx, tx, out)
		})
	})
	if err != nil {
		return Order{}, err
	}

	credit, _ := out.CreditApplied.Float64()
	total, _ := out.TotalAmount.Float64()
	obs.ObserveOrderCreated(string(out.OrderType), credit)
	obs.ObserveQuote("order", out.PriceOverride != nil, total)
	s.logger.Info().
		Str("order_id", out.ID).
		Int64("order_number", out.OrderNumber).
		Str("total_amount", out.TotalAmount.String()).
		Str("credit_applied", out.CreditApplied.String()).
		Msg("order created")
	s.emit(ctx, events.TopicOrderCreated, out, summary(out))
	if out.IsPaid {
		s.emit(ctx, events.TopicOrderPaid, out, summary(out))
	}
	return out, nil
}

// Update reprices an open order from req. Credit applied earlier is returned
// to the customer before the new amount is taken.
func (s *Service) Update(ctx context.Context, id string, req quote.Request) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, ErrNotFound
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	env, form, err := s.prepare(ctx, req)
	if err != nil {
		return Order{}, err
	}
	var out Order
	err = s.withCustomerLocks(ctx, []string{current.CustomerID, form.CustomerID}, func(ctx context.Context) error {
		return s.repo.InTx(ctx, func(tx Tx) error {
			existing, err := tx.Lock(ctx, id)
			if err != nil {
				return err
			}
			if existing.CustomerID != current.CustomerID {
				return ErrConcurrentChange
			}
			if !existing.Status.Editable() {
				return ErrInvalidTransition
			}
			if existing.CreditApplied.IsPositive() {
				if _, err := tx.AdjustCredit(ctx, existing.CustomerID, existing.CreditApplied); err != nil {
					return err
				}
			}
			credit := decimal.Zero
			if form.ApplyCredit {
				if credit, err = tx.LockCredit(ctx, form.CustomerID); err != nil {
					return err
				}
			}
			o := Assemble(s.quotes.Price(env, form, credit))
			o.ID = existing.ID
			o.OrderNumber = existing.OrderNumber
			o.Status = existing.Status
			o.CreatedAt = existing.CreatedAt
			if existing.IsPaid && existing.PaymentMethod != PaymentCredit {
				o.IsPaid, o.PaymentMethod = true, existing.PaymentMethod
			}
			if out, err = tx.Update(ctx, o); err != nil {
				return err
			}
			return debit(ctx, tx, out)
		})
	})
	if err != nil {
		return Order{}, err
	}

	s.logger.Info().
		Str("order_id", out.ID).
		Str("previous_total", current.TotalAmount.String()).
		Str("total_amount", out.TotalAmount.String()).
		Msg("order repriced")
	s.emit(ctx, events.TopicOrderUpdated, out, summary(out))
	if out.IsPaid && !current.IsPaid {
		s.emit(ctx, events.TopicOrderPaid, out, summary(out))
	}
	return out, nil
}

// Get loads an order with its bags and extra items.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// List returns a page of orders and the total matching count.
func (s *Service) List(ctx context.Context, f Filter) ([]Order, int64, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, common.ValidationError("invalid filter", map[string]string{"status": "is invalid"})
	}
	if f.CustomerID != "" {
		if _, err := uuid.Parse(f.CustomerID); err != nil {
			return nil, 0, common.ValidationError("invalid filter", map[string]string{"customerId": "must be a valid uuid"})
		}
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, f)
}

// UpdateStatus moves the order along the pipeline. Cancelling returns any
// applied credit to the customer.
func (s *Service) UpdateStatus(ctx context.Context, id string, target Status) (Order, error) {
	if !target.Valid() {
		return Order{}, common.ValidationError("invalid status", map[string]string{"status": "is invalid"})
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	var keys []string
	if target == StatusCancelled {
		keys = append(keys, current.CustomerID)
	}
	var out Order
	err = s.withCustomerLocks(ctx, keys, func(ctx context.Context) error {
		return s.repo.InTx(ctx, func(tx Tx) error {
			existing, err := tx.Lock(ctx, id)
			if err != nil {
				return err
			}
			if !CanTransition(existing.Status, target) {
				return ErrInvalidTransition
			}
			if target == StatusCancelled && existing.CreditApplied.IsPositive() && existing.CustomerID != "" {
				if existing.CustomerID != current.CustomerID {
					return ErrConcurrentChange
				}
				if _, err := tx.AdjustCredit(ctx, existing.CustomerID, existing.CreditApplied); err != nil {
					return err
				}
			}
			updated, err := tx.SetStatus(ctx, id, target)
			if err != nil {
				return err
			}
			out = existing
			out.Status = target
			out.UpdatedAt = updated
			current = existing
			return nil
		})
	})
	if err != nil {
		return Order{}, err
	}

	obs.ObserveStatusTransition(string(target))
	s.logger.Info().
		Str("order_id", out.ID).
		Str("from", string(current.Status)).
		Str("to", string(target)).
		Msg("order status changed")
	s.emit(ctx, events.TopicOrderStatusChanged, out, map[string]any{
		"orderNumber": out.OrderNumber,
		"from":        current.Status,
		"to":          target,
	})
	return out, nil
}

// Requote recomputes the price of a saved order from its stored inputs
// against the current settings and catalog.
func (s *Service) Requote(ctx context.Context, id string) (quote.Result, Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return quote.Result{}, Order{}, err
	}
	env, err := s.quotes.Load(ctx, o.CustomerID)
	if err != nil {
		return quote.Result{}, Order{}, err
	}
	return s.quotes.Price(env, o.Form(), o.CreditApplied), o, nil
}

// UpdatedSince returns ids of orders changed at or after since.
func (s *Service) UpdatedSince(ctx context.Context, since time.Time, limit int) ([]string, error) {
	return s.repo.UpdatedSince(ctx, since, limit)
}

func debit(ctx context.Context, tx Tx, o Order) error {
	if !o.CreditApplied.IsPositive() {
		return nil
	}
	_, err := tx.AdjustCredit(ctx, o.CustomerID, o.CreditApplied.Neg())
	return err
}

// withCustomerLocks runs fn holding the credit lock of every non-empty
// customer id, acquired in sorted order.
func (s *Service) withCustomerLocks(ctx context.Context, customerIDs []string, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	seen := map[string]bool{}
	var keys []string
	for _, id := range customerIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, s.locker.CustomerKey(id))
	}
	sort.Strings(keys)
	return s.lockAll(ctx, keys, fn)
}

func (s *Service) lockAll(ctx context.Context, keys []string, fn func(context.Context) error) error {
	if len(keys) == 0 {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, keys[0], s.lockTTL, func(ctx context.Context) error {
		return s.lockAll(ctx, keys[1:], fn)
	})
}

func summary(o Order) map[string]any {
	return map[string]any{
		"orderNumber":   o.OrderNumber,
		"customerId":    o.CustomerID,
		"status":        o.Status,
		"totalAmount":   common.Amount(o.TotalAmount),
		"creditApplied": common.Amount(o.CreditApplied),
		"isPaid":        o.IsPaid,
	}
}

func (s *Service) emit(ctx context.Context, topic string, o Order, payload any) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Emit(ctx, topic, o.ID, payload); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Str("order_id", o.ID).Msg("emit event failed")
	}
}
