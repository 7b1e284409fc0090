package quote

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-laundry/internal/customer"
	"github.com/noah-isme/backend-laundry/internal/obs"
	"github.com/noah-isme/backend-laundry/internal/pricing"
)

// SettingsSource returns the current pricing constants.
type SettingsSource interface {
	Pricing(ctx context.Context) (pricing.Settings, error)
}

// CatalogSource returns the active extra items in display order.
type CatalogSource interface {
	Active(ctx context.Context) ([]pricing.ExtraItem, error)
}

// CustomerSource loads customers for credit and delivery defaults.
type CustomerSource interface {
	Get(ctx context.Context, id string) (customer.Customer, error)
}

// ServiceConfig configures Service.
type ServiceConfig struct {
	Settings  SettingsSource
	Catalog   CatalogSource
	Customers CustomerSource
	Policy    pricing.Policy
	Logger    zerolog.Logger
}

// Service prices order forms against the stored settings and catalog.
type Service struct {
	settings  SettingsSource
	catalog   CatalogSource
	customers CustomerSource
	policy    pricing.Policy
	logger    zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Settings == nil || cfg.Catalog == nil {
		return nil, errors.New("quote: settings and catalog sources are required")
	}
	if cfg.Policy.WeightItemCost == "" {
		cfg.Policy = pricing.DefaultPolicy()
	}
	return &Service{
		settings:  cfg.Settings,
		catalog:   cfg.Catalog,
		customers: cfg.Customers,
		policy:    cfg.Policy,
		logger:    cfg.Logger,
	}, nil
}

// Env is everything a computation reads besides the form.
type Env struct {
	Settings pricing.Settings
	Catalog  []pricing.ExtraItem
	Customer *customer.Customer
}

// Result is a computed quote together with the form it was computed from.
// Form carries the effective delivery price and the normalised selections.
type Result struct {
	Quote pricing.Quote
	Form  Form
}

// Policy returns the rounding policy used by the service.
func (s *Service) Policy() pricing.Policy { return s.policy }

// Load reads settings, the active catalog and, when customerID is set, the customer.
func (s *Service) Load(ctx context.Context, customerID string) (Env, error) {
	settings, err := s.settings.Pricing(ctx)
	if err != nil {
		return Env{}, fmt.Errorf("quote: load settings: %w", err)
	}
	catalog, err := s.catalog.Active(ctx)
	if err != nil {
		return Env{}, fmt.Errorf("quote: load catalog: %w", err)
	}
	env := Env{Settings: settings, Catalog: catalog}
	if customerID != "" && s.customers != nil {
		c, err := s.customers.Get(ctx, customerID)
		if err != nil {
			return Env{}, err
		}
		env.Customer = &c
	}
	return env, nil
}

// Price runs the engine for form. The customer's delivery price applies when
// the form does not carry one. availableCredit is read by the caller so that
// it can be taken under a row lock.
func (s *Service) Price(env Env, form Form, availableCredit decimal.Decimal) Result {
	if form.DeliveryPrice == nil && env.Customer != nil && env.Customer.DeliveryPrice != nil {
		price := *env.Customer.DeliveryPrice
		form.DeliveryPrice = &price
	}
	form.Selections = form.Selections.Recompute(env.Catalog, pricing.TotalWeight(form.Bags))
	q := pricing.Compute(env.Settings, env.Catalog, form.Input(availableCredit), s.policy)
	return Result{Quote: q, Form: form}
}

// Quote computes a preview price for req. Nothing is persisted.
func (s *Service) Quote(ctx context.Context, req Request) (Result, error) {
	env, err := s.Load(ctx, req.CustomerID)
	if err != nil {
		return Result{}, err
	}
	form := req.Form(env.Catalog)
	credit := decimal.Zero
	if env.Customer != nil {
		credit = env.Customer.Credit
	}
	res := s.Price(env, form, credit)
	total, _ := res.Quote.FinalTotal.Float64()
	obs.ObserveQuote("preview", res.Quote.Overridden(), total)
	s.logger.Debug().
		Str("order_type", string(form.OrderType)).
		Str("total_weight", res.Quote.TotalWeight.String()).
		Str("final_total", res.Quote.FinalTotal.String()).
		Msg("quote computed")
	return res, nil
}
