package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-laundry/internal/obs"
	"github.com/noah-isme/backend-laundry/internal/order"
	"github.com/noah-isme/backend-laundry/internal/quote"
)

// Orders is the part of the order service the audit needs.
type Orders interface {
	Requote(ctx context.Context, id string) (quote.Result, order.Order, error)
	UpdatedSince(ctx context.Context, since time.Time, limit int) ([]string, error)
}

// RepriceAuditJob recomputes saved orders against current pricing and
// reports the ones whose stored totals no longer match.
type RepriceAuditJob struct {
	Orders Orders
	Logger zerolog.Logger
	clock  func() time.Time
}

// NewRepriceAuditJob initialises the audit handlers.
func NewRepriceAuditJob(orders Orders, logger zerolog.Logger) *RepriceAuditJob {
	return &RepriceAuditJob{
		Orders: orders,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskRepriceAudit.
func (j *RepriceAuditJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload RepriceAuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.OrderID == "" {
		return fmt.Errorf("jobs: decode reprice audit payload: %w", asynq.SkipRetry)
	}
	_, err := j.Audit(ctx, payload.OrderID)
	if errors.Is(err, order.ErrNotFound) {
		obs.ObserveRepriceAudit("missing", false)
		return fmt.Errorf("jobs: order %s: %w", payload.OrderID, asynq.SkipRetry)
	}
	if err != nil {
		obs.ObserveRepriceAudit("error", false)
		return err
	}
	return nil
}

// HandleSweep processes TaskRepriceSweep.
func (j *RepriceAuditJob) HandleSweep(ctx context.Context, t *asynq.Task) error {
	payload := RepriceSweepPayload{WindowSeconds: 3600, Limit: 500}
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("jobs: decode reprice sweep payload: %w", asynq.SkipRetry)
		}
	}
	since := j.clock().Add(-time.Duration(payload.WindowSeconds) * time.Second)
	ids, err := j.Orders.UpdatedSince(ctx, since, payload.Limit)
	if err != nil {
		return err
	}
	drifted := 0
	for _, id := range ids {
		d, err := j.Audit(ctx, id)
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				continue
			}
			obs.ObserveRepriceAudit("error", false)
			return err
		}
		if d {
			drifted++
		}
	}
	j.Logger.Info().
		Int("orders", len(ids)).
		Int("drifted", drifted).
		Time("since", since).
		Msg("reprice sweep finished")
	return nil
}

// Audit recomputes one order and reports whether its saved totals drifted.
func (j *RepriceAuditJob) Audit(ctx context.Context, orderID string) (bool, error) {
	res, o, err := j.Orders.Requote(ctx, orderID)
	if err != nil {
		return false, err
	}
	if !o.Drifted(res.Quote) {
		obs.ObserveRepriceAudit("ok", false)
		return false, nil
	}
	obs.ObserveRepriceAudit("drift", true)
	j.Logger.Warn().
		Str("order_id", o.ID).
		Int64("order_number", o.OrderNumber).
		Str("saved_calculated_total", o.CalculatedTotal.String()).
		Str("current_calculated_total", res.Quote.CalculatedTotal.String()).
		Str("saved_total_amount", o.TotalAmount.String()).
		Str("current_final_total", res.Quote.FinalTotal.String()).
		Msg("order price drifted")
	return true, nil
}
