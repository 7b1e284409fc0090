package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-laundry/internal/db"
	"github.com/noah-isme/backend-laundry/internal/pricing"
)

// ErrNotConfigured is returned when no settings row exists.
var ErrNotConfigured = errors.New("settings: not configured")

// Store persists the pricing settings singleton.
type Store interface {
	Get(ctx context.Context) (Record, error)
	Save(ctx context.Context, s pricing.Settings) (Record, error)
}

// PgStore implements Store with pgx.
type PgStore struct {
	DB db.DBTX
}

const selectSettings = `SELECT minimum_weight, minimum_price, price_per_pound,
       same_day_extra_cents_per_pound, same_day_minimum_charge, delivery_price, updated_at
FROM pricing_settings WHERE id = 1`

// Get loads the current settings.
func (s PgStore) Get(ctx context.Context) (Record, error) {
	var r Record
	err := s.DB.QueryRow(ctx, selectSettings).Scan(
		&r.MinimumWeight, &r.MinimumPrice, &r.PricePerPound,
		&r.SameDayExtraCentsPerPound, &r.SameDayMinimumCharge, &r.DeliveryPrice, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotConfigured
		}
		return Record{}, fmt.Errorf("settings: select: %w", err)
	}
	return r, nil
}

const upsertSettings = `INSERT INTO pricing_settings (id, minimum_weight, minimum_price, price_per_pound,
    same_day_extra_cents_per_pound, same_day_minimum_charge, delivery_price, updated_at)
VALUES (1, $1, $2, $3, $4, $5, $6, now())
ON CONFLICT (id) DO UPDATE SET
    minimum_weight = EXCLUDED.minimum_weight,
    minimum_price = EXCLUDED.minimum_price,
    price_per_pound = EXCLUDED.price_per_pound,
    same_day_extra_cents_per_pound = EXCLUDED.same_day_extra_cents_per_pound,
    same_day_minimum_charge = EXCLUDED.same_day_minimum_charge,
    delivery_price = EXCLUDED.delivery_price,
    updated_at = now()
RETURNING updated_at`

// Save replaces the settings row.
func (s PgStore) Save(ctx context.Context, in pricing.Settings) (Record, error) {
	r := Record{Settings: in}
	err := s.DB.QueryRow(ctx, upsertSettings,
		in.MinimumWeight, in.MinimumPrice, in.PricePerPound,
		in.SameDayExtraCentsPerPound, in.SameDayMinimumCharge, in.DeliveryPrice,
	).Scan(&r.UpdatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("settings: upsert: %w", err)
	}
	return r, nil
}
