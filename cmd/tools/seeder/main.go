package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-laundry/internal/app"
	"github.com/noah-isme/backend-laundry/internal/common"
	"github.com/noah-isme/backend-laundry/internal/config"
	"github.com/noah-isme/backend-laundry/internal/customer"
	"github.com/noah-isme/backend-laundry/internal/extraitem"
	"github.com/noah-isme/backend-laundry/internal/obs"
	"github.com/noah-isme/backend-laundry/internal/settings"
)

type catalogEntry struct {
	name          string
	price         string
	perWeightUnit string
}

var defaultCatalog = []catalogEntry{
	{name: "Fabric Softener", price: "2.00"},
	{name: "Hangers", price: "0.50"},
	{name: "Comforter", price: "15.00"},
	{name: "Hypoallergenic Detergent", price: "3.00", perWeightUnit: "15"},
	{name: "Oxi Boost", price: "2.50", perWeightUnit: "20"},
}

func main() {
	withCustomers := flag.Bool("customers", false, "also create sample customers")
	flag.Parse()

	logger := obs.NewLogger(envOrDefault("OBS_LOG_FORMAT", "console"), envOrDefault("OBS_LOG_LEVEL", "info")).
		With().Str("component", "seeder").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deps, err := app.New(ctx, cfg, "laundry-seeder", logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init dependencies")
	}
	defer deps.Close()

	if err := seedSettings(ctx, deps.Settings); err != nil {
		logger.Fatal().Err(err).Msg("seed settings")
	}
	created, err := seedCatalog(ctx, deps.ExtraItems)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed extra items")
	}
	logger.Info().Int("extra_items", created).Msg("catalog seeded")

	if *withCustomers {
		if err := seedCustomers(ctx, deps.Customers); err != nil {
			logger.Fatal().Err(err).Msg("seed customers")
		}
	}
	logger.Info().Msg("seeding completed")
}

// seedSettings writes the standard price sheet only when none is stored yet.
func seedSettings(ctx context.Context, svc *settings.Service) error {
	_, err := svc.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, settings.ErrNotConfigured) {
		return err
	}
	_, err = svc.Update(ctx, settings.UpdateRequest{
		MinimumWeight:             amount("10"),
		MinimumPrice:              amount("15"),
		PricePerPound:             amount("1.25"),
		SameDayExtraCentsPerPound: amount("0.33"),
		SameDayMinimumCharge:      amount("5"),
		DeliveryPrice:             amount("10"),
	})
	return err
}

func seedCatalog(ctx context.Context, svc *extraitem.Service) (int, error) {
	created := 0
	for i, entry := range defaultCatalog {
		req := extraitem.WriteRequest{
			Name:      entry.name,
			Price:     amount(entry.price),
			SortOrder: i,
		}
		if entry.perWeightUnit != "" {
			unit := amount(entry.perWeightUnit)
			req.PerWeightUnit = &unit
		}
		if _, err := svc.Create(ctx, req); err != nil {
			if errors.Is(err, extraitem.ErrDuplicateName) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

func seedCustomers(ctx context.Context, svc *customer.Service) error {
	delivery := amount("8")
	samples := []customer.CreateRequest{
		{Name: "Maria Lopez", Phone: "555-0101", Email: "maria@example.com", Credit: amount("25")},
		{Name: "Sam Carter", Phone: "555-0102", DeliveryPrice: &delivery},
		{Name: "Priya Shah", Email: "priya@example.com"},
	}
	for _, req := range samples {
		if _, err := svc.Create(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

func amount(v string) common.FlexNumber {
	return common.NewFlexNumber(decimal.RequireFromString(v))
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
