package settings

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-laundry/internal/common"
	"github.com/noah-isme/backend-laundry/internal/pricing"
)

// Record is the persisted pricing configuration.
type Record struct {
	pricing.Settings
	UpdatedAt time.Time
}

// View is the API representation of Record.
type View struct {
	MinimumWeight             json.Number `json:"minimumWeight"`
	MinimumPrice              json.Number `json:"minimumPrice"`
	PricePerPound             json.Number `json:"pricePerPound"`
	SameDayExtraCentsPerPound json.Number `json:"sameDayExtraCentsPerPound"`
	SameDayMinimumCharge      json.Number `json:"sameDayMinimumCharge"`
	SameDayRatePerPound       json.Number `json:"sameDayRatePerPound"`
	DeliveryPrice             json.Number `json:"deliveryPrice"`
	UpdatedAt                 time.Time   `json:"updatedAt"`
}

// ToView renders r for API responses.
func ToView(r Record) View {
	return View{
		MinimumWeight:             common.Number(r.MinimumWeight),
		MinimumPrice:              common.Amount(r.MinimumPrice),
		PricePerPound:             common.Number(r.PricePerPound),
		SameDayExtraCentsPerPound: common.Number(r.SameDayExtraCentsPerPound),
		SameDayMinimumCharge:      common.Amount(r.SameDayMinimumCharge),
		SameDayRatePerPound:       common.Number(pricing.SameDayRatePerPound(r.Settings)),
		DeliveryPrice:             common.Amount(r.DeliveryPrice),
		UpdatedAt:                 r.UpdatedAt,
	}
}

// UpdateRequest replaces every pricing constant. Malformed numbers decode as zero.
type UpdateRequest struct {
	MinimumWeight             common.FlexNumber `json:"minimumWeight"`
	MinimumPrice              common.FlexNumber `json:"minimumPrice"`
	PricePerPound             common.FlexNumber `json:"pricePerPound"`
	SameDayExtraCentsPerPound common.FlexNumber `json:"sameDayExtraCentsPerPound"`
	SameDayMinimumCharge      common.FlexNumber `json:"sameDayMinimumCharge"`
	DeliveryPrice             common.FlexNumber `json:"deliveryPrice"`
}

func (r UpdateRequest) validate() error {
	details := map[string]string{}
	check := func(name string, v decimal.Decimal) {
		if v.IsNegative() {
			details[name] = "must not be negative"
		}
	}
	check("minimumWeight", r.MinimumWeight.Decimal)
	check("minimumPrice", r.MinimumPrice.Decimal)
	check("pricePerPound", r.PricePerPound.Decimal)
	check("sameDayExtraCentsPerPound", r.SameDayExtraCentsPerPound.Decimal)
	check("sameDayMinimumCharge", r.SameDayMinimumCharge.Decimal)
	check("deliveryPrice", r.DeliveryPrice.Decimal)
	if len(details) > 0 {
		return common.ValidationError("invalid settings", details)
	}
	return nil
}

func (r UpdateRequest) settings() pricing.Settings {
	return pricing.Settings{
		MinimumWeight:             r.MinimumWeight.Decimal,
		MinimumPrice:              r.MinimumPrice.Decimal,
		PricePerPound:             r.PricePerPound.Decimal,
		SameDayExtraCentsPerPound: r.SameDayExtraCentsPerPound.Decimal,
		SameDayMinimumCharge:      r.SameDayMinimumCharge.Decimal,
		DeliveryPrice:             r.DeliveryPrice.Decimal,
	}
}
