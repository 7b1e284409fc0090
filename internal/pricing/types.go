package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary amount in the store currency.
type Money = decimal.Decimal

// ErrOverrideNoteRequired is returned when a price override is active without a justification note.
var ErrOverrideNoteRequired = errors.New("price override requires a note")

// Settings holds the tiered pricing constants used for a single quote computation.
type Settings struct {
	MinimumWeight             decimal.Decimal
	MinimumPrice              Money
	PricePerPound             Money
	SameDayExtraCentsPerPound Money
	SameDayMinimumCharge      Money
	DeliveryPrice             Money
}

// ExtraItem is a selectable add-on from the catalog.
type ExtraItem struct {
	ID            string
	Name          string
	Price         Money
	PerWeightUnit *decimal.Decimal
	IsActive      bool
}

// IsWeightBased reports whether the item quantity derives from the order weight.
func (i ExtraItem) IsWeightBased() bool {
	return i.PerWeightUnit != nil && i.PerWeightUnit.IsPositive()
}

// ActiveOnly drops inactive catalog entries, preserving order.
func ActiveOnly(items []ExtraItem) []ExtraItem {
	out := make([]ExtraItem, 0, len(items))
	for _, it := range items {
		if it.IsActive {
			out = append(out, it)
		}
	}
	return out
}

// Bag is a weighed laundry bag belonging to an order.
type Bag struct {
	Identifier  string
	Weight      decimal.Decimal
	Color       string
	Description string
}

// TotalWeight sums the bag weights, ignoring negative values.
func TotalWeight(bags []Bag) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bags {
		if b.Weight.IsPositive() {
			total = total.Add(b.Weight)
		}
	}
	return total
}

// Override is a manually entered final price.
type Override struct {
	Amount Money
	Note   string
}

// ValidateOverride enforces the justification note on an active override.
func ValidateOverride(o *Override) error {
	if o == nil {
		return nil
	}
	if strings.TrimSpace(o.Note) == "" {
		return ErrOverrideNoteRequired
	}
	return nil
}

// OrderType describes how the order leaves the store.
type OrderType string

const (
	OrderTypeStorePickup OrderType = "storePickup"
	OrderTypeDelivery    OrderType = "delivery"
)

// Valid reports whether the order type is known.
func (t OrderType) Valid() bool {
	return t == OrderTypeStorePickup || t == OrderTypeDelivery
}

// DeliveryType narrows a delivery order to one or both legs.
type DeliveryType string

const (
	DeliveryFull         DeliveryType = "full"
	DeliveryPickupOnly   DeliveryType = "pickupOnly"
	DeliveryDeliveryOnly DeliveryType = "deliveryOnly"
)

// Valid reports whether the delivery type is known. The empty value means full.
func (t DeliveryType) Valid() bool {
	switch t {
	case "", DeliveryFull, DeliveryPickupOnly, DeliveryDeliveryOnly:
		return true
	}
	return false
}

// WeightCostMode selects how weight-based extra items are charged.
type WeightCostMode string

const (
	// WeightCostProportional charges (weight / unit) * price.
	WeightCostProportional WeightCostMode = "proportional"
	// WeightCostCeil charges ceil(weight / unit) * price.
	WeightCostCeil WeightCostMode = "ceil"
)

// Policy controls rounding behaviour of the engine.
type Policy struct {
	// QuarterRounding rounds the extra-pounds term, the same-day charge and
	// proportional weight-based items to the nearest 0.25.
	QuarterRounding bool
	WeightItemCost  WeightCostMode
}

// DefaultPolicy returns exact arithmetic with proportional weight-based items.
func DefaultPolicy() Policy {
	return Policy{WeightItemCost: WeightCostProportional}
}

// ParsePolicy builds a Policy from configuration strings.
func ParsePolicy(rounding, weightCost string) (Policy, error) {
	p := DefaultPolicy()
	switch strings.ToLower(strings.TrimSpace(rounding)) {
	case "", "exact", "none":
	case "quarter":
		p.QuarterRounding = true
	default:
		return Policy{}, fmt.Errorf("pricing: unknown rounding mode %q", rounding)
	}
	switch strings.ToLower(strings.TrimSpace(weightCost)) {
	case "", string(WeightCostProportional):
	case string(WeightCostCeil):
		p.WeightItemCost = WeightCostCeil
	default:
		return Policy{}, fmt.Errorf("pricing: unknown weight item cost mode %q", weightCost)
	}
	return p, nil
}

// Input captures the order-in-progress fields that influence the price.
type Input struct {
	Bags         []Bag
	OrderType    OrderType
	DeliveryType DeliveryType
	// DeliveryPrice overrides Settings.DeliveryPrice for this order when set.
	DeliveryPrice   *Money
	IsSameDay       bool
	Selections      Selections
	Override        *Override
	ApplyCredit     bool
	AvailableCredit Money
}

// Line item codes.
const (
	LineBase       = "base"
	LineSameDay    = "same_day"
	LineExtraItems = "extra_items"
	LineDelivery   = "delivery"
)

// LineItem is a single priced component of a quote.
type LineItem struct {
	Code   string
	Label  string
	Amount Money
}

// ExtraCharge is the per-item detail behind the extra items line.
type ExtraCharge struct {
	ItemID      string
	Name        string
	WeightBased bool
	// Computable is false for weight-based items while the order has no weight.
	Computable bool
	Quantity   int64
	UnitPrice  Money
	Overridden bool
	Amount     Money
}

// Quote is the engine output.
type Quote struct {
	LineItems           []LineItem
	ExtraItems          []ExtraCharge
	TotalWeight         decimal.Decimal
	BasePrice           Money
	SameDayFee          Money
	ExtraItemsTotal     Money
	DeliveryFee         Money
	SameDayRatePerPound Money
	CalculatedTotal     Money
	Override            *Override
	TotalBeforeCredit   Money
	CreditApplied       Money
	FinalTotal          Money
}

// Overridden reports whether a manual override set the total.
func (q Quote) Overridden() bool { return q.Override != nil }
