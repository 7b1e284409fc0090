package quote

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-laundry/internal/common"
	"github.com/noah-isme/backend-laundry/internal/pricing"
)

// Save limits. Orders store weights and money as NUMERIC with two decimals.
var (
	maxBagWeight = decimal.NewFromInt(10000)
	maxAmount    = decimal.NewFromInt(10000)
	maxQuantity  = int64(1000)
)

// cents brings submitted numbers to the scale they are stored at, so a
// saved order reprices exactly as it was quoted.
func cents(n common.FlexNumber) decimal.Decimal {
	return pricing.RoundCents(n.Decimal)
}

// Form is the order-in-progress state that drives a price computation.
type Form struct {
	CustomerID    string
	OrderType     pricing.OrderType
	DeliveryType  pricing.DeliveryType
	DeliveryPrice *decimal.Decimal
	IsSameDay     bool
	Bags          []pricing.Bag
	Selections    pricing.Selections
	Override      *pricing.Override
	ApplyCredit   bool
	Notes         string
}

// Input maps the form onto the engine input using availableCredit.
func (f Form) Input(availableCredit decimal.Decimal) pricing.Input {
	return pricing.Input{
		Bags:            f.Bags,
		OrderType:       f.OrderType,
		DeliveryType:    f.DeliveryType,
		DeliveryPrice:   f.DeliveryPrice,
		IsSameDay:       f.IsSameDay,
		Selections:      f.Selections,
		Override:        f.Override,
		ApplyCredit:     f.ApplyCredit,
		AvailableCredit: availableCredit,
	}
}

// BagInput is a bag as submitted by the order form.
type BagInput struct {
	Identifier  string            `json:"identifier" validate:"max=64"`
	Weight      common.FlexNumber `json:"weight"`
	Color       string            `json:"color" validate:"max=40"`
	Description string            `json:"description" validate:"max=500"`
}

// SelectionInput is the submitted state of one extra item. Price falls back
// to the catalog price when omitted.
type SelectionInput struct {
	Quantity      common.FlexNumber  `json:"quantity"`
	Price         *common.FlexNumber `json:"price"`
	OverrideTotal *common.FlexNumber `json:"overrideTotal"`
}

// Request is the JSON order form shared by quotes and orders.
type Request struct {
	CustomerID      string                    `json:"customerId" validate:"omitempty,uuid"`
	OrderType       string                    `json:"orderType" validate:"required,oneof=storePickup delivery"`
	DeliveryType    string                    `json:"deliveryType" validate:"omitempty,oneof=full pickupOnly deliveryOnly"`
	DeliveryPrice   *common.FlexNumber        `json:"deliveryPrice"`
	IsSameDay       bool                      `json:"isSameDay"`
	Bags            []BagInput                `json:"bags" validate:"max=50,dive"`
	ExtraItems      map[string]SelectionInput `json:"extraItems" validate:"max=100"`
	PriceOverride   *common.FlexNumber        `json:"priceOverride"`
	PriceChangeNote string                    `json:"priceChangeNote" validate:"max=500"`
	ApplyCredit     bool                      `json:"applyCredit"`
	Notes           string                    `json:"notes" validate:"max=2000"`
}

// Form converts the request into a Form, pricing selections without an
// explicit price from catalog. Malformed numbers have already become zero.
func (r Request) Form(catalog []pricing.ExtraItem) Form {
	f := Form{
		CustomerID:   strings.TrimSpace(r.CustomerID),
		OrderType:    pricing.OrderType(r.OrderType),
		DeliveryType: pricing.DeliveryType(r.DeliveryType),
		IsSameDay:    r.IsSameDay,
		ApplyCredit:  r.ApplyCredit,
		Notes:        strings.TrimSpace(r.Notes),
	}
	if r.DeliveryPrice != nil {
		price := cents(*r.DeliveryPrice)
		f.DeliveryPrice = &price
	}
	for _, b := range r.Bags {
		f.Bags = append(f.Bags, pricing.Bag{
			Identifier:  strings.TrimSpace(b.Identifier),
			Weight:      cents(b.Weight),
			Color:       strings.TrimSpace(b.Color),
			Description: strings.TrimSpace(b.Description),
		})
	}
	byID := make(map[string]pricing.ExtraItem, len(catalog))
	for _, it := range catalog {
		byID[it.ID] = it
	}
	entries := make(map[string]pricing.Selection, len(r.ExtraItems))
	for id, in := range r.ExtraItems {
		sel := pricing.Selection{Quantity: in.Quantity.IntPart()}
		if in.Price != nil {
			sel.Price = cents(*in.Price)
		} else if item, ok := byID[id]; ok {
			sel.Price = item.Price
		}
		if in.OverrideTotal != nil {
			total := cents(*in.OverrideTotal)
			sel.OverrideTotal = &total
		}
		entries[id] = sel
	}
	f.Selections = pricing.NewSelections(entries)
	if r.PriceOverride != nil {
		f.Override = &pricing.Override{Amount: cents(*r.PriceOverride), Note: strings.TrimSpace(r.PriceChangeNote)}
	}
	return f
}

// Problems lists field errors that block saving the form. Quotes report them
// as warnings; orders reject them.
func (f Form) Problems() map[string]string {
	details := map[string]string{}
	if !f.OrderType.Valid() {
		details["orderType"] = "must be one of [storePickup delivery]"
	}
	if !f.DeliveryType.Valid() {
		details["deliveryType"] = "must be one of [full pickupOnly deliveryOnly]"
	}
	if f.DeliveryPrice != nil {
		checkAmount(details, "deliveryPrice", *f.DeliveryPrice, maxAmount)
	}
	for i, b := range f.Bags {
		checkAmount(details, "bags["+strconv.Itoa(i)+"].weight", b.Weight, maxBagWeight)
	}
	for _, id := range f.Selections.IDs() {
		sel, _ := f.Selections.Get(id)
		field := "extraItems[" + id + "]"
		checkAmount(details, field+".price", sel.Price, maxAmount)
		if sel.OverrideTotal != nil {
			checkAmount(details, field+".overrideTotal", *sel.OverrideTotal, maxAmount)
		}
		if sel.Quantity > maxQuantity {
			details[field+".quantity"] = "must not exceed " + strconv.FormatInt(maxQuantity, 10)
		}
	}
	if f.Override != nil {
		checkAmount(details, "priceOverride", f.Override.Amount, maxAmount)
	}
	if err := pricing.ValidateOverride(f.Override); err != nil {
		details["priceChangeNote"] = err.Error()
	}
	if f.ApplyCredit && f.CustomerID == "" {
		details["customerId"] = "is required when applying credit"
	}
	return details
}

func checkAmount(details map[string]string, field string, v, max decimal.Decimal) {
	switch {
	case v.IsNegative():
		details[field] = "must not be negative"
	case v.GreaterThan(max):
		details[field] = "must not exceed " + max.String()
	}
}
