package pricing

import (
	"github.com/shopspring/decimal"
)

// BasePrice applies the tiered weight price: a flat minimum up to
// MinimumWeight and PricePerPound for every pound above it.
func BasePrice(weight decimal.Decimal, s Settings, p Policy) Money {
	if !weight.IsPositive() {
		return decimal.Zero
	}
	if weight.LessThanOrEqual(s.MinimumWeight) {
		return s.MinimumPrice
	}
	extra := weight.Sub(s.MinimumWeight).Mul(s.PricePerPound)
	return s.MinimumPrice.Add(p.quarter(extra))
}

// SameDayCharge is the same-day surcharge, floored at SameDayMinimumCharge.
func SameDayCharge(weight decimal.Decimal, isSameDay bool, s Settings, p Policy) Money {
	if !isSameDay || !weight.IsPositive() {
		return decimal.Zero
	}
	raw := weight.Mul(s.SameDayExtraCentsPerPound)
	return p.quarter(decimal.Max(raw, s.SameDayMinimumCharge))
}

// SameDayRatePerPound is the effective per-pound rate shown for same-day orders.
func SameDayRatePerPound(s Settings) Money {
	return s.PricePerPound.Add(s.SameDayExtraCentsPerPound)
}

// ExtraItemCharges prices every selected catalog item in catalog order.
// Selections whose id is not in the catalog are ignored.
func ExtraItemCharges(catalog []ExtraItem, sel Selections, totalWeight decimal.Decimal, p Policy) []ExtraCharge {
	charges := make([]ExtraCharge, 0, sel.Len())
	for _, item := range catalog {
		s, ok := sel.Get(item.ID)
		if !ok {
			continue
		}
		charge := ExtraCharge{
			ItemID:      item.ID,
			Name:        item.Name,
			WeightBased: item.IsWeightBased(),
			Computable:  true,
			UnitPrice:   nonNegative(s.Price),
		}
		if charge.WeightBased {
			charge.Quantity = DerivedQuantity(totalWeight, *item.PerWeightUnit)
			charge.Computable = totalWeight.IsPositive()
			charge.Amount = weightBasedAmount(totalWeight, *item.PerWeightUnit, charge.UnitPrice, p)
		} else {
			if s.Quantity <= 0 {
				continue
			}
			charge.Quantity = s.Quantity
			charge.Amount = charge.UnitPrice.Mul(decimal.NewFromInt(s.Quantity))
		}
		if s.OverrideTotal != nil {
			charge.Overridden = true
			charge.Amount = nonNegative(*s.OverrideTotal)
		}
		charge.Amount = RoundCents(charge.Amount)
		charges = append(charges, charge)
	}
	return charges
}

func weightBasedAmount(totalWeight, unit decimal.Decimal, price Money, p Policy) Money {
	if !totalWeight.IsPositive() {
		return decimal.Zero
	}
	if p.WeightItemCost == WeightCostCeil {
		return price.Mul(decimal.NewFromInt(DerivedQuantity(totalWeight, unit)))
	}
	return p.quarter(totalWeight.Mul(price).Div(unit))
}

// DeliveryFee charges the round-trip price for delivery orders; one-way
// delivery types pay half.
func DeliveryFee(orderType OrderType, deliveryType DeliveryType, price Money) Money {
	if orderType != OrderTypeDelivery {
		return decimal.Zero
	}
	price = nonNegative(price)
	switch deliveryType {
	case DeliveryPickupOnly, DeliveryDeliveryOnly:
		return price.Div(halfDiv)
	default:
		return price
	}
}

// Compute produces the price breakdown and totals for the order inputs.
// It performs no I/O and returns the same Quote for the same arguments.
func Compute(s Settings, catalog []ExtraItem, in Input, p Policy) Quote {
	weight := TotalWeight(in.Bags)
	q := Quote{
		TotalWeight:         weight,
		SameDayRatePerPound: SameDayRatePerPound(s),
	}

	q.BasePrice = RoundCents(BasePrice(weight, s, p))
	q.LineItems = append(q.LineItems, LineItem{Code: LineBase, Label: "Wash & Fold", Amount: q.BasePrice})

	if in.IsSameDay {
		q.SameDayFee = RoundCents(SameDayCharge(weight, true, s, p))
		q.LineItems = append(q.LineItems, LineItem{Code: LineSameDay, Label: "Same-Day Service", Amount: q.SameDayFee})
	}

	q.ExtraItems = ExtraItemCharges(catalog, in.Selections, weight, p)
	q.ExtraItemsTotal = decimal.Zero
	for _, c := range q.ExtraItems {
		q.ExtraItemsTotal = q.ExtraItemsTotal.Add(c.Amount)
	}
	if len(q.ExtraItems) > 0 {
		q.LineItems = append(q.LineItems, LineItem{Code: LineExtraItems, Label: "Extra Items", Amount: q.ExtraItemsTotal})
	}

	if in.OrderType == OrderTypeDelivery {
		price := s.DeliveryPrice
		if in.DeliveryPrice != nil {
			price = *in.DeliveryPrice
		}
		q.DeliveryFee = RoundCents(DeliveryFee(in.OrderType, in.DeliveryType, price))
		q.LineItems = append(q.LineItems, LineItem{Code: LineDelivery, Label: deliveryLabel(in.DeliveryType), Amount: q.DeliveryFee})
	}

	q.CalculatedTotal = decimal.Zero
	for _, li := range q.LineItems {
		q.CalculatedTotal = q.CalculatedTotal.Add(li.Amount)
	}

	q.TotalBeforeCredit = q.CalculatedTotal
	if in.Override != nil {
		o := Override{Amount: RoundCents(nonNegative(in.Override.Amount)), Note: in.Override.Note}
		q.Override = &o
		q.TotalBeforeCredit = o.Amount
	}

	q.CreditApplied = decimal.Zero
	if in.ApplyCredit {
		q.CreditApplied = decimal.Min(nonNegative(in.AvailableCredit), q.TotalBeforeCredit)
	}
	q.FinalTotal = nonNegative(q.TotalBeforeCredit.Sub(q.CreditApplied))
	return q
}

func deliveryLabel(t DeliveryType) string {
	switch t {
	case DeliveryPickupOnly:
		return "Delivery (pickup only)"
	case DeliveryDeliveryOnly:
		return "Delivery (drop-off only)"
	default:
		return "Delivery"
	}
}
