package quote

import (
	"encoding/json"

	"github.com/noah-isme/backend-laundry/internal/common"
)

// LineView is one row of the price breakdown.
type LineView struct {
	Code   string      `json:"code"`
	Label  string      `json:"label"`
	Amount json.Number `json:"amount"`
}

// ExtraChargeView details one priced extra item.
type ExtraChargeView struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	WeightBased bool        `json:"weightBased"`
	Computable  bool        `json:"computable"`
	Quantity    int64       `json:"quantity"`
	UnitPrice   json.Number `json:"unitPrice"`
	Overridden  bool        `json:"overridden"`
	Amount      json.Number `json:"amount"`
}

// SelectionView is a normalised selection echoed back to the form.
type SelectionView struct {
	Quantity      int64        `json:"quantity"`
	Price         json.Number  `json:"price"`
	OverrideTotal *json.Number `json:"overrideTotal,omitempty"`
}

// View is the API representation of a quote.
type View struct {
	Currency            string                   `json:"currency,omitempty"`
	LineItems           []LineView               `json:"lineItems"`
	ExtraItems          []ExtraChargeView        `json:"extraItems"`
	Selections          map[string]SelectionView `json:"selections"`
	TotalWeight         json.Number              `json:"totalWeight"`
	BasePrice           json.Number              `json:"basePrice"`
	SameDayFee          json.Number              `json:"sameDayFee"`
	SameDayRatePerPound json.Number              `json:"sameDayRatePerPound"`
	ExtraItemsTotal     json.Number              `json:"extraItemsTotal"`
	DeliveryFee         json.Number              `json:"deliveryFee"`
	CalculatedTotal     json.Number              `json:"calculatedTotal"`
	PriceOverride       *json.Number             `json:"priceOverride"`
	PriceChangeNote     string                   `json:"priceChangeNote,omitempty"`
	TotalBeforeCredit   json.Number              `json:"totalBeforeCredit"`
	CreditApplied       json.Number              `json:"creditApplied"`
	FinalTotal          json.Number              `json:"finalTotal"`
	Warnings            map[string]string        `json:"warnings,omitempty"`
}

// ToView renders res.
func ToView(res Result) View {
	q := res.Quote
	v := View{
		LineItems:           make([]LineView, 0, len(q.LineItems)),
		ExtraItems:          make([]ExtraChargeView, 0, len(q.ExtraItems)),
		Selections:          make(map[string]SelectionView, res.Form.Selections.Len()),
		TotalWeight:         common.Number(q.TotalWeight),
		BasePrice:           common.Amount(q.BasePrice),
		SameDayFee:          common.Amount(q.SameDayFee),
		SameDayRatePerPound: common.Amount(q.SameDayRatePerPound),
		ExtraItemsTotal:     common.Amount(q.ExtraItemsTotal),
		DeliveryFee:         common.Amount(q.DeliveryFee),
		CalculatedTotal:     common.Amount(q.CalculatedTotal),
		TotalBeforeCredit:   common.Amount(q.TotalBeforeCredit),
		CreditApplied:       common.Amount(q.CreditApplied),
		FinalTotal:          common.Amount(q.FinalTotal),
	}
	for _, li := range q.LineItems {
		v.LineItems = append(v.LineItems, LineView{Code: li.Code, Label: li.Label, Amount: common.Amount(li.Amount)})
	}
	for _, c := range q.ExtraItems {
		v.ExtraItems = append(v.ExtraItems, ExtraChargeView{
			ID:          c.ItemID,
			Name:        c.Name,
			WeightBased: c.WeightBased,
			Computable:  c.Computable,
			Quantity:    c.Quantity,
			UnitPrice:   common.Amount(c.UnitPrice),
			Overridden:  c.Overridden,
			Amount:      common.Amount(c.Amount),
		})
	}
	for id, sel := range res.Form.Selections.Entries() {
		sv := SelectionView{Quantity: sel.Quantity, Price: common.Amount(sel.Price)}
		if sel.OverrideTotal != nil {
			n := common.Amount(*sel.OverrideTotal)
			sv.OverrideTotal = &n
		}
		v.Selections[id] = sv
	}
	if q.Override != nil {
		n := common.Amount(q.Override.Amount)
		v.PriceOverride = &n
		v.PriceChangeNote = q.Override.Note
	}
	return v
}

