package order

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-laundry/internal/common"
	"github.com/noah-isme/backend-laundry/internal/pricing"
	"github.com/noah-isme/backend-laundry/internal/quote"
)

// PaymentCredit marks orders settled entirely from store credit.
const PaymentCredit = "credit"

// ExtraLine is a persisted extra item with the price it was charged at.
type ExtraLine struct {
	ExtraItemID   string
	Name          string
	Quantity      int64
	Price         decimal.Decimal
	OverrideTotal *decimal.Decimal
	WeightBased   bool
	Amount        decimal.Decimal
}

// Order is a saved laundry order with its frozen price breakdown.
type Order struct {
	ID              string
	OrderNumber     int64
	CustomerID      string
	Status          Status
	OrderType       pricing.OrderType
	DeliveryType    pricing.DeliveryType
	DeliveryPrice   *decimal.Decimal
	IsSameDay       bool
	ApplyCredit     bool
	Bags            []pricing.Bag
	ExtraItems      []ExtraLine
	TotalWeight     decimal.Decimal
	Subtotal        decimal.Decimal
	SameDayFee      decimal.Decimal
	ExtraItemsTotal decimal.Decimal
	DeliveryFee     decimal.Decimal
	CalculatedTotal decimal.Decimal
	PriceOverride   *decimal.Decimal
	PriceChangeNote string
	CreditApplied   decimal.Decimal
	TotalAmount     decimal.Decimal
	IsPaid          bool
	PaymentMethod   string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Form rebuilds the priced inputs of the order.
func (o Order) Form() quote.Form {
	entries := make(map[string]pricing.Selection, len(o.ExtraItems))
	for _, l := range o.ExtraItems {
		entries[l.ExtraItemID] = pricing.Selection{Quantity: l.Quantity, Price: l.Price, OverrideTotal: l.OverrideTotal}
	}
	f := quote.Form{
		CustomerID:    o.CustomerID,
		OrderType:     o.OrderType,
		DeliveryType:  o.DeliveryType,
		DeliveryPrice: o.DeliveryPrice,
		IsSameDay:     o.IsSameDay,
		Bags:          o.Bags,
		Selections:    pricing.NewSelections(entries),
		ApplyCredit:   o.ApplyCredit,
		Notes:         o.Notes,
	}
	if o.PriceOverride != nil {
		f.Override = &pricing.Override{Amount: *o.PriceOverride, Note: o.PriceChangeNote}
	}
	return f
}

// Drifted reports whether q prices the order differently from what was saved.
func (o Order) Drifted(q pricing.Quote) bool {
	return !o.CalculatedTotal.Equal(q.CalculatedTotal) || !o.TotalAmount.Equal(q.FinalTotal)
}

// Assemble turns a computed quote into an unsaved order.
func Assemble(res quote.Result) Order {
	f, q := res.Form, res.Quote
	o := Order{
		Status:          StatusPending,
		CustomerID:      f.CustomerID,
		OrderType:       f.OrderType,
		DeliveryType:    f.DeliveryType,
		DeliveryPrice:   f.DeliveryPrice,
		IsSameDay:       f.IsSameDay,
		ApplyCredit:     f.ApplyCredit,
		Bags:            f.Bags,
		Notes:           f.Notes,
		TotalWeight:     q.TotalWeight,
		Subtotal:        q.BasePrice,
		SameDayFee:      q.SameDayFee,
		ExtraItemsTotal: q.ExtraItemsTotal,
		DeliveryFee:     q.DeliveryFee,
		CalculatedTotal: q.CalculatedTotal,
		CreditApplied:   q.CreditApplied,
		TotalAmount:     q.FinalTotal,
	}
	if o.DeliveryType == "" {
		o.DeliveryType = pricing.DeliveryFull
	}
	if q.Override != nil {
		amount := q.Override.Amount
		o.PriceOverride = &amount
		o.PriceChangeNote = q.Override.Note
	}
	for _, c := range q.ExtraItems {
		line := ExtraLine{
			ExtraItemID: c.ItemID,
			Name:        c.Name,
			Quantity:    c.Quantity,
			Price:       c.UnitPrice,
			WeightBased: c.WeightBased,
			Amount:      c.Amount,
		}
		if c.Overridden {
			total := c.Amount
			line.OverrideTotal = &total
		}
		o.ExtraItems = append(o.ExtraItems, line)
	}
	if q.CreditApplied.IsPositive() && q.FinalTotal.IsZero() {
		o.IsPaid = true
		o.PaymentMethod = PaymentCredit
	}
	return o
}

// BagView is the API representation of a bag.
type BagView struct {
	Identifier  string      `json:"identifier"`
	Weight      json.Number `json:"weight"`
	Color       string      `json:"color,omitempty"`
	Description string      `json:"description,omitempty"`
}

// ExtraLineView is the API representation of an ExtraLine.
type ExtraLineView struct {
	ExtraItemID   string       `json:"extraItemId"`
	Name          string       `json:"name"`
	Quantity      int64        `json:"quantity"`
	Price         json.Number  `json:"price"`
	OverrideTotal *json.Number `json:"overrideTotal,omitempty"`
	WeightBased   bool         `json:"weightBased"`
	Amount        json.Number  `json:"amount"`
}

// View is the API representation of an order.
type View struct {
	ID              string          `json:"id"`
	OrderNumber     int64           `json:"orderNumber"`
	CustomerID      string          `json:"customerId,omitempty"`
	Status          Status          `json:"status"`
	OrderType       string          `json:"orderType"`
	DeliveryType    string          `json:"deliveryType"`
	DeliveryPrice   *json.Number    `json:"deliveryPrice"`
	IsSameDay       bool            `json:"isSameDay"`
	ApplyCredit     bool            `json:"applyCredit"`
	Bags            []BagView       `json:"bags,omitempty"`
	ExtraItems      []ExtraLineView `json:"extraItems,omitempty"`
	TotalWeight     json.Number     `json:"totalWeight"`
	Subtotal        json.Number     `json:"subtotal"`
	SameDayFee      json.Number     `json:"sameDayFee"`
	ExtraItemsTotal json.Number     `json:"extraItemsTotal"`
	DeliveryFee     json.Number     `json:"deliveryFee"`
	CalculatedTotal json.Number     `json:"calculatedTotal"`
	PriceOverride   *json.Number    `json:"priceOverride"`
	PriceChangeNote string          `json:"priceChangeNote,omitempty"`
	CreditApplied   json.Number     `json:"creditApplied"`
	TotalAmount     json.Number     `json:"totalAmount"`
	IsPaid          bool            `json:"isPaid"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func optionalAmount(d *decimal.Decimal) *json.Number {
	if d == nil {
		return nil
	}
	n := common.Amount(*d)
	return &n
}

// ToView renders o.
func ToView(o Order) View {
	v := View{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		Status:          o.Status,
		OrderType:       string(o.OrderType),
		DeliveryType:    string(o.DeliveryType),
		DeliveryPrice:   optionalAmount(o.DeliveryPrice),
		IsSameDay:       o.IsSameDay,
		ApplyCredit:     o.ApplyCredit,
		TotalWeight:     common.Number(o.TotalWeight),
		Subtotal:        common.Amount(o.Subtotal),
		SameDayFee:      common.Amount(o.SameDayFee),
		ExtraItemsTotal: common.Amount(o.ExtraItemsTotal),
		DeliveryFee:     common.Amount(o.DeliveryFee),
		CalculatedTotal: common.Amount(o.CalculatedTotal),
		PriceOverride:   optionalAmount(o.PriceOverride),
		PriceChangeNote: o.PriceChangeNote,
		CreditApplied:   common.Amount(o.CreditApplied),
		TotalAmount:     common.Amount(o.TotalAmount),
		IsPaid:          o.IsPaid,
		PaymentMethod:   o.PaymentMethod,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, b := range o.Bags {
		v.Bags = append(v.Bags, BagView{Identifier: b.Identifier, Weight: common.Number(b.Weight), Color: b.Color, Description: b.Description})
	}
	for _, l := range o.ExtraItems {
		v.ExtraItems = append(v.ExtraItems, ExtraLineView{
			ExtraItemID:   l.ExtraItemID,
			Name:          l.Name,
			Quantity:      l.Quantity,
			Price:         common.Amount(l.Price),
			OverrideTotal: optionalAmount(l.OverrideTotal),
			WeightBased:   l.WeightBased,
			Amount:        common.Amount(l.Amount),
		})
	}
	return v
}

// StatusRequest moves an order along the pipeline.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending washing drying folding ready completed cancelled"`
}
