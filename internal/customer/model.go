package customer

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-laundry/internal/common"
)

// Customer is a laundromat client with a prepaid credit balance.
type Customer struct {
	ID            string
	Name          string
	Phone         string
	Email         string
	Credit        decimal.Decimal
	DeliveryPrice *decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// View is the API representation of Customer.
type View struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Phone         string       `json:"phone,omitempty"`
	Email         string       `json:"email,omitempty"`
	Credit        json.Number  `json:"credit"`
	DeliveryPrice *json.Number `json:"deliveryPrice"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// ToView renders c for API responses.
func ToView(c Customer) View {
	v := View{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		Credit:    common.Amount(c.Credit),
		CreatedAt: c.CreatedAt,
	}
	if c.DeliveryPrice != nil {
		n := common.Amount(*c.DeliveryPrice)
		v.DeliveryPrice = &n
	}
	return v
}

// CreateRequest registers a customer.
type CreateRequest struct {
	Name          string             `json:"name" validate:"required,max=120"`
	Phone         string             `json:"phone" validate:"max=40"`
	Email         string             `json:"email" validate:"omitempty,email,max=254"`
	Credit        common.FlexNumber  `json:"credit"`
	DeliveryPrice *common.FlexNumber `json:"deliveryPrice"`
}

func (r CreateRequest) validate() error {
	details := map[string]string{}
	if strings.TrimSpace(r.Name) == "" {
		details["name"] = "is required"
	}
	if r.Credit.IsNegative() {
		details["credit"] = "must not be negative"
	}
	if r.DeliveryPrice != nil && r.DeliveryPrice.IsNegative() {
		details["deliveryPrice"] = "must not be negative"
	}
	if len(details) > 0 {
		return common.ValidationError("invalid customer", details)
	}
	return nil
}

// CreditRequest adds (or with a negative amount, removes) store credit.
type CreditRequest struct {
	Amount common.FlexNumber `json:"amount"`
	Note   string            `json:"note" validate:"max=500"`
}
