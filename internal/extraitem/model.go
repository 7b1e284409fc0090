package extraitem

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/noah-isme/backend-laundry/internal/common"
	"github.com/noah-isme/backend-laundry/internal/pricing"
)

// Record is a persisted catalog entry.
type Record struct {
	pricing.ExtraItem
	SortOrder int
	UpdatedAt time.Time
}

// View is the API representation of Record.
type View struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Price         json.Number  `json:"price"`
	PerWeightUnit *json.Number `json:"perWeightUnit"`
	WeightBased   bool         `json:"weightBased"`
	IsActive      bool         `json:"isActive"`
	SortOrder     int          `json:"sortOrder"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// ToView renders r for API responses.
func ToView(r Record) View {
	v := View{
		ID:          r.ID,
		Name:        r.Name,
		Price:       common.Amount(r.Price),
		WeightBased: r.IsWeightBased(),
		IsActive:    r.IsActive,
		SortOrder:   r.SortOrder,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.PerWeightUnit != nil {
		n := common.Number(*r.PerWeightUnit)
		v.PerWeightUnit = &n
	}
	return v
}

// ToViews renders a list.
func ToViews(rs []Record) []View {
	out := make([]View, 0, len(rs))
	for _, r := range rs {
		out = append(out, ToView(r))
	}
	return out
}

// Items strips persistence metadata for the pricing engine.
func Items(rs []Record) []pricing.ExtraItem {
	out := make([]pricing.ExtraItem, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ExtraItem)
	}
	return out
}

// WriteRequest creates or replaces a catalog entry. PerWeightUnit makes the
// item weight-based when positive.
type WriteRequest struct {
	Name          string             `json:"name" validate:"required,max=120"`
	Price         common.FlexNumber  `json:"price"`
	PerWeightUnit *common.FlexNumber `json:"perWeightUnit"`
	IsActive      *bool              `json:"isActive"`
	SortOrder     int                `json:"sortOrder" validate:"min=0"`
}

func (r WriteRequest) validate() error {
	details := map[string]string{}
	if strings.TrimSpace(r.Name) == "" {
		details["name"] = "is required"
	}
	if r.Price.IsNegative() {
		details["price"] = "must not be negative"
	}
	if r.PerWeightUnit != nil && r.PerWeightUnit.IsNegative() {
		details["perWeightUnit"] = "must not be negative"
	}
	if len(details) > 0 {
		return common.ValidationError("invalid extra item", details)
	}
	return nil
}

func (r WriteRequest) apply(rec *Record) {
	rec.Name = strings.TrimSpace(r.Name)
	rec.Price = r.Price.Decimal
	rec.PerWeightUnit = nil
	if r.PerWeightUnit != nil && r.PerWeightUnit.IsPositive() {
		unit := r.PerWeightUnit.Decimal
		rec.PerWeightUnit = &unit
	}
	rec.IsActive = true
	if r.IsActive != nil {
		rec.IsActive = *r.IsActive
	}
	rec.SortOrder = r.SortOrder
}
