package common

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-laundry/internal/pricing"
)

// AtoiDefault converts the provided string to an integer falling back to the default when parsing fails.
func AtoiDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

// FlexNumber is a JSON number that also accepts numeric strings from form
// fields. Anything that is not a finite number decodes to zero.
type FlexNumber struct {
	decimal.Decimal
}

// NewFlexNumber wraps d.
func NewFlexNumber(d decimal.Decimal) FlexNumber { return FlexNumber{Decimal: d} }

// UnmarshalJSON implements json.Unmarshaler and never fails. Values follow
// pricing.ParseAmount: out-of-range magnitudes become zero and the scale is
// capped at pricing.InputScale.
func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	n.Decimal = decimal.Zero
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = s
	}
	n.Decimal = pricing.ParseAmount(raw)
	return nil
}

// MarshalJSON renders the value as a bare JSON number.
func (n FlexNumber) MarshalJSON() ([]byte, error) {
	return []byte(n.Decimal.String()), nil
}

// Amount renders a decimal as a JSON number rounded to cents.
func Amount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// Number renders a decimal as a JSON number without changing its scale.
func Number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
