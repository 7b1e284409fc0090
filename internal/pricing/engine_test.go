package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got.String())
}

func testSettings() Settings {
	return Settings{
		MinimumWeight:             dec("10"),
		MinimumPrice:              dec("15"),
		PricePerPound:             dec("1.25"),
		SameDayExtraCentsPerPound: dec("0.33"),
		SameDayMinimumCharge:      dec("5"),
		DeliveryPrice:             dec("10"),
	}
}

func testCatalog() []ExtraItem {
	return []ExtraItem{
		{ID: "softener", Name: "Fabric Softener", Price: dec("2"), IsActive: true},
		{ID: "hypo", Name: "Hypoallergenic Detergent", Price: dec("3"), PerWeightUnit: decPtr("15"), IsActive: true},
		{ID: "hangers", Name: "Hangers", Price: dec("0.5"), IsActive: true},
	}
}

func bags(weights ...string) []Bag {
	out := make([]Bag, 0, len(weights))
	for i, w := range weights {
		out = append(out, Bag{Identifier: string(rune('A' + i)), Weight: dec(w)})
	}
	return out
}

func TestBasePriceTiers(t *testing.T) {
	s := testSettings()
	p := DefaultPolicy()

	requireMoney(t, "0", BasePrice(decimal.Zero, s, p))
	for _, w := range []string{"0.5", "3", "9.99", "10"} {
		requireMoney(t, "15", BasePrice(dec(w), s, p))
	}

	other := s
	other.PricePerPound = dec("99")
	requireMoney(t, "15", BasePrice(dec("10"), other, p))

	requireMoney(t, "17.5", BasePrice(dec("12"), s, p))
	requireMoney(t, "15.125", BasePrice(dec("10.1"), s, p))
}

func TestBasePriceQuarterRounding(t *testing.T) {
	s := testSettings()
	p := Policy{QuarterRounding: true, WeightItemCost: WeightCostProportional}
	// 0.1 lb * 1.25 = 0.125 -> 0.25
	requireMoney(t, "15.25", BasePrice(dec("10.1"), s, p))
	// 0.3 lb * 1.25 = 0.375 -> 0.5
	requireMoney(t, "15.5", BasePrice(dec("10.3"), s, p))
}

func TestSameDayCharge(t *testing.T) {
	s := testSettings()
	p := DefaultPolicy()

	requireMoney(t, "0", SameDayCharge(dec("40"), false, s, p))
	requireMoney(t, "0", SameDayCharge(decimal.Zero, true, s, p))
	requireMoney(t, "5", SameDayCharge(dec("10"), true, s, p))
	requireMoney(t, "6.6", SameDayCharge(dec("20"), true, s, p))

	quarter := Policy{QuarterRounding: true}
	requireMoney(t, "6.5", SameDayCharge(dec("20"), true, s, quarter))
	requireMoney(t, "5", SameDayCharge(dec("10"), true, s, quarter))
}

func TestSameDayRatePerPound(t *testing.T) {
	requireMoney(t, "1.58", SameDayRatePerPound(testSettings()))
}

func TestExtraItemChargesFixedPrice(t *testing.T) {
	sel := NewSelections(map[string]Selection{"softener": {Quantity: 3, Price: dec("2")}})
	for _, w := range []string{"0", "5", "80"} {
		charges := ExtraItemCharges(testCatalog(), sel, dec(w), DefaultPolicy())
		require.Len(t, charges, 1)
		require.Equal(t, int64(3), charges[0].Quantity)
		requireMoney(t, "6", charges[0].Amount)
	}
}

func TestExtraItemChargesWeightBased(t *testing.T) {
	sel := NewSelections(map[string]Selection{"hypo": {Price: dec("3")}})

	charges := ExtraItemCharges(testCatalog(), sel, dec("32"), DefaultPolicy())
	require.Len(t, charges, 1)
	require.True(t, charges[0].WeightBased)
	require.True(t, charges[0].Computable)
	require.Equal(t, int64(3), charges[0].Quantity)
	requireMoney(t, "6.4", charges[0].Amount)

	ceil := ExtraItemCharges(testCatalog(), sel, dec("32"), Policy{WeightItemCost: WeightCostCeil})
	requireMoney(t, "9", ceil[0].Amount)

	quarter := ExtraItemCharges(testCatalog(), sel, dec("32"), Policy{QuarterRounding: true, WeightItemCost: WeightCostProportional})
	requireMoney(t, "6.5", quarter[0].Amount)
}

func TestExtraItemChargesZeroWeight(t *testing.T) {
	sel := NewSelections(map[string]Selection{"hypo": {Quantity: 4, Price: dec("3")}})
	for _, p := range []Policy{DefaultPolicy(), {WeightItemCost: WeightCostCeil}} {
		charges := ExtraItemCharges(testCatalog(), sel, decimal.Zero, p)
		require.Len(t, charges, 1)
		require.False(t, charges[0].Computable)
		require.Equal(t, int64(0), charges[0].Quantity)
		requireMoney(t, "0", charges[0].Amount)
	}
}

func TestExtraItemChargesOverrideTotal(t *testing.T) {
	sel := NewSelections(map[string]Selection{
		"softener": {Quantity: 10, Price: dec("2"), OverrideTotal: decPtr("1.75")},
		"hypo":     {Price: dec("3"), OverrideTotal: decPtr("4")},
	})
	charges := ExtraItemCharges(testCatalog(), sel, dec("32"), DefaultPolicy())
	require.Len(t, charges, 2)
	requireMoney(t, "1.75", charges[0].Amount)
	require.True(t, charges[0].Overridden)
	requireMoney(t, "4", charges[1].Amount)
}

func TestExtraItemChargesOverrideAppliesAtZeroWeight(t *testing.T) {
	sel := NewSelections(map[string]Selection{"hypo": {Price: dec("3"), OverrideTotal: decPtr("4")}})
	charges := ExtraItemCharges(testCatalog(), sel, decimal.Zero, DefaultPolicy())
	require.Len(t, charges, 1)
	require.False(t, charges[0].Computable)
	require.True(t, charges[0].Overridden)
	requireMoney(t, "4", charges[0].Amount)
}

func TestExtraItemChargesSkipsUnknownIDs(t *testing.T) {
	sel := NewSelections(map[string]Selection{
		"retired":  {Quantity: 2, Price: dec("100")},
		"softener": {Quantity: 1, Price: dec("2")},
	})
	charges := ExtraItemCharges(testCatalog(), sel, dec("12"), DefaultPolicy())
	require.Len(t, charges, 1)
	require.Equal(t, "softener", charges[0].ItemID)
}

func TestDeliveryFee(t *testing.T) {
	requireMoney(t, "0", DeliveryFee(OrderTypeStorePickup, DeliveryFull, dec("10")))
	requireMoney(t, "10", DeliveryFee(OrderTypeDelivery, "", dec("10")))
	requireMoney(t, "10", DeliveryFee(OrderTypeDelivery, DeliveryFull, dec("10")))
	requireMoney(t, "5", DeliveryFee(OrderTypeDelivery, DeliveryPickupOnly, dec("10")))
	requireMoney(t, "5", DeliveryFee(OrderTypeDelivery, DeliveryDeliveryOnly, dec("10")))
}

func TestComputeFullBreakdown(t *testing.T) {
	sel := NewSelections(map[string]Selection{
		"softener": {Quantity: 3, Price: dec("2")},
		"hypo":     {Price: dec("3")},
	})
	q := Compute(testSettings(), testCatalog(), Input{
		Bags:         bags("12", "20"),
		OrderType:    OrderTypeDelivery,
		DeliveryType: DeliveryPickupOnly,
		IsSameDay:    true,
		Selections:   sel,
	}, DefaultPolicy())

	requireMoney(t, "32", q.TotalWeight)
	requireMoney(t, "42.5", q.BasePrice)
	requireMoney(t, "10.56", q.SameDayFee)
	requireMoney(t, "12.4", q.ExtraItemsTotal)
	requireMoney(t, "5", q.DeliveryFee)
	requireMoney(t, "70.46", q.CalculatedTotal)
	requireMoney(t, "70.46", q.FinalTotal)

	codes := make([]string, 0, len(q.LineItems))
	sum := decimal.Zero
	for _, li := range q.LineItems {
		codes = append(codes, li.Code)
		sum = sum.Add(li.Amount)
	}
	require.Equal(t, []string{LineBase, LineSameDay, LineExtraItems, LineDelivery}, codes)
	requireMoney(t, q.CalculatedTotal.String(), sum)
}

func TestComputeOmitsInactiveLines(t *testing.T) {
	q := Compute(testSettings(), testCatalog(), Input{
		Bags:      bags("8"),
		OrderType: OrderTypeStorePickup,
	}, DefaultPolicy())
	require.Len(t, q.LineItems, 1)
	require.Equal(t, LineBase, q.LineItems[0].Code)
	requireMoney(t, "15", q.CalculatedTotal)
}

func TestComputeUsesOrderDeliveryPrice(t *testing.T) {
	q := Compute(testSettings(), nil, Input{
		Bags:          bags("5"),
		OrderType:     OrderTypeDelivery,
		DeliveryPrice: decPtr("7"),
	}, DefaultPolicy())
	requireMoney(t, "7", q.DeliveryFee)
	requireMoney(t, "22", q.FinalTotal)
}

func TestComputeOverrideSupersedesTotal(t *testing.T) {
	q := Compute(testSettings(), testCatalog(), Input{
		Bags:     bags("40"),
		Override: &Override{Amount: dec("20"), Note: "regular customer"},
	}, DefaultPolicy())
	requireMoney(t, "52.5", q.CalculatedTotal)
	requireMoney(t, "20", q.TotalBeforeCredit)
	requireMoney(t, "20", q.FinalTotal)
	require.True(t, q.Overridden())

	negative := Compute(testSettings(), nil, Input{
		Bags:     bags("5"),
		Override: &Override{Amount: dec("-3"), Note: "x"},
	}, DefaultPolicy())
	requireMoney(t, "0", negative.FinalTotal)
}

func TestComputeCredit(t *testing.T) {
	base := Input{Bags: bags("8"), ApplyCredit: true}

	partial := base
	partial.AvailableCredit = dec("4")
	q := Compute(testSettings(), nil, partial, DefaultPolicy())
	requireMoney(t, "4", q.CreditApplied)
	requireMoney(t, "11", q.FinalTotal)

	covering := base
	covering.AvailableCredit = dec("100")
	q = Compute(testSettings(), nil, covering, DefaultPolicy())
	requireMoney(t, "15", q.CreditApplied)
	requireMoney(t, "0", q.FinalTotal)

	notApplied := base
	notApplied.ApplyCredit = false
	notApplied.AvailableCredit = dec("100")
	q = Compute(testSettings(), nil, notApplied, DefaultPolicy())
	requireMoney(t, "0", q.CreditApplied)
	requireMoney(t, "15", q.FinalTotal)

	negative := base
	negative.AvailableCredit = dec("-10")
	q = Compute(testSettings(), nil, negative, DefaultPolicy())
	requireMoney(t, "15", q.FinalTotal)
}

func TestComputeCreditAfterOverride(t *testing.T) {
	q := Compute(testSettings(), nil, Input{
		Bags:            bags("30"),
		Override:        &Override{Amount: dec("25"), Note: "promo"},
		ApplyCredit:     true,
		AvailableCredit: dec("10"),
	}, DefaultPolicy())
	requireMoney(t, "10", q.CreditApplied)
	requireMoney(t, "15", q.FinalTotal)
}

func TestComputeRemovingLastBag(t *testing.T) {
	sel := NewSelections(map[string]Selection{"hypo": {Price: dec("3")}})
	in := Input{Bags: bags("32"), Selections: sel}
	q := Compute(testSettings(), testCatalog(), in, DefaultPolicy())
	requireMoney(t, "6.4", q.ExtraItemsTotal)

	in.Bags = nil
	in.Selections = in.Selections.Recompute(testCatalog(), TotalWeight(in.Bags))
	q = Compute(testSettings(), testCatalog(), in, DefaultPolicy())
	require.Len(t, q.ExtraItems, 1)
	require.Equal(t, int64(0), q.ExtraItems[0].Quantity)
	requireMoney(t, "0", q.ExtraItems[0].Amount)
	requireMoney(t, "0", q.CalculatedTotal)
}

func TestComputeIsDeterministic(t *testing.T) {
	sel := NewSelections(map[string]Selection{
		"softener": {Quantity: 2, Price: dec("2.5")},
		"hypo":     {Price: dec("3")},
		"hangers":  {Quantity: 7, Price: dec("0.5"), OverrideTotal: decPtr("3")},
	})
	in := Input{
		Bags:            bags("7.3", "11.45", "3"),
		OrderType:       OrderTypeDelivery,
		IsSameDay:       true,
		Selections:      sel,
		ApplyCredit:     true,
		AvailableCredit: dec("12.34"),
	}
	first := Compute(testSettings(), testCatalog(), in, DefaultPolicy())
	for i := 0; i < 5; i++ {
		again := Compute(testSettings(), testCatalog(), in, DefaultPolicy())
		require.True(t, first.CalculatedTotal.Equal(again.CalculatedTotal))
		require.True(t, first.FinalTotal.Equal(again.FinalTotal))
		require.Equal(t, len(first.LineItems), len(again.LineItems))
	}
}

func TestValidateOverride(t *testing.T) {
	require.NoError(t, ValidateOverride(nil))
	require.ErrorIs(t, ValidateOverride(&Override{Amount: dec("10")}), ErrOverrideNoteRequired)
	require.ErrorIs(t, ValidateOverride(&Override{Amount: dec("10"), Note: "   "}), ErrOverrideNoteRequired)
	require.NoError(t, ValidateOverride(&Override{Amount: dec("10"), Note: "damaged item refund"}))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("", "")
	require.NoError(t, err)
	require.Equal(t, DefaultPolicy(), p)

	p, err = ParsePolicy("quarter", "ceil")
	require.NoError(t, err)
	require.True(t, p.QuarterRounding)
	require.Equal(t, WeightCostCeil, p.WeightItemCost)

	_, err = ParsePolicy("banker", "")
	require.Error(t, err)
	_, err = ParsePolicy("exact", "linear")
	require.Error(t, err)
}
