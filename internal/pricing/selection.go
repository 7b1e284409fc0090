package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Selection is the state of a selected extra item. For weight-based items
// Quantity is derived from the order weight and only kept for display.
type Selection struct {
	Quantity      int64
	Price         Money
	OverrideTotal *Money
}

// Selections maps catalog item ids to selected state. An id that is absent is
// not selected; every method returns a new value and leaves the receiver untouched.
type Selections struct {
	items map[string]Selection
}

// NewSelections copies the provided entries.
func NewSelections(entries map[string]Selection) Selections {
	s := Selections{items: make(map[string]Selection, len(entries))}
	for id, sel := range entries {
		s.items[id] = sel
	}
	return s
}

// Len returns the number of selected items.
func (s Selections) Len() int { return len(s.items) }

// Get returns the selection for id.
func (s Selections) Get(id string) (Selection, bool) {
	sel, ok := s.items[id]
	return sel, ok
}

// IDs returns selected ids in lexical order.
func (s Selections) IDs() []string {
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entries returns a copy of the underlying map.
func (s Selections) Entries() map[string]Selection {
	out := make(map[string]Selection, len(s.items))
	for id, sel := range s.items {
		out[id] = sel
	}
	return out
}

func (s Selections) with(id string, sel Selection) Selections {
	next := NewSelections(s.items)
	next.items[id] = sel
	return next
}

// Remove deselects id.
func (s Selections) Remove(id string) Selections {
	if _, ok := s.items[id]; !ok {
		return s
	}
	next := NewSelections(s.items)
	delete(next.items, id)
	return next
}

// Increment adds one unit of a fixed-price item, selecting it at catalog price
// when absent. Weight-based items are switched with Toggle instead.
func (s Selections) Increment(item ExtraItem) Selections {
	if item.IsWeightBased() {
		return s
	}
	sel, ok := s.items[item.ID]
	if !ok {
		return s.with(item.ID, Selection{Quantity: 1, Price: item.Price})
	}
	sel.Quantity++
	return s.with(item.ID, sel)
}

// Decrement removes one unit; reaching zero deselects the item.
func (s Selections) Decrement(id string) Selections {
	sel, ok := s.items[id]
	if !ok {
		return s
	}
	sel.Quantity--
	if sel.Quantity <= 0 {
		return s.Remove(id)
	}
	return s.with(id, sel)
}

// Toggle switches an item on or off. Weight-based items get their derived
// quantity for totalWeight; fixed-price items start at one unit.
func (s Selections) Toggle(item ExtraItem, totalWeight decimal.Decimal) Selections {
	if _, ok := s.items[item.ID]; ok {
		return s.Remove(item.ID)
	}
	sel := Selection{Quantity: 1, Price: item.Price}
	if item.IsWeightBased() {
		sel.Quantity = DerivedQuantity(totalWeight, *item.PerWeightUnit)
	}
	return s.with(item.ID, sel)
}

// SetPrice replaces the per-unit (or per-weight-unit) price of a selected item.
func (s Selections) SetPrice(id string, price Money) Selections {
	sel, ok := s.items[id]
	if !ok {
		return s
	}
	sel.Price = nonNegative(price)
	return s.with(id, sel)
}

// SetOverrideTotal pins the contribution of a selected item.
func (s Selections) SetOverrideTotal(id string, total Money) Selections {
	sel, ok := s.items[id]
	if !ok {
		return s
	}
	v := nonNegative(total)
	sel.OverrideTotal = &v
	return s.with(id, sel)
}

// ClearOverrideTotal returns a selected item to formula pricing.
func (s Selections) ClearOverrideTotal(id string) Selections {
	sel, ok := s.items[id]
	if !ok || sel.OverrideTotal == nil {
		return s
	}
	sel.OverrideTotal = nil
	return s.with(id, sel)
}

// Recompute refreshes derived quantities of weight-based items for totalWeight
// and drops fixed-price entries without a positive quantity. Custom prices and
// override totals are preserved. Ids missing from the catalog are kept as-is.
func (s Selections) Recompute(catalog []ExtraItem, totalWeight decimal.Decimal) Selections {
	byID := indexCatalog(catalog)
	next := Selections{items: make(map[string]Selection, len(s.items))}
	for id, sel := range s.items {
		item, ok := byID[id]
		switch {
		case !ok:
			next.items[id] = sel
		case item.IsWeightBased():
			sel.Quantity = DerivedQuantity(totalWeight, *item.PerWeightUnit)
			next.items[id] = sel
		case sel.Quantity > 0:
			next.items[id] = sel
		}
	}
	return next
}

// DerivedQuantity is ceil(totalWeight / perWeightUnit), or zero when either is not positive.
func DerivedQuantity(totalWeight, perWeightUnit decimal.Decimal) int64 {
	if !totalWeight.IsPositive() || !perWeightUnit.IsPositive() {
		return 0
	}
	return totalWeight.Div(perWeightUnit).Ceil().IntPart()
}

func indexCatalog(catalog []ExtraItem) map[string]ExtraItem {
	out := make(map[string]ExtraItem, len(catalog))
	for _, it := range catalog {
		out[it.ID] = it
	}
	return out
}
