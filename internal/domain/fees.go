package domain

import "github.com/shopspring/decimal"

// FeeScope says which entity owns a fee definition.
type FeeScope string

const (
	ScopeBuilding FeeScope = "building"
	ScopeRoomType FeeScope = "room_type"
)

// FeeDefinition is the configured read-model of an additional fee. Quantity
// is always derived from the stay, never stored here.
type FeeDefinition struct {
	ID        int64
	Scope     FeeScope
	OwnerID   int64
	Title     string
	PriceEUR  decimal.Decimal
	Mandatory bool
	PerNight  bool
	PerGuest  bool
}

// FeeRef identifies a fee definition across the two scopes. Identical titles
// from different scopes stay distinct through the (Scope, ID) pair.
type FeeRef struct {
	Scope FeeScope `json:"scope"`
	ID    int64    `json:"id"`
}

func (d FeeDefinition) Ref() FeeRef { return FeeRef{Scope: d.Scope, ID: d.ID} }

// FeeLine is the persisted snapshot of a fee applied to a booking. It copies
// title, unit price and quantity at apply-time; later edits to the definition
// never touch existing bookings. Scope/DefID remember where the line came
// from, used only when an edit explicitly re-runs the resolver; a line whose
// definition has since been deleted is logged and skipped there, never fatal.
type FeeLine struct {
	ID        int64
	BookingID int64
	Scope     FeeScope
	DefID     int64
	Title     string
	PriceEUR  decimal.Decimal
	Quantity  int
}

func (l FeeLine) Ref() FeeRef { return FeeRef{Scope: l.Scope, ID: l.DefID} }

func (l FeeLine) Total() decimal.Decimal {
	return l.PriceEUR.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// FeeLinesTotal sums snapshot lines; group aggregation reads these, not the
// live definitions.
func FeeLinesTotal(lines []FeeLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

// ResolvedFee is one applicable fee with its derived quantity and line total.
type ResolvedFee struct {
	Ref       FeeRef
	Title     string
	UnitPrice decimal.Decimal
	Quantity  int
	Total     decimal.Decimal
	Mandatory bool
	PerNight  bool
	PerGuest  bool
}

func (f ResolvedFee) Line(bookingID int64) FeeLine {
	return FeeLine{
		BookingID: bookingID,
		Scope:     f.Ref.Scope,
		DefID:     f.Ref.ID,
		Title:     f.Title,
		PriceEUR:  f.UnitPrice,
		Quantity:  f.Quantity,
	}
}

// SelectedRefs recovers a booking's selection set from its snapshot lines.
// Mandatory fees are re-included by the resolver regardless, so passing every
// line's ref back in is safe.
func SelectedRefs(lines []FeeLine) []FeeRef {
	seen := make(map[FeeRef]bool, len(lines))
	var refs []FeeRef
	for _, l := range lines {
		if r := l.Ref(); !seen[r] {
			seen[r] = true
			refs = append(refs, r)
		}
	}
	return refs
}

// ResolveFees computes the applicable fees for one room from the building and
// room-type definition sets. Mandatory fees are always included; optional ones
// only when their ref is selected. Quantity starts at one and compounds
// multiplicatively: nights when PerNight, guests when PerGuest. Output order
// is deterministic: building definitions first, then room-type definitions,
// each in storage order. Selected refs that match no definition are ignored
// here; callers log them (a dangling ref must not block a recompute).
func ResolveFees(buildingDefs, roomTypeDefs []FeeDefinition, nights, guests int, selected []FeeRef) []ResolvedFee {
	want := make(map[FeeRef]bool, len(selected))
	for _, ref := range selected {
		want[ref] = true
	}
	var out []ResolvedFee
	for _, d := range append(append([]FeeDefinition(nil), buildingDefs...), roomTypeDefs...) {
		if !d.Mandatory && !want[d.Ref()] {
			continue
		}
		qty := 1
		if d.PerNight {
			qty *= nights
		}
		if d.PerGuest {
			qty *= guests
		}
		out = append(out, ResolvedFee{
			Ref:       d.Ref(),
			Title:     d.Title,
			UnitPrice: d.PriceEUR,
			Quantity:  qty,
			Total:     d.PriceEUR.Mul(decimal.NewFromInt(int64(qty))),
			Mandatory: d.Mandatory,
			PerNight:  d.PerNight,
			PerGuest:  d.PerGuest,
		})
	}
	return out
}

// ResolvedFeesTotal sums resolved line totals.
func ResolvedFeesTotal(fees []ResolvedFee) decimal.Decimal {
	total := decimal.Zero
	for _, f := range fees {
		total = total.Add(f.Total)
	}
	return total
}

// UnknownFeeRefs returns the selected refs that matched no definition, for
// warning logs.
func UnknownFeeRefs(buildingDefs, roomTypeDefs []FeeDefinition, selected []FeeRef) []FeeRef {
	known := make(map[FeeRef]bool, len(buildingDefs)+len(roomTypeDefs))
	for _, d := range buildingDefs {
		known[d.Ref()] = true
	}
	for _, d := range roomTypeDefs {
		known[d.Ref()] = true
	}
	var unknown []FeeRef
	for _, ref := range selected {
		if !known[ref] {
			unknown = append(unknown, ref)
		}
	}
	return unknown
}
