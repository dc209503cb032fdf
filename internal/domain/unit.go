package domain

import "fmt"

// UnitKind is the type tag of a contract item's unit descriptor.
type UnitKind string

const (
	UnitKilogram UnitKind = "kilogram"
	UnitBox      UnitKind = "box"
	UnitDozen    UnitKind = "dozen"
	UnitPiece    UnitKind = "unit"
)

// Unit describes how a contracted quantity converts to weight or volume.
// Factor is the per-unit weight/volume equivalence: 1 for plain kilograms,
// the liter content for boxes, the piece weight for units. Dozens have no
// weight equivalence at all and are excluded from weight-based totals.
type Unit struct {
	Kind   UnitKind `json:"kind" db:"unit_kind"`
	Factor float64  `json:"factor" db:"unit_factor"`
}

// Kilograms is the unit for items contracted directly by weight.
func Kilograms() Unit { return Unit{Kind: UnitKilogram, Factor: 1} }

// BoxOf is the unit for items contracted in boxes of the given liter content.
func BoxOf(liters float64) Unit { return Unit{Kind: UnitBox, Factor: liters} }

// Dozens is the unit for items counted by the dozen, with no weight equivalence.
func Dozens() Unit { return Unit{Kind: UnitDozen} }

// Pieces is the unit for items counted individually at the given piece weight.
func Pieces(weight float64) Unit { return Unit{Kind: UnitPiece, Factor: weight} }

// Validate checks that the descriptor resolves to a usable conversion factor.
func (u Unit) Validate() error {
	switch u.Kind {
	case UnitDozen:
		return nil
	case UnitKilogram, UnitBox, UnitPiece:
		if u.Factor < 0 {
			return fmt.Errorf("unit %q: negative conversion factor %v", u.Kind, u.Factor)
		}
		return nil
	default:
		return fmt.Errorf("unknown unit kind %q", u.Kind)
	}
}

// WeightOf converts a raw quantity into its weight/volume equivalent.
func (u Unit) WeightOf(qty float64) float64 {
	if u.Kind == UnitDozen {
		return 0
	}
	return qty * u.Factor
}
