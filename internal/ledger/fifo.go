package ledger

import (
	"context"

	"github.com/dmaraujo/merenda-go/internal/domain"
	"github.com/dmaraujo/merenda-go/internal/normalize"
)

// OldestLot scans every supplier's deliveries for the item and returns the
// non-exhausted lot belonging to the earliest delivery, or nil when the item
// is exhausted everywhere. Ties on the delivery date fall back to snapshot
// insertion order, which is stable.
func (l *Ledger) OldestLot(ctx context.Context, itemName string) (*domain.LotRef, error) {
	key := normalize.Key(itemName)
	if key == "" {
		return nil, &domain.ValidationError{Field: "item", Reason: "name required"}
	}

	suppliers, err := l.repo.Suppliers(ctx)
	if err != nil {
		return nil, err
	}

	var best *domain.LotRef
	for _, s := range suppliers {
		for _, d := range s.Deliveries {
			if d.Status != domain.DeliveryFulfilled {
				continue
			}
			if !l.matcher.Match(normalize.Key(d.ItemName), key) {
				continue
			}
			for _, lot := range d.Lots {
				if lot.Exhausted() {
					continue
				}
				if best != nil && !d.Date.Before(best.DeliveryDate) {
					continue
				}
				best = &domain.LotRef{
					SupplierID:   s.ID,
					SupplierName: s.Name,
					DeliveryID:   d.ID,
					DeliveryDate: d.Date,
					ItemName:     d.ItemName,
					Lot:          lot,
				}
			}
		}
	}
	return best, nil
}
