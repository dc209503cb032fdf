package ledger

import (
	"context"
	"time"

	"github.com/dmaraujo/merenda-go/internal/domain"
	"github.com/dmaraujo/merenda-go/internal/quota"
)

// ItemQuota computes the per-period delivery targets for one contract item.
// Quantities are weight-normalized through the item's unit descriptor before
// allocation, so boxes and loose kilograms land on the same scale; dozen
// items contribute zero weight and allocate a zero target.
func (l *Ledger) ItemQuota(ctx context.Context, supplierID, itemID int64, start time.Time, periods int) ([]quota.Target, error) {
	item, err := l.repo.ContractItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.SupplierID != supplierID {
		return nil, &domain.NotFoundError{Entity: "contract item", Ref: item.Name}
	}

	supplier, err := l.repo.SupplierByID(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	var events []quota.Event
	for _, d := range supplier.Deliveries {
		if d.Status != domain.DeliveryFulfilled {
			continue
		}
		if !l.matcher.MatchNames(item.Name, d.ItemName) {
			continue
		}
		events = append(events, quota.Event{
			Date:     d.Date,
			Quantity: item.Unit.WeightOf(d.Quantity),
		})
	}

	if periods <= 0 {
		periods = quota.DefaultPeriods
	}
	return quota.Allocate(item.ContractedWeight(), quota.MonthlyPeriods(start, periods), events, l.now()), nil
}
