package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmaraujo/merenda-go/internal/domain"
	"github.com/dmaraujo/merenda-go/internal/metrics"
	"github.com/dmaraujo/merenda-go/internal/repository"
)

// RecordEntry appends an entry movement for a scanned lot. Entries are
// informational: quantities are fixed at lot creation, so the scan only
// records the fact of arrival against the inbound invoice.
func (l *Ledger) RecordEntry(ctx context.Context, barcode, inboundRef string) (*domain.Movement, error) {
	lc, err := l.repo.LotContext(ctx, barcode)
	if err != nil {
		return nil, err
	}

	if inboundRef == "" {
		inboundRef = lc.Delivery.Invoice
	}

	m := domain.Movement{
		ID:           uuid.New(),
		Type:         domain.MovementEntry,
		At:           l.now().UTC(),
		LotID:        lc.Lot.ID,
		LotCode:      lc.Lot.Code,
		Barcode:      lc.Lot.Barcode,
		ItemName:     lc.Delivery.ItemName,
		SupplierName: lc.SupplierName,
		DeliveryID:   lc.Delivery.ID,
		Quantity:     lc.Lot.Initial,
		Reference:    inboundRef,
	}
	if err := l.repo.AppendMovement(ctx, &m); err != nil {
		return nil, err
	}

	metrics.MovementsTotal.WithLabelValues(string(domain.MovementEntry)).Inc()
	return &m, nil
}

// ExitInput is a withdrawal request from the scanning station.
type ExitInput struct {
	Barcode      string  `json:"barcode"`
	Quantity     float64 `json:"quantity"`
	Reference    string  `json:"reference"`
	OverrideFifo bool    `json:"override_fifo"`
}

// RecordExit withdraws stock from a lot. The whole read-validate-decrement
// sequence runs under the lot's mutex and its three effects (lot decrement,
// delivery recompute, ledger append) are applied atomically by the
// repository.
//
// When the scanned lot is not the globally oldest one holding the item, the
// withdrawal does not fail: it returns a FifoAdvisory naming the oldest lot,
// and proceeds only once the caller resubmits with the override set.
func (l *Ledger) RecordExit(ctx context.Context, in ExitInput) (*domain.Movement, *domain.FifoAdvisory, error) {
	if in.Quantity <= 0 {
		metrics.RejectedWithdrawalsTotal.WithLabelValues("validation").Inc()
		return nil, nil, &domain.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if in.Reference == "" {
		metrics.RejectedWithdrawalsTotal.WithLabelValues("validation").Inc()
		return nil, nil, &domain.ValidationError{Field: "reference", Reason: "outbound requisition reference required"}
	}

	mu := l.lockLot(in.Barcode)
	defer mu.Unlock()

	lc, err := l.repo.LotContext(ctx, in.Barcode)
	if err != nil {
		metrics.RejectedWithdrawalsTotal.WithLabelValues("not_found").Inc()
		return nil, nil, err
	}

	if in.Quantity-lc.Lot.Remaining > domain.QuantityTolerance {
		metrics.RejectedWithdrawalsTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, nil, &domain.InsufficientStockError{
			Barcode:   in.Barcode,
			Remaining: lc.Lot.Remaining,
			Requested: in.Quantity,
		}
	}

	oldest, err := l.OldestLot(ctx, lc.Delivery.ItemName)
	if err != nil {
		return nil, nil, err
	}
	if oldest != nil && oldest.Lot.Barcode != lc.Lot.Barcode {
		if !in.OverrideFifo {
			return nil, &domain.FifoAdvisory{
				RequestedBarcode: in.Barcode,
				OldestBarcode:    oldest.Lot.Barcode,
				OldestLotCode:    oldest.Lot.Code,
				OldestDeliveryID: oldest.DeliveryID,
				OldestSupplier:   oldest.SupplierName,
				OldestDate:       oldest.DeliveryDate,
				ItemName:         lc.Delivery.ItemName,
			}, nil
		}
		metrics.FifoOverridesTotal.Inc()
	}

	newRemaining := lc.Lot.Remaining - in.Quantity
	if newRemaining < 0 {
		newRemaining = 0
	}

	consumed := lc.Delivery.LotsInitialTotal() - (lc.Delivery.LotsRemainingTotal() - in.Quantity)
	newDeliveryRemaining := lc.Delivery.Quantity - consumed

	m := domain.Movement{
		ID:           uuid.New(),
		Type:         domain.MovementExit,
		At:           l.now().UTC(),
		LotID:        lc.Lot.ID,
		LotCode:      lc.Lot.Code,
		Barcode:      lc.Lot.Barcode,
		ItemName:     lc.Delivery.ItemName,
		SupplierName: lc.SupplierName,
		DeliveryID:   lc.Delivery.ID,
		Quantity:     in.Quantity,
		Reference:    in.Reference,
	}

	err = l.repo.ApplyWithdrawal(ctx, repository.Withdrawal{
		LotID:                lc.Lot.ID,
		NewLotRemaining:      newRemaining,
		DeliveryID:           lc.Delivery.ID,
		NewDeliveryRemaining: newDeliveryRemaining,
		Movement:             m,
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.MovementsTotal.WithLabelValues(string(domain.MovementExit)).Inc()
	l.invalidateBalances(ctx)
	return &m, nil, nil
}

// Movements lists ledger entries for audit trails.
func (l *Ledger) Movements(ctx context.Context, f domain.MovementFilter) ([]domain.Movement, error) {
	return l.repo.Movements(ctx, f)
}
