package ledger

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmaraujo/merenda-go/internal/domain"
	"github.com/dmaraujo/merenda-go/internal/normalize"
)

// FulfillmentItem is one (item, quantity) pair of an arriving invoice.
type FulfillmentItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

// BookDelivery creates a reserved slot: a date and time the supplier booked,
// with no item, quantity or invoice attached yet.
func (l *Ledger) BookDelivery(ctx context.Context, supplierID int64, date time.Time, scheduled string) (*domain.Delivery, error) {
	if _, err := l.repo.SupplierByID(ctx, supplierID); err != nil {
		return nil, err
	}

	d := &domain.Delivery{
		SupplierID: supplierID,
		Date:       date,
		Scheduled:  scheduled,
		Status:     domain.DeliveryReserved,
	}
	if err := l.repo.CreateDelivery(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// FulfillDelivery attaches an invoice and its (item, quantity) pairs to the
// supplier's reserved slots, one pair per slot in order. Each item must be
// under contract with that supplier; the value is the contracted unit price
// times the delivered quantity. Everything is validated before the first slot
// is written.
func (l *Ledger) FulfillDelivery(ctx context.Context, supplierID int64, slotIDs []int64, invoice string, items []FulfillmentItem) ([]domain.Delivery, error) {
	if invoice == "" {
		return nil, &domain.ValidationError{Field: "invoice", Reason: "required"}
	}
	if len(items) == 0 {
		return nil, &domain.ValidationError{Field: "items", Reason: "at least one item required"}
	}
	if len(items) > len(slotIDs) {
		return nil, &domain.ValidationError{Field: "items", Reason: "more items than reserved slots"}
	}

	supplier, err := l.repo.SupplierByID(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	type pending struct {
		delivery domain.Delivery
		contract domain.ContractItem
		item     FulfillmentItem
	}
	updates := make([]pending, 0, len(items))

	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, &domain.ValidationError{Field: "quantity", Reason: "must be positive"}
		}

		contract, ok := l.contractFor(supplier.Items, item.Name)
		if !ok {
			return nil, &domain.ValidationError{Field: "item", Reason: item.Name + " is not under contract"}
		}

		slot, err := l.repo.DeliveryByID(ctx, slotIDs[i])
		if err != nil {
			return nil, err
		}
		if slot.SupplierID != supplierID {
			return nil, &domain.NotFoundError{Entity: "delivery slot", Ref: strconv.FormatInt(slotIDs[i], 10)}
		}
		if slot.Status == domain.DeliveryFulfilled {
			return nil, &domain.ValidationError{Field: "slot", Reason: "delivery already fulfilled"}
		}

		updates = append(updates, pending{delivery: *slot, contract: contract, item: item})
	}

	fulfilled := make([]domain.Delivery, 0, len(updates))
	for _, u := range updates {
		d := u.delivery
		d.ItemName = u.contract.Name
		d.Quantity = u.item.Quantity
		d.Value = u.contract.UnitPrice.Mul(decimal.NewFromFloat(u.item.Quantity))
		d.Invoice = invoice
		d.Status = domain.DeliveryFulfilled
		d.Remaining = u.item.Quantity

		if err := l.repo.SaveFulfillment(ctx, &d); err != nil {
			return fulfilled, err
		}
		fulfilled = append(fulfilled, d)
	}

	l.invalidateBalances(ctx)
	return fulfilled, nil
}

// contractFor matches a free-text item name against the supplier's contract.
func (l *Ledger) contractFor(items []domain.ContractItem, name string) (domain.ContractItem, bool) {
	key := normalize.Key(name)
	for _, it := range items {
		if l.matcher.Match(normalize.Key(it.Name), key) {
			return it, true
		}
	}
	return domain.ContractItem{}, false
}

// LotInput is the payload for registering a lot against a fulfilled delivery.
type LotInput struct {
	Code    string     `json:"code"`
	Barcode string     `json:"barcode"`
	Initial float64    `json:"initial"`
	Expiry  *time.Time `json:"expiry,omitempty"`
}

// RegisterLot splits a further sub-quantity of a fulfilled delivery into a
// traceable lot. The sum of all lots' initial quantities may never exceed the
// delivered quantity; a violating request is rejected before any mutation.
func (l *Ledger) RegisterLot(ctx context.Context, deliveryID int64, in LotInput) (*domain.Lot, error) {
	if in.Code == "" {
		return nil, &domain.ValidationError{Field: "code", Reason: "required"}
	}
	if in.Initial <= 0 {
		return nil, &domain.ValidationError{Field: "initial", Reason: "must be positive"}
	}

	delivery, err := l.repo.DeliveryByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if delivery.Status != domain.DeliveryFulfilled {
		return nil, &domain.ValidationError{Field: "delivery", Reason: "not fulfilled yet"}
	}

	allocated := delivery.LotsInitialTotal()
	if allocated+in.Initial > delivery.Quantity+domain.QuantityTolerance {
		return nil, &domain.OverAllocationError{
			DeliveryID: deliveryID,
			Delivered:  delivery.Quantity,
			Allocated:  allocated,
			Requested:  in.Initial,
		}
	}

	barcode := in.Barcode
	if barcode == "" {
		barcode = in.Code
	}

	lot := &domain.Lot{
		DeliveryID: deliveryID,
		Code:       in.Code,
		Barcode:    barcode,
		Expiry:     in.Expiry,
		Initial:    in.Initial,
		Remaining:  in.Initial,
	}
	if err := l.repo.InsertLot(ctx, lot); err != nil {
		return nil, err
	}

	l.invalidateBalances(ctx)
	return lot, nil
}

// DeleteDelivery is the administrative removal of a delivery and its lots.
// Ledger movements that reference the removed ids are kept as historical
// residue.
func (l *Ledger) DeleteDelivery(ctx context.Context, id int64) error {
	if err := l.repo.DeleteDelivery(ctx, id); err != nil {
		return err
	}
	l.invalidateBalances(ctx)
	return nil
}

// ReopenDelivery puts a fulfilled delivery back into the reserved state,
// dropping its invoice, item and lots. Movements stay untouched.
func (l *Ledger) ReopenDelivery(ctx context.Context, id int64) error {
	if err := l.repo.ReopenDelivery(ctx, id); err != nil {
		return err
	}
	l.invalidateBalances(ctx)
	return nil
}
