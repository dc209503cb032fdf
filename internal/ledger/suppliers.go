package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dmaraujo/merenda-go/internal/domain"
)

// ContractItemInput is one contract line of a supplier registration.
type ContractItemInput struct {
	Name      string          `json:"name"`
	Quantity  float64         `json:"quantity"`
	Unit      domain.Unit     `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// RegisterSupplier creates a supplier with its contract items. Item positions
// follow the input order so reports keep the contract's presentation order.
func (l *Ledger) RegisterSupplier(ctx context.Context, name, contract string, items []ContractItemInput) (*domain.Supplier, error) {
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "required"}
	}

	for _, in := range items {
		if in.Name == "" {
			return nil, &domain.ValidationError{Field: "item name", Reason: "required"}
		}
		if in.Quantity < 0 {
			return nil, &domain.ValidationError{Field: "quantity", Reason: "must not be negative"}
		}
		if err := in.Unit.Validate(); err != nil {
			return nil, &domain.ValidationError{Field: "unit", Reason: err.Error()}
		}
	}

	s := &domain.Supplier{Name: name, Contract: contract, CreatedAt: l.now().UTC()}
	if err := l.repo.CreateSupplier(ctx, s); err != nil {
		return nil, err
	}

	for i, in := range items {
		item := &domain.ContractItem{
			SupplierID: s.ID,
			Name:       in.Name,
			Quantity:   in.Quantity,
			Unit:       in.Unit,
			UnitPrice:  in.UnitPrice,
			Position:   i,
		}
		if err := l.repo.CreateContractItem(ctx, item); err != nil {
			return nil, err
		}
		s.Items = append(s.Items, *item)
	}

	l.invalidateBalances(ctx)
	return s, nil
}

// Suppliers returns the full snapshot with nested contracts, deliveries and
// lots.
func (l *Ledger) Suppliers(ctx context.Context) ([]domain.Supplier, error) {
	return l.repo.Suppliers(ctx)
}

// Supplier returns one supplier with its nested records.
func (l *Ledger) Supplier(ctx context.Context, id int64) (*domain.Supplier, error) {
	return l.repo.SupplierByID(ctx, id)
}

// Delivery returns one delivery with its lots.
func (l *Ledger) Delivery(ctx context.Context, id int64) (*domain.Delivery, error) {
	return l.repo.DeliveryByID(ctx, id)
}
