package repository

import (
	"context"

	"github.com/dmaraujo/merenda-go/internal/domain"
)

// Withdrawal is the precomputed effect of one exit movement. The repository
// must apply all three parts atomically: the lot decrement, the delivery
// remaining recompute, and the ledger append.
type Withdrawal struct {
	LotID                int64
	NewLotRemaining      float64
	DeliveryID           int64
	NewDeliveryRemaining float64
	Movement             domain.Movement
}

// LedgerRepository is the persistence boundary of the ledger core. Suppliers
// own contract items and deliveries; deliveries own lots; movements are a
// separate append-only collection that references ids by value.
type LedgerRepository interface {
	// Suppliers returns the full snapshot with nested items, deliveries and
	// lots, ordered by insertion. The FIFO resolver and the balance
	// aggregator read everything through this.
	Suppliers(ctx context.Context) ([]domain.Supplier, error)
	SupplierByID(ctx context.Context, id int64) (*domain.Supplier, error)
	CreateSupplier(ctx context.Context, s *domain.Supplier) error
	CreateContractItem(ctx context.Context, item *domain.ContractItem) error
	ContractItemByID(ctx context.Context, id int64) (*domain.ContractItem, error)

	CreateDelivery(ctx context.Context, d *domain.Delivery) error
	DeliveryByID(ctx context.Context, id int64) (*domain.Delivery, error)
	SaveFulfillment(ctx context.Context, d *domain.Delivery) error
	DeleteDelivery(ctx context.Context, id int64) error
	ReopenDelivery(ctx context.Context, id int64) error

	InsertLot(ctx context.Context, lot *domain.Lot) error
	LotContext(ctx context.Context, barcode string) (*domain.LotContext, error)

	AppendMovement(ctx context.Context, m *domain.Movement) error
	ApplyWithdrawal(ctx context.Context, w Withdrawal) error
	Movements(ctx context.Context, f domain.MovementFilter) ([]domain.Movement, error)
}
