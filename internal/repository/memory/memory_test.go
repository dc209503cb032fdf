package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dmaraujo/merenda-go/internal/domain"
	"github.com/dmaraujo/merenda-go/internal/repository"
)

func seed(t *testing.T, r *Repository) (*domain.Supplier, *domain.Delivery, *domain.Lot) {
	t.Helper()
	ctx := context.Background()

	s := &domain.Supplier{Name: "Hortifruti Sul", Contract: "CT-1"}
	if err := r.CreateSupplier(ctx, s); err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}

	item := &domain.ContractItem{SupplierID: s.ID, Name: "Arroz", Quantity: 400, Unit: domain.Kilograms()}
	if err := r.CreateContractItem(ctx, item); err != nil {
		t.Fatalf("CreateContractItem: %v", err)
	}

	d := &domain.Delivery{
		SupplierID: s.ID,
		Date:       time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
		ItemName:   "Arroz",
		Quantity:   100,
		Status:     domain.DeliveryFulfilled,
		Remaining:  100,
	}
	if err := r.CreateDelivery(ctx, d); err != nil {
		t.Fatalf("CreateDelivery: %v", err)
	}

	lot := &domain.Lot{DeliveryID: d.ID, Code: "L-01", Barcode: "789100001", Initial: 100, Remaining: 100}
	if err := r.InsertLot(ctx, lot); err != nil {
		t.Fatalf("InsertLot: %v", err)
	}
	return s, d, lot
}

func TestLotContext(t *testing.T) {
	r := New()
	s, d, lot := seed(t, r)

	lc, err := r.LotContext(context.Background(), lot.Barcode)
	if err != nil {
		t.Fatalf("LotContext: %v", err)
	}
	if lc.SupplierName != s.Name || lc.Delivery.ID != d.ID || lc.Lot.ID != lot.ID {
		t.Errorf("context = %+v", lc)
	}
	if len(lc.Delivery.Lots) != 1 {
		t.Errorf("delivery lots = %d, want sibling lots attached", len(lc.Delivery.Lots))
	}

	_, err = r.LotContext(context.Background(), "ghost")
	var nerr *domain.NotFoundError
	if !errors.As(err, &nerr) {
		t.Errorf("got %v, want NotFoundError", err)
	}
}

func TestInsertLotDuplicateBarcode(t *testing.T) {
	r := New()
	_, d, _ := seed(t, r)

	err := r.InsertLot(context.Background(), &domain.Lot{
		DeliveryID: d.ID, Code: "L-02", Barcode: "789100001", Initial: 10, Remaining: 10,
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("got %v, want ValidationError for duplicate barcode", err)
	}
}

func TestApplyWithdrawal(t *testing.T) {
	r := New()
	_, d, lot := seed(t, r)
	ctx := context.Background()

	m := domain.Movement{
		ID: uuid.New(), Type: domain.MovementExit,
		At: time.Now().UTC(), LotID: lot.ID, Barcode: lot.Barcode,
		DeliveryID: d.ID, Quantity: 30, Reference: "REQ-1",
	}
	err := r.ApplyWithdrawal(ctx, repository.Withdrawal{
		LotID:                lot.ID,
		NewLotRemaining:      70,
		DeliveryID:           d.ID,
		NewDeliveryRemaining: 70,
		Movement:             m,
	})
	if err != nil {
		t.Fatalf("ApplyWithdrawal: %v", err)
	}

	lc, _ := r.LotContext(ctx, lot.Barcode)
	if lc.Lot.Remaining != 70 || lc.Delivery.Remaining != 70 {
		t.Errorf("state after withdrawal: lot=%v delivery=%v", lc.Lot.Remaining, lc.Delivery.Remaining)
	}

	movements, _ := r.Movements(ctx, domain.MovementFilter{Type: domain.MovementExit})
	if len(movements) != 1 || movements[0].ID != m.ID {
		t.Errorf("movements = %+v", movements)
	}
}

func TestMovementsFilter(t *testing.T) {
	r := New()
	_, d, lot := seed(t, r)
	ctx := context.Background()

	base := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	for i, typ := range []domain.MovementType{domain.MovementEntry, domain.MovementExit, domain.MovementExit} {
		err := r.AppendMovement(ctx, &domain.Movement{
			ID: uuid.New(), Type: typ, At: base.Add(time.Duration(i) * time.Hour),
			LotID: lot.ID, Barcode: lot.Barcode, DeliveryID: d.ID,
		})
		if err != nil {
			t.Fatalf("AppendMovement: %v", err)
		}
	}

	exits, _ := r.Movements(ctx, domain.MovementFilter{Type: domain.MovementExit})
	if len(exits) != 2 {
		t.Errorf("exit movements = %d, want 2", len(exits))
	}

	from := base.Add(90 * time.Minute)
	late, _ := r.Movements(ctx, domain.MovementFilter{From: &from})
	if len(late) != 1 {
		t.Errorf("movements after %v = %d, want 1", from, len(late))
	}

	limited, _ := r.Movements(ctx, domain.MovementFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limited movements = %d, want 1", len(limited))
	}
}

func TestDeleteDeliveryRemovesLots(t *testing.T) {
	r := New()
	_, d, lot := seed(t, r)
	ctx := context.Background()

	if err := r.DeleteDelivery(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDelivery: %v", err)
	}
	if _, err := r.LotContext(ctx, lot.Barcode); err == nil {
		t.Error("lot still resolvable after delivery delete")
	}
	if _, err := r.DeliveryByID(ctx, d.ID); err == nil {
		t.Error("delivery still resolvable after delete")
	}
}

func TestSuppliersSnapshotIsolation(t *testing.T) {
	r := New()
	seed(t, r)
	ctx := context.Background()

	snap, err := r.Suppliers(ctx)
	if err != nil {
		t.Fatalf("Suppliers: %v", err)
	}
	// Mutating the snapshot must not leak into the repository.
	snap[0].Deliveries[0].Lots[0].Remaining = -1

	again, _ := r.Suppliers(ctx)
	if again[0].Deliveries[0].Lots[0].Remaining != 100 {
		t.Error("snapshot mutation leaked into repository state")
	}
}
