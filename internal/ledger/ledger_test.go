package ledger

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmaraujo/merenda-go/internal/cache"
	"github.com/dmaraujo/merenda-go/internal/domain"
	"github.com/dmaraujo/merenda-go/internal/normalize"
	"github.com/dmaraujo/merenda-go/internal/repository/memory"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < domain.QuantityTolerance
}

func newTestLedger(t *testing.T) (*Ledger, *memory.Repository) {
	t.Helper()
	repo := memory.New()
	l := New(repo, cache.NewNoopBalanceCache(), normalize.NewMatcher())
	l.now = func() time.Time { return date(2026, time.January, 20) }
	return l, repo
}

func mustSupplier(t *testing.T, l *Ledger, name string, items ...ContractItemInput) *domain.Supplier {
	t.Helper()
	s, err := l.RegisterSupplier(context.Background(), name, "CT-2026/"+name, items)
	if err != nil {
		t.Fatalf("RegisterSupplier(%s): %v", name, err)
	}
	return s
}

func contractItem(name string, qty, price float64) ContractItemInput {
	return ContractItemInput{
		Name:      name,
		Quantity:  qty,
		Unit:      domain.Kilograms(),
		UnitPrice: decimal.NewFromFloat(price),
	}
}

// mustDelivery books a slot and immediately fulfills it with a single item.
func mustDelivery(t *testing.T, l *Ledger, supplierID int64, day time.Time, item string, qty float64, invoice string) *domain.Delivery {
	t.Helper()
	ctx := context.Background()

	slot, err := l.BookDelivery(ctx, supplierID, day, "08:00")
	if err != nil {
		t.Fatalf("BookDelivery: %v", err)
	}

	fulfilled, err := l.FulfillDelivery(ctx, supplierID, []int64{slot.ID}, invoice,
		[]FulfillmentItem{{Name: item, Quantity: qty}})
	if err != nil {
		t.Fatalf("FulfillDelivery: %v", err)
	}
	return &fulfilled[0]
}

func mustLot(t *testing.T, l *Ledger, deliveryID int64, code, barcode string, qty float64) *domain.Lot {
	t.Helper()
	lot, err := l.RegisterLot(context.Background(), deliveryID, LotInput{
		Code:    code,
		Barcode: barcode,
		Initial: qty,
	})
	if err != nil {
		t.Fatalf("RegisterLot(%s): %v", code, err)
	}
	return lot
}
