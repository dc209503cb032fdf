package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmaraujo/merenda-go/internal/domain"
)

func TestItemQuota(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	s := mustSupplier(t, l, "Hortifruti Sul", contractItem("Arroz", 400, 5.50))
	mustDelivery(t, l, s.ID, date(2026, time.January, 10), "Arroz", 60, "NF-1")

	// Evaluated on Feb 10 (the ledger test clock is Jan 20, move it).
	l.now = func() time.Time { return date(2026, time.February, 10) }

	targets, err := l.ItemQuota(ctx, s.ID, s.Items[0].ID, date(2026, time.January, 1), 4)
	if err != nil {
		t.Fatalf("ItemQuota: %v", err)
	}
	if len(targets) != 4 {
		t.Fatalf("got %d targets, want 4", len(targets))
	}
	if !almostEqual(targets[0].Delivered, 60) {
		t.Errorf("period 1 delivered = %v, want 60", targets[0].Delivered)
	}
	if !almostEqual(targets[1].Target, 60) {
		t.Errorf("period 2 target = %v, want 100-40", targets[1].Target)
	}
}

func TestItemQuotaDozenHasNoWeight(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	s := mustSupplier(t, l, "Granja Oeste", ContractItemInput{
		Name:      "Ovos",
		Quantity:  120,
		Unit:      domain.Dozens(),
		UnitPrice: decimal.NewFromFloat(12.00),
	})

	targets, err := l.ItemQuota(ctx, s.ID, s.Items[0].ID, date(2026, time.January, 1), 4)
	if err != nil {
		t.Fatalf("ItemQuota: %v", err)
	}
	for i, tg := range targets {
		if tg.Target != 0 {
			t.Errorf("period %d target = %v, dozens carry no weight equivalence", i, tg.Target)
		}
	}
}

func TestItemQuotaWrongSupplier(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	s1 := mustSupplier(t, l, "Hortifruti Sul", contractItem("Arroz", 400, 5.50))
	s2 := mustSupplier(t, l, "Cereais Norte", contractItem("Feijão", 200, 8.00))

	if _, err := l.ItemQuota(ctx, s2.ID, s1.Items[0].ID, date(2026, time.January, 1), 4); err == nil {
		t.Error("expected NotFoundError for an item of another supplier")
	}
}
