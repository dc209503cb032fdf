package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmaraujo/merenda-go/internal/domain"
)

func TestRecordEntry(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	s := mustSupplier(t, l, "Hortifruti Sul", contractItem("Arroz Agulhinha", 400, 5.50))
	d := mustDelivery(t, l, s.ID, date(2026, time.January, 5), "Arroz Agulhinha", 100, "NF-1")
	lot := mustLot(t, l, d.ID, "L-01", "789100001", 100)

	m, err := l.RecordEntry(ctx, lot.Barcode, "")
	if err != nil {
		t.Fatalf("RecordEntry: %v", err)
	}

	if m.Type != domain.MovementEntry {
		t.Errorf("type = %s, want entry", m.Type)
	}
	if m.Reference != "NF-1" {
		t.Errorf("reference = %q, want the delivery invoice by default", m.Reference)
	}
	if m.SupplierName != "Hortifruti Sul" || m.ItemName != "Arroz Agulhinha" {
		t.Errorf("movement context = %q/%q", m.SupplierName, m.ItemName)
	}

	// Entries are informational: lot quantities stay fixed.
	lc, err := l.Delivery(ctx, d.ID)
	if err != nil {
		t.Fatalf("Delivery: %v", err)
	}
	if !almostEqual(lc.Lots[0].Remaining, 100) {
		t.Errorf("lot remaining after entry = %v, want 100", lc.Lots[0].Remaining)
	}
}

func TestRecordEntryUnknownBarcode(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.RecordEntry(context.Background(), "nope", "")
	var nerr *domain.NotFoundError
	if !errors.As(err, &nerr) {
		t.Errorf("got %v, want NotFoundError", err)
	}
}

func TestRecordExit(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	s := mustSupplier(t, l, "Hortifruti Sul", contractItem("Arroz Agulhinha", 400, 5.50))
	d := mustDelivery(t, l, s.ID, date(2026, time.January, 5), "Arroz Agulhinha", 100, "NF-1")
	lot := mustLot(t, l, d.ID, "L-01", "789100001", 100)

	m, advisory, err := l.RecordExit(ctx, ExitInput{
		Barcode:   lot.Barcode,
		Quantity:  30,
		Reference: "REQ-77",
	})
	if err != nil {
		t.Fatalf("RecordExit: %v", err)
	}
	if advisory != nil {
		t.Fatalf("unexpected advisory for the only lot: %+v", advisory)
	}
	if m.Type != domain.MovementExit || !almostEqual(m.Quantity, 30) {
		t.Errorf("movement = %+v", m)
	}

	reloaded, err := l.Delivery(ctx, d.ID)
	if err != nil {
		t.Fatalf("Delivery: %v", err)
	}
	if !almostEqual(reloaded.Lots[0].Remaining, 70) {
		t.Errorf("lot remaining = %v, want 70", reloaded.Lots[0].Remaining)
	}
	// deliveryTotal − (sumOfLotsInitial − sumOfLotsRemaining) = 100 − (100−70)
	if !almostEqual(reloaded.Remaining, 70) {
		t.Errorf("delivery remaining = %v, want 70", reloaded.Remaining)
	}
}

func TestRecordExitInsufficientStock(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	s := mustSupplier(t, l, "Hortifruti Sul", contractItem("Arroz Agulhinha", 400, 5.50))
	d := mustDelivery(t, l, s.ID, date(2026, time.January, 5), "Arroz Agulhinha", 100, "NF-1")
	lot := mustLot(t, l, d.ID, "L-01", "789100001", 5)

	_, _, err := l.RecordExit(ctx, ExitInput{Barcode: lot.Barcode, Quantity: 7, Reference: "REQ-1"})
	var serr *domain.InsufficientStockError
	if !errors.As(err, &serr) {
		t.Fatalf("got %v, want InsufficientStockError", err)
	}
	if !almostEqual(serr.Remaining, 5) || !almostEqual(serr.Requested, 7) {
		t.Errorf("error payload = %+v", serr)
	}

	// The rejection must leave everything untouched.
	reloaded, _ := l.Delivery(ctx, d.ID)
	if !almostEqual(reloaded.Lots[0].Remaining, 5) {
		t.Errorf("lot remaining after rejection = %v, want 5", reloaded.Lots[0].Remaining)
	}
	movements, _ := l.Movements(ctx, domain.MovementFilter{Type: domain.MovementExit})
	if len(movements) != 0 {
		t.Errorf("got %d exit movements after rejection, want 0", len(movements))
	}
}

func TestRecordExitValidation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	for _, in := range []ExitInput{
		{Barcode: "x", Quantity: 0, Reference: "REQ-1"},
		{Barcode: "x", Quantity: -2, Reference: "REQ-1"},
		{Barcode: "x", Quantity: 1},
	} {
		_, _, err := l.RecordExit(ctx, in)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("RecordExit(%+v) = %v, want ValidationError", in, err)
		}
	}

	_, _, err := l.RecordExit(ctx, ExitInput{Barcode: "ghost", Quantity: 1, Reference: "REQ-1"})
	var nerr *domain.NotFoundError
	if !errors.As(err, &nerr) {
		t.Errorf("got %v, want NotFoundError for unknown barcode", err)
	}
}

func TestRecordExitConcurrent(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	s := mustSupplier(t, l, "Hortifruti Sul", contractItem("Arroz Agulhinha", 400, 5.50))
	d := mustDelivery(t, l, s.ID, date(2026, time.January, 5), "Arroz Agulhinha", 10, "NF-1")
	lot := mustLot(t, l, d.ID, "L-01", "789100001", 10)

	const (
		workers = 4
		qty     = 3
	)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := l.RecordExit(ctx, ExitInput{Barcode: lot.Barcode, Quantity: qty, Reference: "REQ-C"})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 4 workers x 3 units against 10 in stock: at most 3 may succeed.
	if succeeded > 3 {
		t.Errorf("%d concurrent withdrawals succeeded, combined overdraw", succeeded)
	}

	reloaded, _ := l.Delivery(ctx, d.ID)
	remaining := reloaded.Lots[0].Remaining
	if !almostEqual(remaining, 10-float64(succeeded*qty)) {
		t.Errorf("remaining = %v after %d withdrawals of %d", remaining, succeeded, qty)
	}
	if remaining < 0 || remaining > reloaded.Lots[0].Initial {
		t.Errorf("remaining %v outside [0, initial]", remaining)
	}
}
