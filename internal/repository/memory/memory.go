// Package memory provides a mutex-guarded in-memory LedgerRepository. It
// backs the test suites and small single-node deployments that do not need
// Postgres.
package memory

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/dmaraujo/merenda-go/internal/domain"
	"github.com/dmaraujo/merenda-go/internal/repository"
)

type Repository struct {
	mu sync.RWMutex

	suppliers []domain.Supplier
	items     []domain.ContractItem
	delivs    []domain.Delivery
	lots      []domain.Lot
	movements []domain.Movement

	nextSupplierID int64
	nextItemID     int64
	nextDeliveryID int64
	nextLotID      int64
}

var _ repository.LedgerRepository = (*Repository)(nil)

func New() *Repository {
	return &Repository{
		nextSupplierID: 1,
		nextItemID:     1,
		nextDeliveryID: 1,
		nextLotID:      1,
	}
}

func (r *Repository) Suppliers(ctx context.Context) ([]domain.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Supplier, 0, len(r.suppliers))
	for _, s := range r.suppliers {
		out = append(out, r.assembleSupplier(s))
	}
	return out, nil
}

func (r *Repository) SupplierByID(ctx context.Context, id int64) (*domain.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.suppliers {
		if s.ID == id {
			full := r.assembleSupplier(s)
			return &full, nil
		}
	}
	return nil, &domain.NotFoundError{Entity: "supplier", Ref: itoa(id)}
}

// assembleSupplier copies the supplier with its nested items, deliveries and
// lots in insertion order. Callers hold at least the read lock.
func (r *Repository) assembleSupplier(s domain.Supplier) domain.Supplier {
	out := s
	out.Items = nil
	out.Deliveries = nil
	for _, it := range r.items {
		if it.SupplierID == s.ID {
			out.Items = append(out.Items, it)
		}
	}
	for _, d := range r.delivs {
		if d.SupplierID == s.ID {
			out.Deliveries = append(out.Deliveries, r.assembleDelivery(d))
		}
	}
	return out
}

func (r *Repository) assembleDelivery(d domain.Delivery) domain.Delivery {
	out := d
	out.Lots = nil
	for _, lot := range r.lots {
		if lot.DeliveryID == d.ID {
			out.Lots = append(out.Lots, lot)
		}
	}
	return out
}

func (r *Repository) CreateSupplier(ctx context.Context, s *domain.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.ID = r.nextSupplierID
	r.nextSupplierID++
	r.suppliers = append(r.suppliers, *s)
	return nil
}

func (r *Repository) CreateContractItem(ctx context.Context, item *domain.ContractItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item.ID = r.nextItemID
	r.nextItemID++
	r.items = append(r.items, *item)
	return nil
}

func (r *Repository) ContractItemByID(ctx context.Context, id int64) (*domain.ContractItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, it := range r.items {
		if it.ID == id {
			out := it
			return &out, nil
		}
	}
	return nil, &domain.NotFoundError{Entity: "contract item", Ref: itoa(id)}
}

func (r *Repository) CreateDelivery(ctx context.Context, d *domain.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d.ID = r.nextDeliveryID
	r.nextDeliveryID++
	r.delivs = append(r.delivs, *d)
	return nil
}

func (r *Repository) DeliveryByID(ctx context.Context, id int64) (*domain.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.delivs {
		if d.ID == id {
			out := r.assembleDelivery(d)
			return &out, nil
		}
	}
	return nil, &domain.NotFoundError{Entity: "delivery", Ref: itoa(id)}
}

func (r *Repository) SaveFulfillment(ctx context.Context, d *domain.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.delivs {
		if r.delivs[i].ID == d.ID {
			saved := *d
			saved.Lots = nil
			r.delivs[i] = saved
			return nil
		}
	}
	return &domain.NotFoundError{Entity: "delivery", Ref: itoa(d.ID)}
}

func (r *Repository) DeleteDelivery(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i := range r.delivs {
		if r.delivs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return &domain.NotFoundError{Entity: "delivery", Ref: itoa(id)}
	}
	r.delivs = append(r.delivs[:idx], r.delivs[idx+1:]...)

	// Owned lots go with the delivery. Movements referencing them stay:
	// the ledger is an audit trail, not a live index.
	kept := r.lots[:0]
	for _, lot := range r.lots {
		if lot.DeliveryID != id {
			kept = append(kept, lot)
		}
	}
	r.lots = kept
	return nil
}

func (r *Repository) ReopenDelivery(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.delivs {
		if r.delivs[i].ID == id {
			d := &r.delivs[i]
			d.Status = domain.DeliveryReserved
			d.ItemName = ""
			d.Quantity = 0
			d.Value = d.Value.Sub(d.Value)
			d.Invoice = ""
			d.Remaining = 0

			kept := r.lots[:0]
			for _, lot := range r.lots {
				if lot.DeliveryID != id {
					kept = append(kept, lot)
				}
			}
			r.lots = kept
			return nil
		}
	}
	return &domain.NotFoundError{Entity: "delivery", Ref: itoa(id)}
}

func (r *Repository) InsertLot(ctx context.Context, lot *domain.Lot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.lots {
		if existing.Barcode == lot.Barcode {
			return &domain.ValidationError{Field: "barcode", Reason: "already registered"}
		}
	}

	lot.ID = r.nextLotID
	r.nextLotID++
	r.lots = append(r.lots, *lot)
	return nil
}

func (r *Repository) LotContext(ctx context.Context, barcode string) (*domain.LotContext, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, lot := range r.lots {
		if lot.Barcode != barcode {
			continue
		}
		for _, d := range r.delivs {
			if d.ID == lot.DeliveryID {
				lc := domain.LotContext{
					Lot:      lot,
					Delivery: r.assembleDelivery(d),
				}
				for _, s := range r.suppliers {
					if s.ID == d.SupplierID {
						lc.SupplierName = s.Name
						break
					}
				}
				return &lc, nil
			}
		}
		return nil, &domain.NotFoundError{Entity: "delivery", Ref: itoa(lot.DeliveryID)}
	}
	return nil, &domain.NotFoundError{Entity: "lot", Ref: barcode}
}

func (r *Repository) AppendMovement(ctx context.Context, m *domain.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.movements = append(r.movements, *m)
	return nil
}

func (r *Repository) ApplyWithdrawal(ctx context.Context, w repository.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lotIdx := -1
	for i := range r.lots {
		if r.lots[i].ID == w.LotID {
			lotIdx = i
			break
		}
	}
	if lotIdx < 0 {
		return &domain.NotFoundError{Entity: "lot", Ref: itoa(w.LotID)}
	}

	delivIdx := -1
	for i := range r.delivs {
		if r.delivs[i].ID == w.DeliveryID {
			delivIdx = i
			break
		}
	}
	if delivIdx < 0 {
		return &domain.NotFoundError{Entity: "delivery", Ref: itoa(w.DeliveryID)}
	}

	r.lots[lotIdx].Remaining = w.NewLotRemaining
	r.delivs[delivIdx].Remaining = w.NewDeliveryRemaining
	r.movements = append(r.movements, w.Movement)
	return nil
}

func (r *Repository) Movements(ctx context.Context, f domain.MovementFilter) ([]domain.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Movement, 0, len(r.movements))
	for _, m := range r.movements {
		if f.Barcode != "" && m.Barcode != f.Barcode {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		if f.ItemName != "" && !strings.Contains(strings.ToLower(m.ItemName), strings.ToLower(f.ItemName)) {
			continue
		}
		if f.From != nil && m.At.Before(*f.From) {
			continue
		}
		if f.To != nil && m.At.After(*f.To) {
			continue
		}
		out = append(out, m)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
