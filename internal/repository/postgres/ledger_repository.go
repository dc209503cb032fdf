// merenda-go/internal/repository/postgres/ledger_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/dmaraujo/merenda-go/internal/domain"
	"github.com/dmaraujo/merenda-go/internal/repository"
)

type ledgerRepository struct {
	db *DB
}

func NewLedgerRepository(db *DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

// contractItemRow flattens the unit value object into its two columns.
type contractItemRow struct {
	domain.ContractItem
	UnitKind   string  `db:"unit_kind"`
	UnitFactor float64 `db:"unit_factor"`
}

func (row contractItemRow) item() domain.ContractItem {
	item := row.ContractItem
	item.Unit = domain.Unit{Kind: domain.UnitKind(row.UnitKind), Factor: row.UnitFactor}
	return item
}

func (r *ledgerRepository) Suppliers(ctx context.Context) ([]domain.Supplier, error) {
	var suppliers []domain.Supplier
	err := sqlx.SelectContext(ctx, r.db, &suppliers, `
		SELECT id, name, contract, created_at
		FROM suppliers
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	if len(suppliers) == 0 {
		return suppliers, nil
	}

	var items []contractItemRow
	err = sqlx.SelectContext(ctx, r.db, &items, `
		SELECT id, supplier_id, name, quantity, unit_kind, unit_factor, unit_price, position
		FROM contract_items
		ORDER BY supplier_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contract items: %w", err)
	}

	var deliveries []domain.Delivery
	err = sqlx.SelectContext(ctx, r.db, &deliveries, `
		SELECT id, supplier_id, date, scheduled, item_name, quantity, value, invoice, status, remaining
		FROM deliveries
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}

	var lots []domain.Lot
	err = sqlx.SelectContext(ctx, r.db, &lots, `
		SELECT id, delivery_id, code, barcode, expiry, initial, remaining
		FROM lots
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}

	lotsByDelivery := make(map[int64][]domain.Lot)
	for _, lot := range lots {
		lotsByDelivery[lot.DeliveryID] = append(lotsByDelivery[lot.DeliveryID], lot)
	}

	byID := make(map[int64]*domain.Supplier, len(suppliers))
	for i := range suppliers {
		byID[suppliers[i].ID] = &suppliers[i]
	}
	for _, row := range items {
		if s, ok := byID[row.SupplierID]; ok {
			s.Items = append(s.Items, row.item())
		}
	}
	for _, d := range deliveries {
		d.Lots = lotsByDelivery[d.ID]
		if s, ok := byID[d.SupplierID]; ok {
			s.Deliveries = append(s.Deliveries, d)
		}
	}

	return suppliers, nil
}

func (r *ledgerRepository) SupplierByID(ctx context.Context, id int64) (*domain.Supplier, error) {
	var s domain.Supplier
	err := sqlx.GetContext(ctx, r.db, &s, `
		SELECT id, name, contract, created_at
		FROM suppliers
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "supplier", Ref: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}

	var items []contractItemRow
	err = sqlx.SelectContext(ctx, r.db, &items, `
		SELECT id, supplier_id, name, quantity, unit_kind, unit_factor, unit_price, position
		FROM contract_items
		WHERE supplier_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list contract items: %w", err)
	}
	for _, row := range items {
		s.Items = append(s.Items, row.item())
	}

	var deliveries []domain.Delivery
	err = sqlx.SelectContext(ctx, r.db, &deliveries, `
		SELECT id, supplier_id, date, scheduled, item_name, quantity, value, invoice, status, remaining
		FROM deliveries
		WHERE supplier_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	for i := range deliveries {
		lots, err := r.lotsOf(ctx, deliveries[i].ID)
		if err != nil {
			return nil, err
		}
		deliveries[i].Lots = lots
	}
	s.Deliveries = deliveries

	return &s, nil
}

func (r *ledgerRepository) CreateSupplier(ctx context.Context, s *domain.Supplier) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO suppliers (name, contract, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`, s.Name, s.Contract).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert supplier: %w", err)
	}
	return nil
}

func (r *ledgerRepository) CreateContractItem(ctx context.Context, item *domain.ContractItem) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO contract_items (supplier_id, name, quantity, unit_kind, unit_factor, unit_price, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, item.SupplierID, item.Name, item.Quantity,
		string(item.Unit.Kind), item.Unit.Factor, item.UnitPrice, item.Position,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to insert contract item: %w", err)
	}
	return nil
}

func (r *ledgerRepository) ContractItemByID(ctx context.Context, id int64) (*domain.ContractItem, error) {
	var row contractItemRow
	err := sqlx.GetContext(ctx, r.db, &row, `
		SELECT id, supplier_id, name, quantity, unit_kind, unit_factor, unit_price, position
		FROM contract_items
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "contract item", Ref: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract item: %w", err)
	}
	item := row.item()
	return &item, nil
}

func (r *ledgerRepository) CreateDelivery(ctx context.Context, d *domain.Delivery) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO deliveries (supplier_id, date, scheduled, item_name, quantity, value, invoice, status, remaining)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, d.SupplierID, d.Date, d.Scheduled, d.ItemName, d.Quantity,
		d.Value, d.Invoice, d.Status, d.Remaining,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to insert delivery: %w", err)
	}
	return nil
}

func (r *ledgerRepository) DeliveryByID(ctx context.Context, id int64) (*domain.Delivery, error) {
	var d domain.Delivery
	err := sqlx.GetContext(ctx, r.db, &d, `
		SELECT id, supplier_id, date, scheduled, item_name, quantity, value, invoice, status, remaining
		FROM deliveries
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "delivery", Ref: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}

	lots, err := r.lotsOf(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	d.Lots = lots
	return &d, nil
}

func (r *ledgerRepository) SaveFulfillment(ctx context.Context, d *domain.Delivery) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE deliveries
		SET item_name = $2, quantity = $3, value = $4, invoice = $5, status = $6, remaining = $7
		WHERE id = $1
	`, d.ID, d.ItemName, d.Quantity, d.Value, d.Invoice, d.Status, d.Remaining)
	if err != nil {
		return fmt.Errorf("failed to update delivery: %w", err)
	}
	return requireRow(res, "delivery", d.ID)
}

// DeleteDelivery removes the delivery and its lots. Movements referencing them
// stay in the ledger untouched.
func (r *ledgerRepository) DeleteDelivery(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lots WHERE delivery_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete lots: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM deliveries WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete delivery: %w", err)
		}
		return requireRow(res, "delivery", id)
	})
}

// ReopenDelivery resets a fulfilled delivery back to a reserved slot, dropping
// its lots and fulfillment fields but keeping the booked date.
func (r *ledgerRepository) ReopenDelivery(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lots WHERE delivery_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete lots: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE deliveries
			SET item_name = '', quantity = 0, value = 0, invoice = '', status = $2, remaining = 0
			WHERE id = $1
		`, id, domain.DeliveryReserved)
		if err != nil {
			return fmt.Errorf("failed to reopen delivery: %w", err)
		}
		return requireRow(res, "delivery", id)
	})
}

func (r *ledgerRepository) InsertLot(ctx context.Context, lot *domain.Lot) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO lots (delivery_id, code, barcode, expiry, initial, remaining)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, lot.DeliveryID, lot.Code, lot.Barcode, lot.Expiry, lot.Initial, lot.Remaining).Scan(&lot.ID)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return &domain.ValidationError{Field: "barcode", Reason: "barcode already registered"}
	}
	if err != nil {
		return fmt.Errorf("failed to insert lot: %w", err)
	}
	return nil
}

func (r *ledgerRepository) LotContext(ctx context.Context, barcode string) (*domain.LotContext, error) {
	var row struct {
		domain.Lot
		SupplierName string `db:"supplier_name"`
	}
	err := sqlx.GetContext(ctx, r.db, &row, `
		SELECT l.id, l.delivery_id, l.code, l.barcode, l.expiry, l.initial, l.remaining,
		       s.name AS supplier_name
		FROM lots l
		JOIN deliveries d ON l.delivery_id = d.id
		JOIN suppliers s ON d.supplier_id = s.id
		WHERE l.barcode = $1
	`, barcode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "lot", Ref: barcode}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve barcode: %w", err)
	}

	delivery, err := r.DeliveryByID(ctx, row.DeliveryID)
	if err != nil {
		return nil, err
	}

	return &domain.LotContext{
		Lot:          row.Lot,
		Delivery:     *delivery,
		SupplierName: row.SupplierName,
	}, nil
}

func (r *ledgerRepository) AppendMovement(ctx context.Context, m *domain.Movement) error {
	_, err := r.db.ExecContext(ctx, insertMovementQuery,
		m.ID, m.Type, m.At, m.LotID, m.LotCode, m.Barcode,
		m.ItemName, m.SupplierName, m.DeliveryID, m.Quantity, m.Reference)
	if err != nil {
		return fmt.Errorf("failed to append movement: %w", err)
	}
	return nil
}

const insertMovementQuery = `
	INSERT INTO movements (id, type, at, lot_id, lot_code, barcode, item_name, supplier_name, delivery_id, quantity, reference)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// ApplyWithdrawal commits the lot decrement, the delivery recompute and the
// ledger append in one transaction.
func (r *ledgerRepository) ApplyWithdrawal(ctx context.Context, w repository.Withdrawal) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE lots SET remaining = $2 WHERE id = $1`, w.LotID, w.NewLotRemaining)
		if err != nil {
			return fmt.Errorf("failed to update lot: %w", err)
		}
		if err := requireRow(res, "lot", w.LotID); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx,
			`UPDATE deliveries SET remaining = $2 WHERE id = $1`, w.DeliveryID, w.NewDeliveryRemaining)
		if err != nil {
			return fmt.Errorf("failed to update delivery: %w", err)
		}
		if err := requireRow(res, "delivery", w.DeliveryID); err != nil {
			return err
		}

		m := w.Movement
		_, err = tx.ExecContext(ctx, insertMovementQuery,
			m.ID, m.Type, m.At, m.LotID, m.LotCode, m.Barcode,
			m.ItemName, m.SupplierName, m.DeliveryID, m.Quantity, m.Reference)
		if err != nil {
			return fmt.Errorf("failed to append movement: %w", err)
		}
		return nil
	})
}

func (r *ledgerRepository) Movements(ctx context.Context, f domain.MovementFilter) ([]domain.Movement, error) {
	query := `
		SELECT id, type, at, lot_id, lot_code, barcode, item_name, supplier_name, delivery_id, quantity, reference
		FROM movements
		WHERE 1=1
	`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.ItemName != "" {
		query += " AND item_name ILIKE '%' || " + arg(f.ItemName) + " || '%'"
	}
	if f.Barcode != "" {
		query += " AND barcode = " + arg(f.Barcode)
	}
	if f.Type != "" {
		query += " AND type = " + arg(string(f.Type))
	}
	if f.From != nil {
		query += " AND at >= " + arg(*f.From)
	}
	if f.To != nil {
		query += " AND at <= " + arg(*f.To)
	}
	query += " ORDER BY at, id"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	var movements []domain.Movement
	if err := sqlx.SelectContext(ctx, r.db, &movements, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	return movements, nil
}

func (r *ledgerRepository) lotsOf(ctx context.Context, deliveryID int64) ([]domain.Lot, error) {
	var lots []domain.Lot
	err := sqlx.SelectContext(ctx, r.db, &lots, `
		SELECT id, delivery_id, code, barcode, expiry, initial, remaining
		FROM lots
		WHERE delivery_id = $1
		ORDER BY id
	`, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	return lots, nil
}

func requireRow(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return &domain.NotFoundError{Entity: entity, Ref: strconv.FormatInt(id, 10)}
	}
	return nil
}
