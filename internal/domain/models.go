package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuantityTolerance is the comparison slack for physical quantities. Scale
// readings and invoice quantities arrive with at most three decimal places.
const QuantityTolerance = 0.001

// Supplier holds a supply contract and owns its contract items and deliveries.
type Supplier struct {
	ID         int64          `json:"id" db:"id"`
	Name       string         `json:"name" db:"name"`
	Contract   string         `json:"contract" db:"contract"`
	Items      []ContractItem `json:"items,omitempty" db:"-"`
	Deliveries []Delivery     `json:"deliveries,omitempty" db:"-"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// ContractItem is one line of a supplier's contract: a product, the total
// quantity contracted for the cycle, and its unit price.
type ContractItem struct {
	ID         int64           `json:"id" db:"id"`
	SupplierID int64           `json:"supplier_id" db:"supplier_id"`
	Name       string          `json:"name" db:"name"`
	Quantity   float64         `json:"quantity" db:"quantity"`
	Unit       Unit            `json:"unit" db:"-"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	Position   int             `json:"position" db:"position"`
}

// ContractedWeight returns the contracted quantity normalized to weight via
// the unit conversion factor. Dozen-based items contribute zero.
func (ci ContractItem) ContractedWeight() float64 {
	return ci.Unit.WeightOf(ci.Quantity)
}

// DeliveryStatus tracks the delivery slot lifecycle.
type DeliveryStatus string

const (
	// DeliveryReserved is a booked date with no invoice or item attached yet.
	DeliveryReserved DeliveryStatus = "reserved"
	// DeliveryFulfilled has an invoice, item and quantity attached.
	DeliveryFulfilled DeliveryStatus = "fulfilled"
)

// Delivery is one fulfillment event against a contract item. It is created as
// a reserved slot when the supplier books a date and becomes fulfilled once an
// invoice number and item/quantity are attached.
type Delivery struct {
	ID         int64           `json:"id" db:"id"`
	SupplierID int64           `json:"supplier_id" db:"supplier_id"`
	Date       time.Time       `json:"date" db:"date"`
	Scheduled  string          `json:"scheduled" db:"scheduled"`
	ItemName   string          `json:"item_name" db:"item_name"`
	Quantity   float64         `json:"quantity" db:"quantity"`
	Value      decimal.Decimal `json:"value" db:"value"`
	Invoice    string          `json:"invoice" db:"invoice"`
	Status     DeliveryStatus  `json:"status" db:"status"`
	Remaining  float64         `json:"remaining" db:"remaining"`
	Lots       []Lot           `json:"lots,omitempty" db:"-"`
}

// LotsInitialTotal sums the initial quantities of all registered lots.
func (d Delivery) LotsInitialTotal() float64 {
	var total float64
	for _, lot := range d.Lots {
		total += lot.Initial
	}
	return total
}

// LotsRemainingTotal sums the remaining quantities of all registered lots.
func (d Delivery) LotsRemainingTotal() float64 {
	var total float64
	for _, lot := range d.Lots {
		total += lot.Remaining
	}
	return total
}

// Lot is a traceable sub-quantity of a delivery, identified by a scannable
// barcode. Its remaining quantity only ever decreases, through exit movements.
type Lot struct {
	ID         int64      `json:"id" db:"id"`
	DeliveryID int64      `json:"delivery_id" db:"delivery_id"`
	Code       string     `json:"code" db:"code"`
	Barcode    string     `json:"barcode" db:"barcode"`
	Expiry     *time.Time `json:"expiry,omitempty" db:"expiry"`
	Initial    float64    `json:"initial" db:"initial"`
	Remaining  float64    `json:"remaining" db:"remaining"`
}

// Exhausted reports whether the lot has no usable stock left.
func (l Lot) Exhausted() bool {
	return l.Remaining <= QuantityTolerance
}

// MovementType distinguishes stock entries from withdrawals.
type MovementType string

const (
	MovementEntry MovementType = "entry"
	MovementExit  MovementType = "exit"
)

// Movement is an immutable, append-only ledger entry. It references lot and
// delivery ids by value so the record stays meaningful even after an
// administrative delete removes the delivery it points at.
type Movement struct {
	ID           uuid.UUID    `json:"id" db:"id"`
	Type         MovementType `json:"type" db:"type"`
	At           time.Time    `json:"at" db:"at"`
	LotID        int64        `json:"lot_id" db:"lot_id"`
	LotCode      string       `json:"lot_code" db:"lot_code"`
	Barcode      string       `json:"barcode" db:"barcode"`
	ItemName     string       `json:"item_name" db:"item_name"`
	SupplierName string       `json:"supplier_name" db:"supplier_name"`
	DeliveryID   int64        `json:"delivery_id" db:"delivery_id"`
	Quantity     float64      `json:"quantity" db:"quantity"`
	Reference    string       `json:"reference" db:"reference"`
}

// MovementFilter narrows audit listings.
type MovementFilter struct {
	ItemName string       `json:"item_name"`
	Barcode  string       `json:"barcode"`
	Type     MovementType `json:"type"`
	From     *time.Time   `json:"from"`
	To       *time.Time   `json:"to"`
	Limit    int          `json:"limit"`
}

// Balance is the derived per-item projection: contracted across all suppliers
// holding the item, received into lots, and the implied remaining balance.
// It is recomputed on read and never persisted.
type Balance struct {
	Key        string  `json:"key"`
	Item       string  `json:"item"`
	Contracted float64 `json:"contracted"`
	Received   float64 `json:"received"`
	Remaining  float64 `json:"remaining"`
}

// LotRef points at a concrete lot together with its owning delivery, as
// returned by the FIFO resolver.
type LotRef struct {
	SupplierID   int64     `json:"supplier_id"`
	SupplierName string    `json:"supplier_name"`
	DeliveryID   int64     `json:"delivery_id"`
	DeliveryDate time.Time `json:"delivery_date"`
	ItemName     string    `json:"item_name"`
	Lot          Lot       `json:"lot"`
}

// LotContext is a lot resolved by barcode together with everything a movement
// record needs: the owning delivery (with sibling lots) and the supplier name.
type LotContext struct {
	Lot          Lot
	Delivery     Delivery
	SupplierName string
}
