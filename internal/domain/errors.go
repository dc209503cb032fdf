package domain

import (
	"fmt"
	"time"
)

// ValidationError reports malformed or missing required fields.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown barcode, item or supplier reference.
type NotFoundError struct {
	Entity string
	Ref    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Ref)
}

// OverAllocationError reports a lot registration whose quantity would push the
// sum of the delivery's lots past the delivered quantity.
type OverAllocationError struct {
	DeliveryID int64
	Delivered  float64
	Allocated  float64
	Requested  float64
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("delivery %d: lots total %.3f + %.3f exceeds delivered quantity %.3f",
		e.DeliveryID, e.Allocated, e.Requested, e.Delivered)
}

// InsufficientStockError reports a withdrawal larger than the lot's remaining
// quantity.
type InsufficientStockError struct {
	Barcode   string
	Remaining float64
	Requested float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("lot %s: requested %.3f but only %.3f remaining",
		e.Barcode, e.Requested, e.Remaining)
}

// FifoAdvisory is not a failure. It tells the caller that the requested lot is
// not the globally oldest one for the item, and which lot is; the caller must
// acknowledge the override explicitly before the withdrawal proceeds.
type FifoAdvisory struct {
	RequestedBarcode string    `json:"requested_barcode"`
	OldestBarcode    string    `json:"oldest_barcode"`
	OldestLotCode    string    `json:"oldest_lot_code"`
	OldestDeliveryID int64     `json:"oldest_delivery_id"`
	OldestSupplier   string    `json:"oldest_supplier"`
	OldestDate       time.Time `json:"oldest_date"`
	ItemName         string    `json:"item_name"`
}
