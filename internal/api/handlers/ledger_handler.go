// merenda-go/internal/api/handlers/ledger_handler.go
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dmaraujo/merenda-go/internal/domain"
	"github.com/dmaraujo/merenda-go/internal/ledger"
	"github.com/dmaraujo/merenda-go/internal/storage"
)

type LedgerHandler struct {
	ledger       *ledger.Ledger
	scans        storage.ObjectStorage
	quotaPeriods int
}

func NewLedgerHandler(l *ledger.Ledger, scans storage.ObjectStorage, quotaPeriods int) *LedgerHandler {
	return &LedgerHandler{ledger: l, scans: scans, quotaPeriods: quotaPeriods}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var (
		verr *domain.ValidationError
		nerr *domain.NotFoundError
		oerr *domain.OverAllocationError
		serr *domain.InsufficientStockError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.As(err, &nerr):
		c.JSON(http.StatusNotFound, gin.H{"error": nerr.Error()})
	case errors.As(err, &oerr):
		c.JSON(http.StatusConflict, gin.H{
			"error":       oerr.Error(),
			"delivered":   oerr.Delivered,
			"allocated":   oerr.Allocated,
			"requested":   oerr.Requested,
			"delivery_id": oerr.DeliveryID,
		})
	case errors.As(err, &serr):
		c.JSON(http.StatusConflict, gin.H{
			"error":     serr.Error(),
			"barcode":   serr.Barcode,
			"remaining": serr.Remaining,
			"requested": serr.Requested,
		})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

type createSupplierRequest struct {
	Name     string                     `json:"name"`
	Contract string                     `json:"contract"`
	Items    []ledger.ContractItemInput `json:"items"`
}

func (h *LedgerHandler) CreateSupplier(c *gin.Context) {
	var req createSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s, err := h.ledger.RegisterSupplier(c.Request.Context(), req.Name, req.Contract, req.Items)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *LedgerHandler) GetSuppliers(c *gin.Context) {
	suppliers, err := h.ledger.Suppliers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

func (h *LedgerHandler) GetSupplier(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s, err := h.ledger.Supplier(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type bookDeliveryRequest struct {
	Date      string `json:"date"`
	Scheduled string `json:"scheduled"`
}

func (h *LedgerHandler) BookDelivery(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req bookDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD or RFC3339"})
		return
	}

	d, err := h.ledger.BookDelivery(c.Request.Context(), id, date, req.Scheduled)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

type fulfillDeliveryRequest struct {
	SlotIDs []int64                  `json:"slot_ids"`
	Invoice string                   `json:"invoice"`
	Items   []ledger.FulfillmentItem `json:"items"`
}

func (h *LedgerHandler) FulfillDelivery(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req fulfillDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	fulfilled, err := h.ledger.FulfillDelivery(c.Request.Context(), id, req.SlotIDs, req.Invoice, req.Items)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fulfilled)
}

func (h *LedgerHandler) GetDelivery(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.ledger.Delivery(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *LedgerHandler) RegisterLot(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ledger.LotInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	lot, err := h.ledger.RegisterLot(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// UploadInvoiceScan archives the scanned invoice document for a delivery in
// object storage under invoices/<delivery id>/<filename>.
func (h *LedgerHandler) UploadInvoiceScan(c *gin.Context) {
	if h.scans == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage is not configured"})
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.ledger.Delivery(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer src.Close()

	key := scanPrefix(id) + file.Filename
	contentType := file.Header.Get("Content-Type")
	if err := h.scans.PutObject(c.Request.Context(), key, contentType, file.Size, src); err != nil {
		log.Error().Err(err).Str("key", key).Msg("invoice scan upload failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to archive invoice scan"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"key": key, "size": file.Size})
}

// ListInvoiceScans lists the archived scan documents of a delivery.
func (h *LedgerHandler) ListInvoiceScans(c *gin.Context) {
	if h.scans == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage is not configured"})
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.ledger.Delivery(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	objects, err := h.scans.ListObjects(c.Request.Context(), scanPrefix(id))
	if err != nil {
		log.Error().Err(err).Int64("delivery_id", id).Msg("invoice scan listing failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to list invoice scans"})
		return
	}
	c.JSON(http.StatusOK, objects)
}

// DownloadInvoiceScan streams one archived scan document back to the caller.
func (h *LedgerHandler) DownloadInvoiceScan(c *gin.Context) {
	if h.scans == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage is not configured"})
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	name := c.Param("name")
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scan name"})
		return
	}

	body, err := h.scans.GetObject(c.Request.Context(), scanPrefix(id)+name)
	if err != nil {
		log.Error().Err(err).Int64("delivery_id", id).Str("name", name).Msg("invoice scan download failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch invoice scan"})
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		log.Error().Err(err).Str("name", name).Msg("invoice scan stream interrupted")
	}
}

func scanPrefix(deliveryID int64) string {
	return "invoices/" + strconv.FormatInt(deliveryID, 10) + "/"
}

func (h *LedgerHandler) DeleteDelivery(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.ledger.DeleteDelivery(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LedgerHandler) ReopenDelivery(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.ledger.ReopenDelivery(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	d, err := h.ledger.Delivery(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

type recordEntryRequest struct {
	Barcode   string `json:"barcode"`
	Reference string `json:"reference"`
}

func (h *LedgerHandler) RecordEntry(c *gin.Context) {
	var req recordEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	m, err := h.ledger.RecordEntry(c.Request.Context(), req.Barcode, req.Reference)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// RecordExit performs a withdrawal. When the scanned lot is not the oldest one
// for the item and no override was sent, it answers 409 with the advisory so
// the station can ask the operator to confirm.
func (h *LedgerHandler) RecordExit(c *gin.Context) {
	var req ledger.ExitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	m, advisory, err := h.ledger.RecordExit(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	if advisory != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":    "lot is not the oldest for this item, resubmit with override_fifo",
			"advisory": advisory,
		})
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *LedgerHandler) GetMovements(c *gin.Context) {
	filter := domain.MovementFilter{
		ItemName: strings.TrimSpace(c.Query("item")),
		Barcode:  strings.TrimSpace(c.Query("barcode")),
		Type:     domain.MovementType(strings.TrimSpace(c.Query("type"))),
	}
	if v := c.Query("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		filter.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return
		}
		filter.To = &t
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		filter.Limit = v
	}

	movements, err := h.ledger.Movements(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, movements)
}

func (h *LedgerHandler) GetBalances(c *gin.Context) {
	balances, err := h.ledger.Balances(c.Request.Context(), strings.TrimSpace(c.Query("item")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, balances)
}

func (h *LedgerHandler) GetOldestLot(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name query parameter is required"})
		return
	}

	ref, err := h.ledger.OldestLot(c.Request.Context(), name)
	if err != nil {
		writeError(c, err)
		return
	}
	if ref == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no stock remaining for " + name})
		return
	}
	c.JSON(http.StatusOK, ref)
}

func (h *LedgerHandler) GetItemQuota(c *gin.Context) {
	supplierID, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}

	start, err := parseDate(c.DefaultQuery("start", ""))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
		return
	}
	periods := h.quotaPeriods
	if v, err := strconv.Atoi(c.Query("periods")); err == nil && v > 0 {
		periods = v
	}

	targets, err := h.ledger.ItemQuota(c.Request.Context(), supplierID, itemID, start, periods)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, targets)
}

// parseDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates. An empty
// value resolves to the first day of the current quarter.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		now := time.Now().UTC()
		quarterStart := time.Month(((int(now.Month())-1)/3)*3 + 1)
		return time.Date(now.Year(), quarterStart, 1, 0, 0, 0, 0, time.UTC), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
