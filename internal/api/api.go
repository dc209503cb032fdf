// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmaraujo/merenda-go/internal/api/handlers"
	"github.com/dmaraujo/merenda-go/internal/api/middleware"
	"github.com/dmaraujo/merenda-go/internal/ledger"
	"github.com/dmaraujo/merenda-go/internal/storage"
)

func NewRouter(l *ledger.Ledger, scans storage.ObjectStorage, allowedOrigins []string, quotaPeriods int) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.NewLedgerHandler(l, scans, quotaPeriods)
	apiGroup := router.Group("/api/v1")

	supplierGroup := apiGroup.Group("/suppliers")
	{
		supplierGroup.POST("", h.CreateSupplier)
		supplierGroup.GET("", h.GetSuppliers)
		supplierGroup.GET("/:id", h.GetSupplier)
		supplierGroup.POST("/:id/deliveries", h.BookDelivery)
		supplierGroup.POST("/:id/deliveries/fulfill", h.FulfillDelivery)
		supplierGroup.GET("/:id/items/:item_id/quota", h.GetItemQuota)
	}

	deliveryGroup := apiGroup.Group("/deliveries")
	{
		deliveryGroup.GET("/:id", h.GetDelivery)
		deliveryGroup.POST("/:id/lots", h.RegisterLot)
		deliveryGroup.POST("/:id/invoice-scan", h.UploadInvoiceScan)
		deliveryGroup.GET("/:id/invoice-scans", h.ListInvoiceScans)
		deliveryGroup.GET("/:id/invoice-scans/:name", h.DownloadInvoiceScan)
		deliveryGroup.DELETE("/:id", h.DeleteDelivery)
		deliveryGroup.POST("/:id/reopen", h.ReopenDelivery)
	}

	movementGroup := apiGroup.Group("/movements")
	{
		movementGroup.POST("/entry", h.RecordEntry)
		movementGroup.POST("/exit", h.RecordExit)
		movementGroup.GET("", h.GetMovements)
	}

	apiGroup.GET("/balances", h.GetBalances)
	apiGroup.GET("/items/oldest-lot", h.GetOldestLot)

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
