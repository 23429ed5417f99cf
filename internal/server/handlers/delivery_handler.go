package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/delivery-ledger/internal/domain/models"
	"github.com/mamadbah2/delivery-ledger/internal/idgen"
	"github.com/mamadbah2/delivery-ledger/internal/query"
	"github.com/mamadbah2/delivery-ledger/internal/repository"
	service "github.com/mamadbah2/delivery-ledger/internal/service/delivery"
)

// DeliveryHandler exposes the delivery ledger over HTTP.
type DeliveryHandler struct {
	svc    service.Ledger
	logger *zap.Logger
}

// NewDeliveryHandler constructs the HTTP handler adapter.
func NewDeliveryHandler(svc service.Ledger, logger *zap.Logger) *DeliveryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliveryHandler{svc: svc, logger: logger}
}

// Create registers a new delivery record.
func (h *DeliveryHandler) Create(c *gin.Context) {
	var req models.CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	created, err := h.svc.CreateDelivery(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": created.ID})
}

// List returns records matching the query string filters.
func (h *DeliveryHandler) List(c *gin.Context) {
	criteria := query.Criteria{
		Branch:   c.Query("branch"),
		Status:   c.Query("status"),
		DateFrom: c.Query("dateFrom"),
		DateTo:   c.Query("dateTo"),
		Search:   c.Query("search"),
	}

	records, err := h.svc.ListDeliveries(c.Request.Context(), criteria)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if records == nil {
		records = []models.Delivery{}
	}
	c.JSON(http.StatusOK, records)
}

// Get returns one record with its line items.
func (h *DeliveryHandler) Get(c *gin.Context) {
	d, err := h.svc.GetDelivery(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Receive marks a record as received.
func (h *DeliveryHandler) Receive(c *gin.Context) {
	var req models.ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid receive payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updated, err := h.svc.ReceiveDelivery(c.Request.Context(), c.Param("id"), req.ReceivedBy)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete removes a record and its line items.
func (h *DeliveryHandler) Delete(c *gin.Context) {
	if err := h.svc.RemoveDelivery(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// ExportCSV streams the whole ledger as a CSV attachment.
func (h *DeliveryHandler) ExportCSV(c *gin.Context) {
	data, err := h.svc.ExportCSV(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename=deliveries.csv`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// Branches serves the fixed site list for the UI dropdowns.
func (h *DeliveryHandler) Branches(c *gin.Context) {
	c.JSON(http.StatusOK, models.Branches())
}

// respondError maps domain errors onto HTTP statuses. Storage failures are
// logged in full but answered with a generic message.
func (h *DeliveryHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "delivery not found"})
	case errors.Is(err, repository.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "delivery already received"})
	case errors.Is(err, idgen.ErrIDSpaceExhausted):
		h.logger.Error("daily id sequence exhausted", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "daily slip number limit reached"})
	default:
		h.logger.Error("storage failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
