package vouchers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/gambino-gaming/reconciliation/internal/validation"
)

// Handler provides HTTP endpoints for voucher redemption events.
type Handler struct {
	service *Service
}

// NewHandler creates a new voucher handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the voucher listing route. The ingestion endpoint is
// registered separately so it can sit behind the ingest auth middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/vouchers/:venueId", h.ListVouchers)
}

// RecordVoucherRequest is the raw voucher redemption body.
type RecordVoucherRequest struct {
	VoucherID string          `json:"voucherId"`
	VenueID   string          `json:"venueId" binding:"required"`
	MachineID string          `json:"machineId" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	IssuedAt  time.Time       `json:"issuedAt" binding:"required"`
}

// RecordVoucher handles POST /v1/ingest/vouchers
func (h *Handler) RecordVoucher(c *gin.Context) {
	var req RecordVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "malformed_voucher",
			"message": err.Error(),
		})
		return
	}

	event, err := h.service.Record(c.Request.Context(), RecordInput{
		VoucherID: req.VoucherID,
		VenueID:   req.VenueID,
		MachineID: req.MachineID,
		Amount:    req.Amount,
		IssuedAt:  req.IssuedAt,
	})
	if err != nil {
		respondVoucherError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"voucher": event})
}

// ListVouchers handles GET /v1/vouchers/:venueId?date=YYYY-MM-DD
func (h *Handler) ListVouchers(c *gin.Context) {
	date, err := validation.ParseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_date",
			"message": "date must be YYYY-MM-DD",
		})
		return
	}

	venueID := c.Param("venueId")
	list, err := h.service.ListByVenueDate(c.Request.Context(), venueID, date)
	if err != nil {
		respondVoucherError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"venueId":  venueID,
		"date":     date,
		"vouchers": list,
		"count":    len(list),
	})
}

func respondVoucherError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrMalformedEvent):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_voucher",
			"message": err.Error(),
		})
	case errors.Is(err, ErrVoucherNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No voucher event with this ID",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
	}
}
