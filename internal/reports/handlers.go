package reports

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/gambino-gaming/reconciliation/internal/validation"
)

// Handler provides HTTP endpoints for report ingestion and reconciliation.
type Handler struct {
	service    *Service
	classifier *Classifier
}

// NewHandler creates a new report handler.
func NewHandler(service *Service, classifier *Classifier) *Handler {
	return &Handler{service: service, classifier: classifier}
}

// RegisterRoutes sets up the reconciliation routes. The :id parameter is a
// venue ID for daily listing and a report ID for status and history
// operations. The ingestion endpoint is registered separately so it can sit
// behind the ingest auth middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/reconciliation/:id/daily", h.ListDaily)
	r.POST("/reconciliation/:id/status", h.SetStatus)
	r.POST("/reconciliation/bulk-status", h.BulkSetStatus)
	r.GET("/reconciliation/:id/history", h.History)
}

// IngestReportRequest is the raw hardware submission body.
type IngestReportRequest struct {
	ReportID     string          `json:"reportId"`
	VenueID      string          `json:"venueId" binding:"required"`
	PrintedAt    time.Time       `json:"printedAt" binding:"required"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	MachineLines []MachineLine   `json:"machineLines" binding:"required"`
}

// SetStatusRequest is an operator's admissibility decision for one report.
type SetStatusRequest struct {
	Status Status `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// BulkStatusRequest applies one admissibility decision to many reports.
type BulkStatusRequest struct {
	ReportIDs []string `json:"reportIds" binding:"required"`
	Status    Status   `json:"status" binding:"required"`
	Note      string   `json:"note"`
}

// IngestReport handles POST /v1/ingest/reports
func (h *Handler) IngestReport(c *gin.Context) {
	var req IngestReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "malformed_report",
			"message": err.Error(),
		})
		return
	}

	report, err := h.service.Ingest(c.Request.Context(), IngestInput{
		ReportID:     req.ReportID,
		VenueID:      req.VenueID,
		PrintedAt:    req.PrintedAt,
		ClaimedTotal: req.TotalRevenue,
		Lines:        req.MachineLines,
	})
	if err != nil {
		respondReportError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// ListDaily handles GET /v1/reconciliation/:id/daily?date=YYYY-MM-DD
// where :id is a venue ID.
func (h *Handler) ListDaily(c *gin.Context) {
	date, err := validation.ParseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_date",
			"message": "date must be YYYY-MM-DD",
		})
		return
	}

	venueID := c.Param("id")
	list, err := h.service.ListByVenueDate(c.Request.Context(), venueID, date)
	if err != nil {
		respondReportError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"venueId": venueID,
		"date":    date,
		"reports": list,
		"count":   len(list),
	})
}

// SetStatus handles POST /v1/reconciliation/:id/status
// where :id is a report ID.
func (h *Handler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_status",
			"message": "status must be one of pending, included, excluded, duplicate",
		})
		return
	}

	report, err := h.classifier.SetStatus(c.Request.Context(), c.Param("id"), req.Status, validation.SanitizeString(req.Note, validation.MaxNoteLength))
	if err != nil {
		respondReportError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// BulkSetStatus handles POST /v1/reconciliation/bulk-status
func (h *Handler) BulkSetStatus(c *gin.Context) {
	var req BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "reportIds and a valid status are required",
		})
		return
	}
	if len(req.ReportIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "reportIds must not be empty",
		})
		return
	}

	result := h.classifier.BulkSetStatus(c.Request.Context(), req.ReportIDs, req.Status, validation.SanitizeString(req.Note, validation.MaxNoteLength))

	status := http.StatusOK
	if len(result.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{"result": result})
}

// History handles GET /v1/reconciliation/:id/history
// where :id is a report ID.
func (h *Handler) History(c *gin.Context) {
	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.classifier.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondReportError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reportId": c.Param("id"),
		"history":  entries,
		"count":    len(entries),
	})
}

func respondReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrReportNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No report with this ID",
		})
	case errors.Is(err, ErrReportExists):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "duplicate_report",
			"message": "A report with this ID was already ingested",
		})
	case errors.Is(err, ErrMalformedReport):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "malformed_report",
			"message": err.Error(),
		})
	case errors.Is(err, ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_status",
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
	}
}
