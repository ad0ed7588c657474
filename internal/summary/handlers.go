package summary

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gambino-gaming/reconciliation/internal/validation"
	"github.com/gambino-gaming/reconciliation/internal/venues"
)

// Handler provides the daily financial summary endpoint.
type Handler struct {
	aggregator *Aggregator
}

// NewHandler creates a new summary handler.
func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{aggregator: aggregator}
}

// RegisterRoutes sets up summary routes. The :id parameter is a venue ID.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/reconciliation/:id/summary", h.GetSummary)
}

// GetSummary handles GET /v1/reconciliation/:id/summary?date=YYYY-MM-DD
func (h *Handler) GetSummary(c *gin.Context) {
	date, err := validation.ParseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_date",
			"message": "date must be YYYY-MM-DD",
		})
		return
	}

	s, err := h.aggregator.Aggregate(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		if errors.Is(err, venues.ErrVenueNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "No venue with this ID",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": s})
}
