package venues

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Handler provides HTTP endpoints for venue configuration.
type Handler struct {
	service *Service
}

// NewHandler creates a new venue handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up venue routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/venues", h.CreateVenue)
	r.GET("/venues", h.ListVenues)
	r.GET("/venues/:venueId", h.GetVenue)
	r.PUT("/venues/:venueId", h.UpdateVenue)
}

// CreateVenueRequest is the request body for registering a venue.
type CreateVenueRequest struct {
	Name          string          `json:"name" binding:"required"`
	FeePercentage decimal.Decimal `json:"feePercentage"`
	MachineIDs    []string        `json:"machineIds"`
}

// UpdateVenueRequest is the request body for venue configuration changes.
// Pointer fields distinguish "not provided" from zero values.
type UpdateVenueRequest struct {
	FeePercentage *decimal.Decimal `json:"feePercentage"`
	MachineIDs    *[]string        `json:"machineIds"`
}

// CreateVenue handles POST /v1/venues
func (h *Handler) CreateVenue(c *gin.Context) {
	var req CreateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Name is required",
		})
		return
	}

	venue, err := h.service.Create(c.Request.Context(), req.Name, req.FeePercentage, req.MachineIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"venue": venue})
}

// ListVenues handles GET /v1/venues
func (h *Handler) ListVenues(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	list, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"venues": list,
		"count":  len(list),
	})
}

// GetVenue handles GET /v1/venues/:venueId
func (h *Handler) GetVenue(c *gin.Context) {
	venue, err := h.service.Get(c.Request.Context(), c.Param("venueId"))
	if err != nil {
		if err == ErrVenueNotFound {
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

	c.JSON(http.StatusOK, gin.H{"venue": venue})
}

// UpdateVenue handles PUT /v1/venues/:venueId
func (h *Handler) UpdateVenue(c *gin.Context) {
	var req UpdateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if req.FeePercentage == nil && req.MachineIDs == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Provide feePercentage and/or machineIds",
		})
		return
	}

	ctx := c.Request.Context()
	venueID := c.Param("venueId")

	var venue *Venue
	var err error

	if req.FeePercentage != nil {
		venue, err = h.service.SetFeePercentage(ctx, venueID, *req.FeePercentage)
		if err != nil {
			respondVenueError(c, err)
			return
		}
	}

	if req.MachineIDs != nil {
		venue, err = h.service.SetMachines(ctx, venueID, *req.MachineIDs)
		if err != nil {
			respondVenueError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"venue": venue})
}

func respondVenueError(c *gin.Context, err error) {
	if err == ErrVenueNotFound {
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
}
