package rides

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/ride-board/pkg/common"
	"github.com/richxcame/ride-board/pkg/logger"
	"github.com/richxcame/ride-board/pkg/pagination"
	"github.com/richxcame/ride-board/pkg/validation"
)

// Handler handles HTTP requests for the ride board
type Handler struct {
	service *Service
}

// NewHandler creates a new rides handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers ride board endpoints
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	rides := router.Group("/rides")
	{
		rides.POST("", h.CreateRide)
		rides.GET("", h.ListRides)
		rides.GET("/:id", h.GetRide)
		rides.POST("/:id/bookings", h.BookSeats)
	}
}

// CreateRide handles POST /rides
func (h *Handler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WithContext(c.Request.Context()).Warn("Invalid create ride request", zap.Error(err))
		common.ErrorResponse(c, 400, validation.FormatValidationError(err))
		return
	}

	ride, appErr := h.service.CreateRide(c.Request.Context(), &req)
	if appErr != nil {
		common.AppErrorResponse(c, appErr)
		return
	}

	common.CreatedResponse(c, ride)
}

// ListRides handles GET /rides with optional ?q= search
func (h *Handler) ListRides(c *gin.Context) {
	params := pagination.ParseParams(c)
	query := c.Query("q")

	rides, appErr := h.service.SearchRides(c.Request.Context(), query, params.Offset+params.Limit)
	if appErr != nil {
		common.AppErrorResponse(c, appErr)
		return
	}

	total := int64(len(rides))
	if query == "" {
		count, countErr := h.service.CountRides(c.Request.Context())
		if countErr != nil {
			common.AppErrorResponse(c, countErr)
			return
		}
		total = count
	}

	if params.Offset >= len(rides) {
		rides = []*Ride{}
	} else {
		rides = rides[params.Offset:]
		if len(rides) > params.Limit {
			rides = rides[:params.Limit]
		}
	}

	meta := pagination.BuildMeta(params.Limit, params.Offset, total)
	common.SuccessResponseWithMeta(c, rides, meta)
}

// GetRide handles GET /rides/:id
func (h *Handler) GetRide(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, 400, "Invalid ride ID")
		return
	}

	ride, appErr := h.service.GetRide(c.Request.Context(), id)
	if appErr != nil {
		common.AppErrorResponse(c, appErr)
		return
	}

	common.SuccessResponse(c, ride)
}

// BookSeats handles POST /rides/:id/bookings. The Idempotency-Key header
// is required so clients can retry safely.
func (h *Handler) BookSeats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, 400, "Invalid ride ID")
		return
	}

	var req BookSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WithContext(c.Request.Context()).Warn("Invalid booking request", zap.Error(err))
		common.ErrorResponse(c, 400, validation.FormatValidationError(err))
		return
	}

	idempotencyKey := c.GetHeader("Idempotency-Key")

	booking, created, appErr := h.service.BookSeats(c.Request.Context(), id, &req, idempotencyKey)
	if appErr != nil {
		common.AppErrorResponse(c, appErr)
		return
	}

	// Replaying an idempotency key returns the original booking, not a
	// new resource
	if !created {
		common.SuccessResponse(c, booking)
		return
	}

	common.CreatedResponse(c, booking)
}
