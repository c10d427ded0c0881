package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/rideshare/internal/api/dto"
	"github.com/gocomet/rideshare/internal/api/middleware"
	"github.com/gocomet/rideshare/internal/domain/ride"
	apperrors "github.com/gocomet/rideshare/pkg/errors"
	"github.com/google/uuid"
)

// CreateRide handles POST /v1/rides
func (h *Handlers) CreateRide(c *gin.Context) {
	var req dto.CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	r, err := h.Rides.Create(c.Request.Context(), middleware.UserID(c), req.ToDraft())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// GetRide handles GET /v1/rides/:id
func (h *Handlers) GetRide(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.Rides.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ListRides handles GET /v1/rides?driver_id=|owner_id=|date=
func (h *Handlers) ListRides(c *gin.Context) {
	var q dto.ListRidesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return
	}
	page := q.Page()
	ctx := c.Request.Context()

	var (
		rides []*ride.Ride
		err   error
	)
	switch {
	case q.DriverID != "":
		rides, err = h.Rides.ListByDriver(ctx, uuid.MustParse(q.DriverID), page)
	case q.OwnerID != "":
		rides, err = h.Rides.ListByOwner(ctx, uuid.MustParse(q.OwnerID), page)
	case q.Date != "":
		day, parseErr := time.Parse("2006-01-02", q.Date)
		if parseErr != nil {
			h.bindError(c, parseErr)
			return
		}
		rides, err = h.Rides.ListByDate(ctx, day, page)
	default:
		h.respondError(c, apperrors.BadRequest("One of driver_id, owner_id or date is required", nil))
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	if rides == nil {
		rides = []*ride.Ride{}
	}
	c.JSON(http.StatusOK, dto.ListResponse{Items: rides, Limit: page.Limit, Offset: page.Offset})
}

// StartRide handles POST /v1/rides/:id/start
func (h *Handlers) StartRide(c *gin.Context) {
	h.transition(c, h.Rides.Start)
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *Handlers) CancelRide(c *gin.Context) {
	h.transition(c, h.Rides.Cancel)
}

// FinishRide handles POST /v1/rides/:id/finish
func (h *Handlers) FinishRide(c *gin.Context) {
	h.transition(c, h.Rides.Finish)
}

func (h *Handlers) transition(c *gin.Context, apply func(ctx context.Context, rideID, actorID uuid.UUID) (ride.Ride, error)) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	r, err := apply(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// AddRule handles POST /v1/rides/:id/rules
func (h *Handlers) AddRule(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AddRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	r, err := h.Rides.AddRule(c.Request.Context(), id, middleware.UserID(c), ride.Rule(req.Rule))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// RemoveRule handles DELETE /v1/rides/:id/rules/:rule
func (h *Handlers) RemoveRule(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.Rides.RemoveRule(c.Request.Context(), id, middleware.UserID(c), ride.Rule(c.Param("rule")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
