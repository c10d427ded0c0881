package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/rideshare/internal/api/dto"
	"github.com/gocomet/rideshare/internal/api/middleware"
	requests "github.com/gocomet/rideshare/internal/service/riderequest"
	"github.com/google/uuid"
)

// ProposeRide handles POST /v1/ride-requests
func (h *Handlers) ProposeRide(c *gin.Context) {
	var req dto.ProposeRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	proposal, err := h.Requests.Propose(c.Request.Context(), requests.ProposeInput{
		OwnerID:      middleware.UserID(c),
		DriverID:     uuid.MustParse(req.DriverID),
		LicensePlate: req.LicensePlate,
		Ride:         req.Ride.ToDraft(),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, proposal)
}

// ListPendingRequests handles GET /v1/ride-requests/pending
func (h *Handlers) ListPendingRequests(c *gin.Context) {
	pending, err := h.Requests.ListPending(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": pending})
}

// AcceptRequest handles POST /v1/ride-requests/:id/accept
func (h *Handlers) AcceptRequest(c *gin.Context) {
	requestID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	r, err := h.Requests.Accept(c.Request.Context(), middleware.UserID(c), requestID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}
