package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/rideshare/internal/api/dto"
	"github.com/gocomet/rideshare/internal/api/middleware"
	"github.com/gocomet/rideshare/internal/domain/ride"
)

// BookSeats handles POST /v1/rides/:id/bookings
func (h *Handlers) BookSeats(c *gin.Context) {
	rideID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.BookSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	contract, err := h.Bookings.Book(c.Request.Context(), rideID, middleware.UserID(c), req.ToDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

// ListRideContracts handles GET /v1/rides/:id/contracts
func (h *Handlers) ListRideContracts(c *gin.Context) {
	rideID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return
	}
	page := q.Page()

	contracts, err := h.Bookings.ListContractsByRide(c.Request.Context(), rideID, page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondContracts(c, contracts, page)
}

// GetContract handles GET /v1/contracts/:id
func (h *Handlers) GetContract(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	contract, err := h.Bookings.GetContract(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// ListMyContracts handles GET /v1/contracts
func (h *Handlers) ListMyContracts(c *gin.Context) {
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return
	}
	page := q.Page()

	contracts, err := h.Bookings.ListContractsByPassenger(c.Request.Context(), middleware.UserID(c), page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondContracts(c, contracts, page)
}

func respondContracts(c *gin.Context, contracts []*ride.Contract, page ride.Page) {
	if contracts == nil {
		contracts = []*ride.Contract{}
	}
	c.JSON(http.StatusOK, dto.ListResponse{Items: contracts, Limit: page.Limit, Offset: page.Offset})
}
