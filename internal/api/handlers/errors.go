package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/rideshare/internal/api/dto"
	"github.com/gocomet/rideshare/internal/domain/fleet"
	"github.com/gocomet/rideshare/internal/domain/ride"
	"github.com/gocomet/rideshare/internal/domain/riderequest"
	apperrors "github.com/gocomet/rideshare/pkg/errors"
	"github.com/gocomet/rideshare/pkg/logger"
	"github.com/google/uuid"
)

var validationErrors = []error{
	ride.ErrInvalidSeatLayout,
	ride.ErrInvalidSeatOperation,
	ride.ErrInvalidLocation,
	ride.ErrInvalidRoute,
	ride.ErrInvalidSchedule,
	ride.ErrInvalidPrice,
	ride.ErrInvalidRule,
	ride.ErrInvalidBooking,
	ride.ErrInvalidOrigin,
	riderequest.ErrInvalidRideRequest,
}

var mappedErrors = []struct {
	err    error
	appErr *apperrors.AppError
}{
	{ride.ErrRideNotFound, apperrors.ErrRideNotFound},
	{ride.ErrContractNotFound, apperrors.ErrContractNotFound},
	{riderequest.ErrRideRequestNotFound, apperrors.ErrRideRequestNotFound},
	{fleet.ErrCarNotFound, apperrors.ErrCarNotFound},
	{fleet.ErrDriverNotFound, apperrors.ErrDriverNotFound},
	{ride.ErrInvalidRideTransition, apperrors.ErrInvalidRideTransition},
	{ride.ErrSeatUnavailable, apperrors.ErrSeatUnavailable},
	{ride.ErrRideNotBookable, apperrors.ErrRideNotBookable},
	{ride.ErrConflict, apperrors.ErrConcurrentUpdate},
	{fleet.ErrCarUnavailable, apperrors.ErrCarUnavailable},
	{fleet.ErrDriverUnavailable, apperrors.ErrDriverUnavailable},
	{fleet.ErrNotCarOwner, apperrors.ErrNotCarOwner},
	{ride.ErrForbidden, apperrors.ErrNotRideOwner},
}

// toAppError maps domain errors to their HTTP representation
func toAppError(err error) *apperrors.AppError {
	if apperrors.IsAppError(err) {
		return apperrors.GetAppError(err)
	}
	for _, m := range mappedErrors {
		if errors.Is(err, m.err) {
			return apperrors.WithCause(m.appErr, err)
		}
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return apperrors.BadRequest(err.Error(), err)
		}
	}
	return apperrors.GetAppError(err)
}

// respondError writes err as an ErrorResponse and aborts the chain
func (h *Handlers) respondError(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		h.Logger.Error("Request failed",
			logger.Err(err),
			logger.String("path", c.FullPath()),
		)
	}
	c.AbortWithStatusJSON(appErr.Status, dto.ErrorResponse{Code: appErr.Code, Message: appErr.Message})
}

// bindError reports a malformed request body or query
func (h *Handlers) bindError(c *gin.Context, err error) {
	h.respondError(c, apperrors.BadRequest("Invalid request payload: "+err.Error(), err))
}

// pathID parses a UUID path parameter, writing a 400 if it is malformed
func (h *Handlers) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.respondError(c, apperrors.BadRequest("Invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}
