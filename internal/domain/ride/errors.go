package ride

import "errors"

var (
	ErrInvalidSeatLayout     = errors.New("invalid seat layout")
	ErrInvalidSeatOperation  = errors.New("invalid seat operation")
	ErrInvalidLocation       = errors.New("invalid location")
	ErrInvalidRoute          = errors.New("invalid route")
	ErrInvalidSchedule       = errors.New("invalid schedule")
	ErrInvalidPrice          = errors.New("invalid price")
	ErrInvalidRule           = errors.New("invalid ride rule")
	ErrInvalidBooking        = errors.New("invalid booking")
	ErrInvalidOrigin         = errors.New("invalid ride origin")
	ErrInvalidRideTransition = errors.New("invalid ride transition")
	ErrRideNotBookable       = errors.New("ride is not bookable")
	ErrSeatUnavailable       = errors.New("seat is unavailable")
	ErrRideNotFound          = errors.New("ride not found")
	ErrContractNotFound      = errors.New("contract not found")
	ErrConflict              = errors.New("ride was modified concurrently")
	ErrForbidden             = errors.New("not allowed to manage this ride")
)
