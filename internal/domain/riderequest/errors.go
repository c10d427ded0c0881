package riderequest

import "errors"

var (
	ErrRideRequestNotFound = errors.New("ride request not found")
	ErrInvalidRideRequest  = errors.New("invalid ride request")
)
