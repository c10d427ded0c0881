package riderequest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocomet/rideshare/internal/domain/ride"
	"github.com/google/uuid"
)

// DefaultTTL is how long a proposal waits for the driver
const DefaultTTL = 300 * time.Second

// RideRequest is an owner's proposal for a driver to run a ride with the
// owner's car. It lives only in the cache, keyed by driver, and becomes a
// Ride once the driver accepts it.
type RideRequest struct {
	ID                uuid.UUID     `json:"id"`
	DriverID          uuid.UUID     `json:"driver_id"`
	OwnerID           uuid.UUID     `json:"owner_id"`
	LicensePlate      string        `json:"license_plate"`
	Route             ride.Route    `json:"route"`
	Schedule          ride.Schedule `json:"schedule"`
	PricePerSeat      ride.Price    `json:"price_per_seat"`
	Seats             ride.SeatMap  `json:"seats"`
	Description       string        `json:"description,omitempty"`
	Rules             ride.RuleSet  `json:"rules"`
	DeliveryAvailable bool          `json:"delivery_available"`
	DeliveryPrice     *ride.Price   `json:"delivery_price,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	ExpiresAt         time.Time     `json:"expires_at"`
}

// Params carries the owner's proposal
type Params struct {
	DriverID          uuid.UUID
	OwnerID           uuid.UUID
	LicensePlate      string
	Route             ride.Route
	Schedule          ride.Schedule
	PricePerSeat      ride.Price
	Seats             ride.SeatMap
	Description       string
	Rules             ride.RuleSet
	DeliveryAvailable bool
	DeliveryPrice     *ride.Price
}

// New validates a proposal by building the ride it would become
func New(p Params, ttl time.Duration, now time.Time) (RideRequest, error) {
	if p.OwnerID == uuid.Nil {
		return RideRequest{}, fmt.Errorf("%w: owner is required", ErrInvalidRideRequest)
	}
	if strings.TrimSpace(p.LicensePlate) == "" {
		return RideRequest{}, fmt.Errorf("%w: license plate is required", ErrInvalidRideRequest)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	req := RideRequest{
		ID:                uuid.New(),
		DriverID:          p.DriverID,
		OwnerID:           p.OwnerID,
		LicensePlate:      strings.ToUpper(strings.TrimSpace(p.LicensePlate)),
		Route:             p.Route,
		Schedule:          p.Schedule,
		PricePerSeat:      p.PricePerSeat,
		Seats:             p.Seats,
		Description:       p.Description,
		Rules:             p.Rules,
		DeliveryAvailable: p.DeliveryAvailable,
		DeliveryPrice:     p.DeliveryPrice,
		CreatedAt:         now.UTC(),
		ExpiresAt:         now.UTC().Add(ttl),
	}
	if _, err := req.ToRide(now); err != nil {
		return RideRequest{}, err
	}
	return req, nil
}

// ToRide builds the owner-originated ride described by the request
func (r RideRequest) ToRide(now time.Time) (ride.Ride, error) {
	return ride.New(ride.Params{
		Origin:            ride.NewOwnerOrigin(r.DriverID, r.OwnerID),
		CarPlate:          r.LicensePlate,
		Route:             r.Route,
		Schedule:          r.Schedule,
		PricePerSeat:      r.PricePerSeat,
		Seats:             r.Seats,
		Description:       r.Description,
		Rules:             r.Rules,
		DeliveryAvailable: r.DeliveryAvailable,
		DeliveryPrice:     r.DeliveryPrice,
	}, now)
}

// Cache stores at most one pending request per driver.
type Cache interface {
	// Put stores req under its driver, replacing any pending request
	Put(ctx context.Context, req *RideRequest, ttl time.Duration) error

	// Get returns the pending request without consuming it
	Get(ctx context.Context, driverID uuid.UUID) (*RideRequest, error)

	// GetAndDelete atomically removes and returns the pending request of
	// driverID if its ID is requestID. A missing or different request
	// yields ErrRideRequestNotFound and leaves the cache untouched.
	GetAndDelete(ctx context.Context, driverID, requestID uuid.UUID) (*RideRequest, error)
}
