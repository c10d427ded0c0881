package ride

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status represents ride status
type Status string

const (
	StatusPending           Status = "PENDING"
	StatusOnTheRoad         Status = "ON_THE_ROAD"
	StatusEndedSuccessfully Status = "ENDED_SUCCESSFULLY"
	StatusCanceled          Status = "CANCELED"
)

// IsValid validates the status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusOnTheRoad, StatusEndedSuccessfully, StatusCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusEndedSuccessfully || s == StatusCanceled
}

// Ride is a scheduled trip offering seats for booking.
//
// Methods never mutate the receiver; they return the next state for the
// caller to persist. Version is the optimistic concurrency token of the
// stored row and is advanced by the repository, not by the aggregate.
type Ride struct {
	ID                uuid.UUID `json:"id"`
	Origin            Origin    `json:"origin"`
	CarPlate          string    `json:"car_plate,omitempty"`
	Route             Route     `json:"route"`
	Schedule          Schedule  `json:"schedule"`
	PricePerSeat      Price     `json:"price_per_seat"`
	Seats             SeatMap   `json:"seats"`
	Status            Status    `json:"status"`
	Description       string    `json:"description,omitempty"`
	Rules             RuleSet   `json:"rules"`
	DeliveryAvailable bool      `json:"delivery_available"`
	DeliveryPrice     *Price    `json:"delivery_price,omitempty"`
	Version           int64     `json:"version"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Params carries the validated parts of a new ride
type Params struct {
	Origin            Origin
	CarPlate          string
	Route             Route
	Schedule          Schedule
	PricePerSeat      Price
	Seats             SeatMap
	Description       string
	Rules             RuleSet
	DeliveryAvailable bool
	DeliveryPrice     *Price
}

// New creates a PENDING ride
func New(p Params, now time.Time) (Ride, error) {
	if err := p.Origin.Validate(); err != nil {
		return Ride{}, err
	}
	if p.Route.From == p.Route.To {
		return Ride{}, fmt.Errorf("%w: route is not set", ErrInvalidRoute)
	}
	if p.Schedule.Start.IsZero() || !p.Schedule.Start.After(now) {
		return Ride{}, fmt.Errorf("%w: ride must be scheduled in the future", ErrInvalidSchedule)
	}
	if p.Seats.IsZero() {
		return Ride{}, fmt.Errorf("%w: seat map is required", ErrInvalidSeatLayout)
	}
	if err := p.PricePerSeat.Validate(); err != nil {
		return Ride{}, err
	}
	if err := validateDelivery(p.DeliveryAvailable, p.DeliveryPrice); err != nil {
		return Ride{}, err
	}
	rules, err := NewRuleSet(p.Rules...)
	if err != nil {
		return Ride{}, err
	}

	now = now.UTC()
	return Ride{
		ID:                uuid.New(),
		Origin:            p.Origin,
		CarPlate:          p.CarPlate,
		Route:             p.Route.clone(),
		Schedule:          p.Schedule,
		PricePerSeat:      p.PricePerSeat,
		Seats:             p.Seats,
		Status:            StatusPending,
		Description:       p.Description,
		Rules:             rules,
		DeliveryAvailable: p.DeliveryAvailable,
		DeliveryPrice:     p.DeliveryPrice,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func validateDelivery(available bool, price *Price) error {
	if !available {
		if price != nil {
			return fmt.Errorf("%w: delivery price set but delivery is not available", ErrInvalidPrice)
		}
		return nil
	}
	if price == nil {
		return fmt.Errorf("%w: delivery price is required when delivery is available", ErrInvalidPrice)
	}
	return price.Validate()
}

// Start moves a pending ride on the road
func (r Ride) Start(now time.Time) (Ride, error) {
	if r.Status != StatusPending {
		return Ride{}, fmt.Errorf("%w: ride is already started, canceled or finished (status %s)",
			ErrInvalidRideTransition, r.Status)
	}
	return r.withStatus(StatusOnTheRoad, now), nil
}

// Cancel withdraws a ride that has not started
func (r Ride) Cancel(now time.Time) (Ride, error) {
	if r.Status != StatusPending {
		return Ride{}, fmt.Errorf("%w: only pending rides can be canceled (status %s)",
			ErrInvalidRideTransition, r.Status)
	}
	return r.withStatus(StatusCanceled, now), nil
}

// Finish completes a ride that is on the road
func (r Ride) Finish(now time.Time) (Ride, error) {
	if r.Status != StatusOnTheRoad {
		return Ride{}, fmt.Errorf("%w: cannot finish a ride which was not going (status %s)",
			ErrInvalidRideTransition, r.Status)
	}
	return r.withStatus(StatusEndedSuccessfully, now), nil
}

// AddRule returns the ride with rule added
func (r Ride) AddRule(rule Rule, now time.Time) (Ride, error) {
	if !rule.IsValid() {
		return Ride{}, fmt.Errorf("%w: %q", ErrInvalidRule, rule)
	}
	if r.Rules.Has(rule) {
		return Ride{}, fmt.Errorf("%w: %s is already set", ErrInvalidRule, rule)
	}
	rules, err := r.Rules.With(rule)
	if err != nil {
		return Ride{}, err
	}
	next := r.clone()
	next.Rules = rules
	next.UpdatedAt = now.UTC()
	return next, nil
}

// RemoveRule returns the ride without rule
func (r Ride) RemoveRule(rule Rule, now time.Time) (Ride, error) {
	if !r.Rules.Has(rule) {
		return Ride{}, fmt.Errorf("%w: %q is not set", ErrInvalidRule, rule)
	}
	next := r.clone()
	next.Rules = r.Rules.Without(rule)
	next.UpdatedAt = now.UTC()
	return next, nil
}

// IsBookable reports whether passengers may still book seats
func (r Ride) IsBookable() bool {
	return r.Status == StatusPending
}

// Book reserves the requested seats for a passenger. It either occupies every
// requested seat and issues a contract at the current price, or fails without
// touching anything.
func (r Ride) Book(passengerID uuid.UUID, seats BookedSeats, now time.Time) (Ride, Contract, error) {
	if passengerID == uuid.Nil {
		return Ride{}, Contract{}, fmt.Errorf("%w: passenger is required", ErrInvalidBooking)
	}
	if passengerID == r.Origin.DriverID {
		return Ride{}, Contract{}, fmt.Errorf("%w: driver cannot book a seat on own ride", ErrInvalidBooking)
	}
	if !r.IsBookable() {
		return Ride{}, Contract{}, fmt.Errorf("%w: status %s", ErrRideNotBookable, r.Status)
	}
	if err := seats.Validate(); err != nil {
		return Ride{}, Contract{}, err
	}
	for _, s := range seats {
		if s.Index < 1 || s.Index >= r.Seats.Len() {
			return Ride{}, Contract{}, fmt.Errorf("%w: seat index %d out of range (1..%d): %w",
				ErrInvalidBooking, s.Index, r.Seats.Len()-1, ErrInvalidSeatOperation)
		}
	}
	for _, s := range seats {
		if !r.Seats.IsAvailable(s.Index) {
			return Ride{}, Contract{}, fmt.Errorf("%w: seat %d", ErrSeatUnavailable, s.Index)
		}
	}

	seatMap := r.Seats
	for _, s := range seats {
		var err error
		seatMap, err = seatMap.Occupy(s.Index, s.Status)
		if err != nil {
			return Ride{}, Contract{}, err
		}
	}

	now = now.UTC()
	next := r.clone()
	next.Seats = seatMap
	next.UpdatedAt = now

	contract := Contract{
		ID:           uuid.New(),
		RideID:       r.ID,
		PassengerID:  passengerID,
		PricePerSeat: r.PricePerSeat,
		BookedSeats:  seats.clone(),
		CreatedAt:    now,
	}
	return next, contract, nil
}

func (r Ride) withStatus(status Status, now time.Time) Ride {
	next := r.clone()
	next.Status = status
	next.UpdatedAt = now.UTC()
	return next
}

func (r Ride) clone() Ride {
	next := r
	next.Route = r.Route.clone()
	next.Rules = r.Rules.clone()
	if r.DeliveryPrice != nil {
		p := *r.DeliveryPrice
		next.DeliveryPrice = &p
	}
	if r.Origin.OwnerID != nil {
		id := *r.Origin.OwnerID
		next.Origin.OwnerID = &id
	}
	return next
}
