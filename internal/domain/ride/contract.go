package ride

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PassengerSeat is one seat reserved by a booking
type PassengerSeat struct {
	Index  int        `json:"index"`
	Status SeatStatus `json:"status"`
}

// BookedSeats is the ordered list of seats requested in one booking
type BookedSeats []PassengerSeat

// Validate requires at least one seat, no repeated index and occupant statuses only
func (b BookedSeats) Validate() error {
	if len(b) == 0 {
		return fmt.Errorf("%w: no seats requested", ErrInvalidBooking)
	}
	seen := make(map[int]struct{}, len(b))
	for _, s := range b {
		if !s.Status.IsOccupied() {
			return fmt.Errorf("%w: seat %d has non-occupant status %q", ErrInvalidBooking, s.Index, s.Status)
		}
		if _, ok := seen[s.Index]; ok {
			return fmt.Errorf("%w: seat %d requested twice", ErrInvalidBooking, s.Index)
		}
		seen[s.Index] = struct{}{}
	}
	return nil
}

// Indexes returns the requested seat indexes in order
func (b BookedSeats) Indexes() []int {
	out := make([]int, len(b))
	for i, s := range b {
		out[i] = s.Index
	}
	return out
}

func (b BookedSeats) clone() BookedSeats {
	out := make(BookedSeats, len(b))
	copy(out, b)
	return out
}

// Contract binds a passenger to seats on a ride at the price in force when
// the booking was made. Contracts are issued by Ride.Book and never change.
type Contract struct {
	ID           uuid.UUID   `json:"id"`
	RideID       uuid.UUID   `json:"ride_id"`
	PassengerID  uuid.UUID   `json:"passenger_id"`
	PricePerSeat Price       `json:"price_per_seat"`
	BookedSeats  BookedSeats `json:"booked_seats"`
	CreatedAt    time.Time   `json:"created_at"`
}

// RestoreContract rebuilds a stored contract
func RestoreContract(id, rideID, passengerID uuid.UUID, price Price, seats BookedSeats, createdAt time.Time) Contract {
	return Contract{
		ID:           id,
		RideID:       rideID,
		PassengerID:  passengerID,
		PricePerSeat: price,
		BookedSeats:  seats.clone(),
		CreatedAt:    createdAt,
	}
}

// Total is the amount owed for all booked seats
func (c Contract) Total() Price {
	return c.PricePerSeat.Times(len(c.BookedSeats))
}
