package ride

import (
	"encoding/json"
	"fmt"
)

// SeatStatus represents the occupancy of a single seat
type SeatStatus string

const (
	SeatEmpty          SeatStatus = "EMPTY"
	SeatDriver         SeatStatus = "DRIVER"
	SeatMaleOccupied   SeatStatus = "MALE_OCCUPIED"
	SeatFemaleOccupied SeatStatus = "FEMALE_OCCUPIED"
)

const (
	MinSeats = 2
	MaxSeats = 64
)

// IsValid validates the seat status
func (s SeatStatus) IsValid() bool {
	switch s {
	case SeatEmpty, SeatDriver, SeatMaleOccupied, SeatFemaleOccupied:
		return true
	}
	return false
}

// IsOccupied reports whether a passenger sits on the seat
func (s SeatStatus) IsOccupied() bool {
	return s == SeatMaleOccupied || s == SeatFemaleOccupied
}

// SeatMap is the ordered seating layout of a car. Seat 0 always belongs to
// the driver. A SeatMap is never modified in place: every mutator returns a
// new, revalidated map.
type SeatMap struct {
	seats []SeatStatus
}

// NewSeatMap validates the layout and returns a SeatMap owning a copy of it
func NewSeatMap(seats []SeatStatus) (SeatMap, error) {
	if len(seats) < MinSeats || len(seats) > MaxSeats {
		return SeatMap{}, fmt.Errorf("%w: %d seats, expected between %d and %d",
			ErrInvalidSeatLayout, len(seats), MinSeats, MaxSeats)
	}
	if seats[0] != SeatDriver {
		return SeatMap{}, fmt.Errorf("%w: seat 0 must be %s", ErrInvalidSeatLayout, SeatDriver)
	}
	for i := 1; i < len(seats); i++ {
		if !seats[i].IsValid() {
			return SeatMap{}, fmt.Errorf("%w: seat %d has unknown status %q", ErrInvalidSeatLayout, i, seats[i])
		}
		if seats[i] == SeatDriver {
			return SeatMap{}, fmt.Errorf("%w: seat %d cannot be %s", ErrInvalidSeatLayout, i, SeatDriver)
		}
	}

	cp := make([]SeatStatus, len(seats))
	copy(cp, seats)
	return SeatMap{seats: cp}, nil
}

// NewEmptySeatMap builds a layout of n seats with only the driver seated
func NewEmptySeatMap(n int) (SeatMap, error) {
	if n < MinSeats || n > MaxSeats {
		return SeatMap{}, fmt.Errorf("%w: %d seats, expected between %d and %d",
			ErrInvalidSeatLayout, n, MinSeats, MaxSeats)
	}
	seats := make([]SeatStatus, n)
	seats[0] = SeatDriver
	for i := 1; i < n; i++ {
		seats[i] = SeatEmpty
	}
	return NewSeatMap(seats)
}

// Len returns the number of seats including the driver's
func (m SeatMap) Len() int {
	return len(m.seats)
}

// At returns the status of seat i; ok is false when i is out of range
func (m SeatMap) At(i int) (SeatStatus, bool) {
	if i < 0 || i >= len(m.seats) {
		return "", false
	}
	return m.seats[i], true
}

// Seats returns a copy of the layout
func (m SeatMap) Seats() []SeatStatus {
	cp := make([]SeatStatus, len(m.seats))
	copy(cp, m.seats)
	return cp
}

// IsZero reports whether the map was never constructed
func (m SeatMap) IsZero() bool {
	return len(m.seats) == 0
}

// IsAvailable reports whether seat i exists, is not the driver's, and is empty
func (m SeatMap) IsAvailable(i int) bool {
	return i > 0 && i < len(m.seats) && m.seats[i] == SeatEmpty
}

// HasAvailableSeats reports whether at least one passenger seat is empty
func (m SeatMap) HasAvailableSeats() bool {
	for i := 1; i < len(m.seats); i++ {
		if m.seats[i] == SeatEmpty {
			return true
		}
	}
	return false
}

// AvailableIndexes returns the indexes of the empty seats
func (m SeatMap) AvailableIndexes() []int {
	var out []int
	for i := 1; i < len(m.seats); i++ {
		if m.seats[i] == SeatEmpty {
			out = append(out, i)
		}
	}
	return out
}

// OccupiedIndexes returns the indexes of seats taken by passengers
func (m SeatMap) OccupiedIndexes() []int {
	var out []int
	for i := 1; i < len(m.seats); i++ {
		if m.seats[i].IsOccupied() {
			out = append(out, i)
		}
	}
	return out
}

// Occupy seats a passenger on an empty seat
func (m SeatMap) Occupy(i int, status SeatStatus) (SeatMap, error) {
	if err := m.checkPassengerIndex(i); err != nil {
		return SeatMap{}, err
	}
	if !status.IsOccupied() {
		return SeatMap{}, fmt.Errorf("%w: %q is not an occupant status", ErrInvalidSeatOperation, status)
	}
	if m.seats[i] != SeatEmpty {
		return SeatMap{}, fmt.Errorf("%w: seat %d is %s", ErrInvalidSeatOperation, i, m.seats[i])
	}
	return m.with(i, status)
}

// ChangePassenger replaces the occupant status of an occupied seat
func (m SeatMap) ChangePassenger(i int, status SeatStatus) (SeatMap, error) {
	if err := m.checkPassengerIndex(i); err != nil {
		return SeatMap{}, err
	}
	if !status.IsOccupied() {
		return SeatMap{}, fmt.Errorf("%w: %q is not an occupant status", ErrInvalidSeatOperation, status)
	}
	if !m.seats[i].IsOccupied() {
		return SeatMap{}, fmt.Errorf("%w: seat %d is not occupied", ErrInvalidSeatOperation, i)
	}
	return m.with(i, status)
}

// ReleaseSeat frees an occupied seat
func (m SeatMap) ReleaseSeat(i int) (SeatMap, error) {
	if err := m.checkPassengerIndex(i); err != nil {
		return SeatMap{}, err
	}
	if !m.seats[i].IsOccupied() {
		return SeatMap{}, fmt.Errorf("%w: seat %d is not occupied", ErrInvalidSeatOperation, i)
	}
	return m.with(i, SeatEmpty)
}

// Equal compares two maps seat by seat
func (m SeatMap) Equal(other SeatMap) bool {
	if len(m.seats) != len(other.seats) {
		return false
	}
	for i := range m.seats {
		if m.seats[i] != other.seats[i] {
			return false
		}
	}
	return true
}

func (m SeatMap) checkPassengerIndex(i int) error {
	if i <= 0 || i >= len(m.seats) {
		return fmt.Errorf("%w: seat index %d out of range (1..%d)", ErrInvalidSeatOperation, i, len(m.seats)-1)
	}
	return nil
}

func (m SeatMap) with(i int, status SeatStatus) (SeatMap, error) {
	next := m.Seats()
	next[i] = status
	return NewSeatMap(next)
}

// MarshalJSON encodes the map as an array of statuses
func (m SeatMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.seats)
}

// UnmarshalJSON decodes and revalidates the layout
func (m *SeatMap) UnmarshalJSON(data []byte) error {
	var seats []SeatStatus
	if err := json.Unmarshal(data, &seats); err != nil {
		return err
	}
	parsed, err := NewSeatMap(seats)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
