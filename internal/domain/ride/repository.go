package ride

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page selects a window of a listing
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to sane bounds
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Repository defines the interface for ride data access.
//
// Update methods are guarded by ride.Version: the write succeeds only if the
// stored version still equals the given one, in which case the stored
// version and ride.Version are both incremented. Otherwise ErrConflict.
type Repository interface {
	// Save inserts a new ride
	Save(ctx context.Context, ride *Ride) error

	// FindByID retrieves a ride by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Ride, error)

	// UpdateSeats persists the seat map
	UpdateSeats(ctx context.Context, ride *Ride) error

	// UpdateStatus persists the lifecycle status
	UpdateStatus(ctx context.Context, ride *Ride) error

	// UpdateRules persists the rule set
	UpdateRules(ctx context.Context, ride *Ride) error

	// FindByDriver lists rides driven by a driver, newest departure first
	FindByDriver(ctx context.Context, driverID uuid.UUID, page Page) ([]*Ride, error)

	// FindByOwner lists rides created from an owner's proposals
	FindByOwner(ctx context.Context, ownerID uuid.UUID, page Page) ([]*Ride, error)

	// FindByDate lists rides departing on the given calendar day (UTC)
	FindByDate(ctx context.Context, day time.Time, page Page) ([]*Ride, error)
}

// ContractRepository defines the interface for contract data access
type ContractRepository interface {
	Save(ctx context.Context, contract *Contract) error
	FindByID(ctx context.Context, id uuid.UUID) (*Contract, error)
	FindByRide(ctx context.Context, rideID uuid.UUID, page Page) ([]*Contract, error)
	FindByPassenger(ctx context.Context, passengerID uuid.UUID, page Page) ([]*Contract, error)
}

// Transactor runs fn with repositories bound to a single transaction. If fn
// returns an error nothing it wrote is kept.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(rides Repository, contracts ContractRepository) error) error
}

// DayBounds returns [start, end) of the UTC day containing t
func DayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
