package fleet

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrCarNotFound       = errors.New("car not found")
	ErrDriverNotFound    = errors.New("driver not found")
	ErrNotCarOwner       = errors.New("car belongs to another owner")
	ErrCarUnavailable    = errors.New("car is currently on a trip")
	ErrDriverUnavailable = errors.New("driver is not available")
)

// Car is a fleet vehicle as seen by ride proposals
type Car struct {
	LicensePlate string
	OwnerID      uuid.UUID
	OnTrip       bool
}

// Driver is a registered driver as seen by ride proposals
type Driver struct {
	ID        uuid.UUID
	Available bool
}

// Directory looks up fleet data owned by the registration service
type Directory interface {
	FindCar(ctx context.Context, licensePlate string) (*Car, error)
	FindDriver(ctx context.Context, driverID uuid.UUID) (*Driver, error)
}

// CheckProposal verifies an owner may send a proposal for car to driver
func CheckProposal(ctx context.Context, dir Directory, ownerID uuid.UUID, licensePlate string, driverID uuid.UUID) error {
	car, err := dir.FindCar(ctx, licensePlate)
	if err != nil {
		return err
	}
	if car.OwnerID != ownerID {
		return ErrNotCarOwner
	}
	if car.OnTrip {
		return ErrCarUnavailable
	}

	driver, err := dir.FindDriver(ctx, driverID)
	if err != nil {
		return err
	}
	if !driver.Available {
		return ErrDriverUnavailable
	}
	return nil
}
