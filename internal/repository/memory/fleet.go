package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/gocomet/rideshare/internal/domain/fleet"
	"github.com/gocomet/rideshare/internal/domain/ride"
	"github.com/google/uuid"
)

// FleetDirectory is an in-memory fleet.Directory. Registrations are held
// here; whether a car is on a trip or a driver is busy is read from the
// rides in the store, like the Postgres directory does.
type FleetDirectory struct {
	mu      sync.RWMutex
	cars    map[string]fleet.Car
	drivers map[uuid.UUID]fleet.Driver
	rides   *Store
}

// NewFleetDirectory creates an empty directory over the rides in store.
// A nil store means no ride is ever on the road.
func NewFleetDirectory(store *Store) *FleetDirectory {
	return &FleetDirectory{
		cars:    make(map[string]fleet.Car),
		drivers: make(map[uuid.UUID]fleet.Driver),
		rides:   store,
	}
}

// PutCar registers or replaces a car. OnTrip is ignored.
func (d *FleetDirectory) PutCar(car fleet.Car) {
	d.mu.Lock()
	defer d.mu.Unlock()
	car.LicensePlate = normalizePlate(car.LicensePlate)
	car.OnTrip = false
	d.cars[car.LicensePlate] = car
}

// PutDriver registers or replaces a driver. Available is the registration
// status; a driver with a ride on the road is reported busy regardless.
func (d *FleetDirectory) PutDriver(driver fleet.Driver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drivers[driver.ID] = driver
}

func (d *FleetDirectory) FindCar(ctx context.Context, licensePlate string) (*fleet.Car, error) {
	plate := normalizePlate(licensePlate)

	d.mu.RLock()
	car, ok := d.cars[plate]
	d.mu.RUnlock()
	if !ok {
		return nil, fleet.ErrCarNotFound
	}

	car.OnTrip = d.rides.onTheRoad(func(r ride.Ride) bool {
		return normalizePlate(r.CarPlate) == plate
	})
	return &car, nil
}

func (d *FleetDirectory) FindDriver(ctx context.Context, driverID uuid.UUID) (*fleet.Driver, error) {
	d.mu.RLock()
	driver, ok := d.drivers[driverID]
	d.mu.RUnlock()
	if !ok {
		return nil, fleet.ErrDriverNotFound
	}

	if driver.Available {
		driver.Available = !d.rides.onTheRoad(func(r ride.Ride) bool {
			return r.Origin.DriverID == driverID
		})
	}
	return &driver, nil
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}
