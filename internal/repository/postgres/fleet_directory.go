package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gocomet/rideshare/internal/domain/fleet"
	"github.com/gocomet/rideshare/internal/domain/ride"
	"github.com/google/uuid"
)

// FleetDirectory reads cars and drivers registered by the fleet service.
// Availability is derived from rides currently on the road.
type FleetDirectory struct {
	db *sql.DB
}

// NewFleetDirectory creates a directory on db
func NewFleetDirectory(db *sql.DB) *FleetDirectory {
	return &FleetDirectory{db: db}
}

func (d *FleetDirectory) FindCar(ctx context.Context, licensePlate string) (*fleet.Car, error) {
	plate := strings.ToUpper(strings.TrimSpace(licensePlate))

	car := fleet.Car{LicensePlate: plate}
	err := d.db.QueryRowContext(ctx, `
		SELECT c.owner_id,
		       EXISTS (SELECT 1 FROM rides r WHERE r.car_plate = c.license_plate AND r.status = $2)
		FROM cars c
		WHERE c.license_plate = $1
	`, plate, string(ride.StatusOnTheRoad)).Scan(&car.OwnerID, &car.OnTrip)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fleet.ErrCarNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query car: %w", err)
	}
	return &car, nil
}

func (d *FleetDirectory) FindDriver(ctx context.Context, driverID uuid.UUID) (*fleet.Driver, error) {
	driver := fleet.Driver{ID: driverID}
	err := d.db.QueryRowContext(ctx, `
		SELECT d.status = 'ACTIVE'
		       AND NOT EXISTS (SELECT 1 FROM rides r WHERE r.driver_id = d.id AND r.status = $2)
		FROM drivers d
		WHERE d.id = $1
	`, driverID, string(ride.StatusOnTheRoad)).Scan(&driver.Available)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fleet.ErrDriverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query driver: %w", err)
	}
	return &driver, nil
}
