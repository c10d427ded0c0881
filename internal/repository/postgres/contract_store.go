package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gocomet/rideshare/internal/domain/ride"
	"github.com/google/uuid"
)

// ContractStore implements ride.ContractRepository on PostgreSQL
type ContractStore struct {
	q querier
}

// NewContractStore creates a contract store on db
func NewContractStore(db *sql.DB) *ContractStore {
	return &ContractStore{q: db}
}

// Save inserts a contract
func (s *ContractStore) Save(ctx context.Context, c *ride.Contract) error {
	seats, err := json.Marshal(c.BookedSeats)
	if err != nil {
		return fmt.Errorf("encode booked seats: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO ride_contracts (id, ride_id, passenger_id, price_per_seat, booked_seats, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.RideID, c.PassengerID, int64(c.PricePerSeat), seats, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

// FindByID retrieves a contract by its ID
func (s *ContractStore) FindByID(ctx context.Context, id uuid.UUID) (*ride.Contract, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, ride_id, passenger_id, price_per_seat, booked_seats, created_at
		FROM ride_contracts
		WHERE id = $1
	`, id)

	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ride.ErrContractNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query contract: %w", err)
	}
	return c, nil
}

// FindByRide lists the contracts of a ride in booking order
func (s *ContractStore) FindByRide(ctx context.Context, rideID uuid.UUID, page ride.Page) ([]*ride.Contract, error) {
	page = page.Normalize()
	return s.list(ctx, `
		SELECT id, ride_id, passenger_id, price_per_seat, booked_seats, created_at
		FROM ride_contracts
		WHERE ride_id = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`, rideID, page.Limit, page.Offset)
}

// FindByPassenger lists the contracts of a passenger in booking order
func (s *ContractStore) FindByPassenger(ctx context.Context, passengerID uuid.UUID, page ride.Page) ([]*ride.Contract, error) {
	page = page.Normalize()
	return s.list(ctx, `
		SELECT id, ride_id, passenger_id, price_per_seat, booked_seats, created_at
		FROM ride_contracts
		WHERE passenger_id = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`, passengerID, page.Limit, page.Offset)
}

func (s *ContractStore) list(ctx context.Context, query string, args ...interface{}) ([]*ride.Contract, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query contracts: %w", err)
	}
	defer rows.Close()

	var out []*ride.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return out, nil
}

func scanContract(row scanner) (*ride.Contract, error) {
	var (
		id, rideID, passengerID uuid.UUID
		price                   int64
		raw                     []byte
		seats                   ride.BookedSeats
		c                       ride.Contract
	)
	if err := row.Scan(&id, &rideID, &passengerID, &price, &raw, &c.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &seats); err != nil {
		return nil, fmt.Errorf("decode booked seats: %w", err)
	}
	c = ride.RestoreContract(id, rideID, passengerID, ride.Price(price), seats, c.CreatedAt)
	return &c, nil
}
