package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gocomet/rideshare/internal/domain/ride"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const rideColumns = `
	id, origin_kind, driver_id, owner_id, car_plate,
	from_description, from_latitude, from_longitude,
	to_description, to_latitude, to_longitude, stops,
	start_at, end_at, price_per_seat, seats, status, description, rules,
	delivery_available, delivery_price, version, created_at, updated_at`

// RideStore implements ride.Repository on PostgreSQL
type RideStore struct {
	q querier
}

// NewRideStore creates a ride store on db
func NewRideStore(db *sql.DB) *RideStore {
	return &RideStore{q: db}
}

// Save inserts a new ride at version 1
func (s *RideStore) Save(ctx context.Context, r *ride.Ride) error {
	stops, err := json.Marshal(r.Route.Stops)
	if err != nil {
		return fmt.Errorf("encode stops: %w", err)
	}

	var ownerID uuid.NullUUID
	if r.Origin.OwnerID != nil {
		ownerID = uuid.NullUUID{UUID: *r.Origin.OwnerID, Valid: true}
	}
	var deliveryPrice sql.NullInt64
	if r.DeliveryPrice != nil {
		deliveryPrice = sql.NullInt64{Int64: int64(*r.DeliveryPrice), Valid: true}
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO rides (`+rideColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, 1, $22, $23)
	`,
		r.ID, string(r.Origin.Kind), r.Origin.DriverID, ownerID, r.CarPlate,
		r.Route.From.Description, r.Route.From.Latitude, r.Route.From.Longitude,
		r.Route.To.Description, r.Route.To.Latitude, r.Route.To.Longitude, stops,
		r.Schedule.Start, r.Schedule.End, int64(r.PricePerSeat), pq.Array(seatStrings(r.Seats)),
		string(r.Status), r.Description, pq.Array(r.Rules.Strings()),
		r.DeliveryAvailable, deliveryPrice, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("ride %s already exists: %w", r.ID, err)
		}
		return fmt.Errorf("insert ride: %w", err)
	}

	r.Version = 1
	return nil
}

// FindByID retrieves a ride by its ID
func (s *RideStore) FindByID(ctx context.Context, id uuid.UUID) (*ride.Ride, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, id)
	r, err := scanRide(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ride.ErrRideNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query ride: %w", err)
	}
	return r, nil
}

// UpdateSeats persists the seat map if the stored version is unchanged
func (s *RideStore) UpdateSeats(ctx context.Context, r *ride.Ride) error {
	return s.versionedUpdate(ctx, r, "seats = $1", pq.Array(seatStrings(r.Seats)))
}

// UpdateStatus persists the status if the stored version is unchanged
func (s *RideStore) UpdateStatus(ctx context.Context, r *ride.Ride) error {
	return s.versionedUpdate(ctx, r, "status = $1", string(r.Status))
}

// UpdateRules persists the rules if the stored version is unchanged
func (s *RideStore) UpdateRules(ctx context.Context, r *ride.Ride) error {
	return s.versionedUpdate(ctx, r, "rules = $1", pq.Array(r.Rules.Strings()))
}

func (s *RideStore) versionedUpdate(ctx context.Context, r *ride.Ride, set string, value interface{}) error {
	var version int64
	err := s.q.QueryRowContext(ctx, `
		UPDATE rides
		SET `+set+`, updated_at = $2, version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`, value, r.UpdatedAt, r.ID, r.Version).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := s.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rides WHERE id = $1)`, r.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check ride: %w", err)
		}
		if !exists {
			return ride.ErrRideNotFound
		}
		return ride.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update ride: %w", err)
	}

	r.Version = version
	return nil
}

// FindByDriver lists rides of a driver, latest departure first
func (s *RideStore) FindByDriver(ctx context.Context, driverID uuid.UUID, page ride.Page) ([]*ride.Ride, error) {
	page = page.Normalize()
	return s.list(ctx, `
		SELECT `+rideColumns+` FROM rides
		WHERE driver_id = $1
		ORDER BY start_at DESC, id
		LIMIT $2 OFFSET $3
	`, driverID, page.Limit, page.Offset)
}

// FindByOwner lists rides created from an owner's proposals
func (s *RideStore) FindByOwner(ctx context.Context, ownerID uuid.UUID, page ride.Page) ([]*ride.Ride, error) {
	page = page.Normalize()
	return s.list(ctx, `
		SELECT `+rideColumns+` FROM rides
		WHERE owner_id = $1
		ORDER BY start_at DESC, id
		LIMIT $2 OFFSET $3
	`, ownerID, page.Limit, page.Offset)
}

// FindByDate lists rides departing on the UTC day of day
func (s *RideStore) FindByDate(ctx context.Context, day time.Time, page ride.Page) ([]*ride.Ride, error) {
	page = page.Normalize()
	from, to := ride.DayBounds(day)
	return s.list(ctx, `
		SELECT `+rideColumns+` FROM rides
		WHERE start_at >= $1 AND start_at < $2
		ORDER BY start_at, id
		LIMIT $3 OFFSET $4
	`, from, to, page.Limit, page.Offset)
}

func (s *RideStore) list(ctx context.Context, query string, args ...interface{}) ([]*ride.Ride, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rides: %w", err)
	}
	defer rows.Close()

	var out []*ride.Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rides: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRide(row scanner) (*ride.Ride, error) {
	var (
		r             ride.Ride
		originKind    string
		ownerID       uuid.NullUUID
		stops         []byte
		price         int64
		seats         []string
		status        string
		rules         []string
		deliveryPrice sql.NullInt64
	)

	err := row.Scan(
		&r.ID, &originKind, &r.Origin.DriverID, &ownerID, &r.CarPlate,
		&r.Route.From.Description, &r.Route.From.Latitude, &r.Route.From.Longitude,
		&r.Route.To.Description, &r.Route.To.Latitude, &r.Route.To.Longitude, &stops,
		&r.Schedule.Start, &r.Schedule.End, &price, pq.Array(&seats), &status, &r.Description, pq.Array(&rules),
		&r.DeliveryAvailable, &deliveryPrice, &r.Version, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Origin.Kind = ride.OriginKind(originKind)
	if ownerID.Valid {
		id := ownerID.UUID
		r.Origin.OwnerID = &id
	}
	if err := json.Unmarshal(stops, &r.Route.Stops); err != nil {
		return nil, fmt.Errorf("decode stops: %w", err)
	}
	r.PricePerSeat = ride.Price(price)
	r.Status = ride.Status(status)
	if deliveryPrice.Valid {
		p := ride.Price(deliveryPrice.Int64)
		r.DeliveryPrice = &p
	}

	statuses := make([]ride.SeatStatus, len(seats))
	for i, s := range seats {
		statuses[i] = ride.SeatStatus(s)
	}
	if r.Seats, err = ride.NewSeatMap(statuses); err != nil {
		return nil, fmt.Errorf("stored ride %s: %w", r.ID, err)
	}

	parsed := make([]ride.Rule, len(rules))
	for i, rule := range rules {
		parsed[i] = ride.Rule(rule)
	}
	if r.Rules, err = ride.NewRuleSet(parsed...); err != nil {
		return nil, fmt.Errorf("stored ride %s: %w", r.ID, err)
	}

	return &r, nil
}

func seatStrings(m ride.SeatMap) []string {
	seats := m.Seats()
	out := make([]string, len(seats))
	for i, s := range seats {
		out[i] = string(s)
	}
	return out
}
