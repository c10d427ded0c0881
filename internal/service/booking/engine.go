package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocomet/rideshare/internal/domain/ride"
	"github.com/gocomet/rideshare/pkg/events"
	"github.com/gocomet/rideshare/pkg/logger"
	"github.com/gocomet/rideshare/pkg/metrics"
	"github.com/gocomet/rideshare/pkg/monitoring"
	"github.com/gocomet/rideshare/pkg/websocket"
	"github.com/google/uuid"
)

// DefaultMaxAttempts bounds optimistic retries of one booking
const DefaultMaxAttempts = 3

// Notifier pushes real-time updates to connected clients
type Notifier interface {
	NotifyRide(rideID uuid.UUID, msgType string, data interface{})
}

// Config holds booking configuration
type Config struct {
	MaxAttempts int
	Now         func() time.Time
}

// Engine allocates seats on rides. A booking either reserves every requested
// seat and stores its contract, or changes nothing.
type Engine struct {
	rides     ride.Repository
	contracts ride.ContractRepository
	tx        ride.Transactor
	publisher events.Publisher
	notifier  Notifier
	nr        *monitoring.NewRelicApp
	logger    *logger.Logger
	config    Config
}

// NewEngine creates a new booking engine
func NewEngine(
	rides ride.Repository,
	contracts ride.ContractRepository,
	tx ride.Transactor,
	publisher events.Publisher,
	notifier Notifier,
	nr *monitoring.NewRelicApp,
	log *logger.Logger,
	config Config,
) *Engine {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Engine{
		rides:     rides,
		contracts: contracts,
		tx:        tx,
		publisher: publisher,
		notifier:  notifier,
		nr:        nr,
		logger:    log.Named("booking"),
		config:    config,
	}
}

// SeatsUpdate is pushed to ride subscribers after a booking
type SeatsUpdate struct {
	RideID uuid.UUID    `json:"ride_id"`
	Seats  ride.SeatMap `json:"seats"`
}

// Book reserves seats on rideID for passengerID and returns the issued contract.
//
// The ride is reloaded and the booking re-validated whenever the commit loses
// a version race, so a seat taken by the winner is reported as
// ErrSeatUnavailable. ErrConflict is returned once MaxAttempts is spent.
func (e *Engine) Book(ctx context.Context, rideID, passengerID uuid.UUID, seats ride.BookedSeats) (ride.Contract, error) {
	for attempt := 1; ; attempt++ {
		current, err := e.rides.FindByID(ctx, rideID)
		if err != nil {
			return ride.Contract{}, err
		}

		next, contract, err := current.Book(passengerID, seats, e.config.Now())
		if err != nil {
			e.reject(rideID, err)
			return ride.Contract{}, err
		}

		err = e.tx.WithinTx(ctx, func(rides ride.Repository, contracts ride.ContractRepository) error {
			if err := rides.UpdateSeats(ctx, &next); err != nil {
				return err
			}
			return contracts.Save(ctx, &contract)
		})
		if err == nil {
			e.booked(ctx, next, contract, attempt)
			return contract, nil
		}

		if !errors.Is(err, ride.ErrConflict) {
			metrics.BookingsTotal.WithLabelValues(metrics.OutcomeError).Inc()
			e.logger.Error("Failed to commit booking", logger.Err(err), logger.UUID("ride_id", rideID))
			return ride.Contract{}, err
		}
		if attempt >= e.config.MaxAttempts {
			metrics.BookingsTotal.WithLabelValues(metrics.OutcomeConflict).Inc()
			metrics.BookingAttempts.Observe(float64(attempt))
			e.logger.Warn("Booking gave up after concurrent updates",
				logger.UUID("ride_id", rideID),
				logger.Int("attempts", attempt),
			)
			return ride.Contract{}, fmt.Errorf("booking ride %s: %w", rideID, ride.ErrConflict)
		}
		if err := ctx.Err(); err != nil {
			return ride.Contract{}, err
		}

		e.logger.Debug("Booking lost a version race, retrying",
			logger.UUID("ride_id", rideID),
			logger.Int("attempt", attempt),
		)
	}
}

func (e *Engine) reject(rideID uuid.UUID, err error) {
	metrics.BookingsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
	e.nr.RecordBookingRejected(rideID.String(), err.Error())
	e.logger.Warn("Booking rejected", logger.UUID("ride_id", rideID), logger.Err(err))
}

func (e *Engine) booked(ctx context.Context, r ride.Ride, c ride.Contract, attempts int) {
	metrics.BookingsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.BookingAttempts.Observe(float64(attempts))
	metrics.BookedSeatsTotal.Add(float64(len(c.BookedSeats)))
	e.nr.RecordSeatsBooked(r.ID.String(), len(c.BookedSeats), int64(c.Total()), attempts)

	e.logger.Info("Seats booked",
		logger.UUID("ride_id", r.ID),
		logger.UUID("contract_id", c.ID),
		logger.UUID("passenger_id", c.PassengerID),
		logger.Ints("seats", c.BookedSeats.Indexes()),
		logger.Int("attempts", attempts),
	)

	if e.notifier != nil {
		e.notifier.NotifyRide(r.ID, websocket.TypeSeatsUpdated, SeatsUpdate{RideID: r.ID, Seats: r.Seats})
	}
	events.Emit(ctx, e.publisher, e.logger, events.RideSeatsBooked, r.ID.String(), c)
}

// GetContract returns a contract by ID
func (e *Engine) GetContract(ctx context.Context, id uuid.UUID) (*ride.Contract, error) {
	return e.contracts.FindByID(ctx, id)
}

// ListContractsByRide lists the contracts issued on a ride
func (e *Engine) ListContractsByRide(ctx context.Context, rideID uuid.UUID, page ride.Page) ([]*ride.Contract, error) {
	if _, err := e.rides.FindByID(ctx, rideID); err != nil {
		return nil, err
	}
	return e.contracts.FindByRide(ctx, rideID, page)
}

// ListContractsByPassenger lists the contracts held by a passenger
func (e *Engine) ListContractsByPassenger(ctx context.Context, passengerID uuid.UUID, page ride.Page) ([]*ride.Contract, error) {
	return e.contracts.FindByPassenger(ctx, passengerID, page)
}
