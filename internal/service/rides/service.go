package rides

import (
	"context"
	"errors"
	"time"

	"github.com/gocomet/rideshare/internal/domain/ride"
	"github.com/gocomet/rideshare/pkg/events"
	"github.com/gocomet/rideshare/pkg/logger"
	"github.com/gocomet/rideshare/pkg/metrics"
	"github.com/gocomet/rideshare/pkg/monitoring"
	"github.com/gocomet/rideshare/pkg/websocket"
	"github.com/google/uuid"
)

// Notifier pushes real-time updates to connected clients
type Notifier interface {
	NotifyRide(rideID uuid.UUID, msgType string, data interface{})
}

// Config holds ride service configuration
type Config struct {
	Now func() time.Time
}

// Service manages publication and the lifecycle of rides
type Service struct {
	rides     ride.Repository
	publisher events.Publisher
	notifier  Notifier
	nr        *monitoring.NewRelicApp
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates a new ride service
func NewService(rides ride.Repository, publisher events.Publisher, notifier Notifier, nr *monitoring.NewRelicApp, log *logger.Logger, config Config) *Service {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		rides:     rides,
		publisher: publisher,
		notifier:  notifier,
		nr:        nr,
		logger:    log.Named("rides"),
		now:       now,
	}
}

// StatusChange is pushed to ride subscribers after a transition
type StatusChange struct {
	RideID uuid.UUID   `json:"ride_id"`
	Status ride.Status `json:"status"`
}

// Create publishes a ride driven by driverID
func (s *Service) Create(ctx context.Context, driverID uuid.UUID, draft ride.Draft) (ride.Ride, error) {
	now := s.now()
	params, err := draft.Params(ride.NewDriverOrigin(driverID), "", now)
	if err != nil {
		return ride.Ride{}, err
	}
	r, err := ride.New(params, now)
	if err != nil {
		return ride.Ride{}, err
	}
	if err := s.rides.Save(ctx, &r); err != nil {
		return ride.Ride{}, err
	}

	metrics.RidesCreatedTotal.WithLabelValues(string(ride.DriverOriginated)).Inc()
	s.logger.Info("Ride created",
		logger.UUID("ride_id", r.ID),
		logger.UUID("driver_id", driverID),
		logger.Int("seats", r.Seats.Len()),
	)
	events.Emit(ctx, s.publisher, s.logger, events.RideCreated, r.ID.String(), r)
	return r, nil
}

// Get returns a ride by ID
func (s *Service) Get(ctx context.Context, rideID uuid.UUID) (*ride.Ride, error) {
	return s.rides.FindByID(ctx, rideID)
}

// Start puts the ride on the road
func (s *Service) Start(ctx context.Context, rideID, actorID uuid.UUID) (ride.Ride, error) {
	return s.transition(ctx, rideID, actorID, ride.StatusOnTheRoad, events.RideStarted, ride.Ride.Start)
}

// Cancel withdraws a pending ride
func (s *Service) Cancel(ctx context.Context, rideID, actorID uuid.UUID) (ride.Ride, error) {
	return s.transition(ctx, rideID, actorID, ride.StatusCanceled, events.RideCanceled, ride.Ride.Cancel)
}

// Finish completes a ride on the road
func (s *Service) Finish(ctx context.Context, rideID, actorID uuid.UUID) (ride.Ride, error) {
	return s.transition(ctx, rideID, actorID, ride.StatusEndedSuccessfully, events.RideFinished, ride.Ride.Finish)
}

func (s *Service) transition(
	ctx context.Context,
	rideID, actorID uuid.UUID,
	target ride.Status,
	eventType string,
	apply func(ride.Ride, time.Time) (ride.Ride, error),
) (ride.Ride, error) {
	current, err := s.managed(ctx, rideID, actorID)
	if err != nil {
		return ride.Ride{}, err
	}

	next, err := apply(*current, s.now())
	if err != nil {
		metrics.RideTransitionsTotal.WithLabelValues(string(target), metrics.OutcomeRejected).Inc()
		s.logger.Warn("Ride transition rejected",
			logger.UUID("ride_id", rideID),
			logger.String("from", string(current.Status)),
			logger.String("to", string(target)),
		)
		return ride.Ride{}, err
	}

	if err := s.rides.UpdateStatus(ctx, &next); err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, ride.ErrConflict) {
			outcome = metrics.OutcomeConflict
			s.logger.Warn("Ride transition lost a concurrent update",
				logger.UUID("ride_id", rideID),
				logger.String("to", string(target)),
			)
		}
		metrics.RideTransitionsTotal.WithLabelValues(string(target), outcome).Inc()
		return ride.Ride{}, err
	}

	metrics.RideTransitionsTotal.WithLabelValues(string(target), metrics.OutcomeSuccess).Inc()
	s.nr.RecordRideTransition(rideID.String(), string(target))
	s.logger.Info("Ride status changed",
		logger.UUID("ride_id", rideID),
		logger.String("status", string(target)),
	)

	change := StatusChange{RideID: rideID, Status: next.Status}
	if s.notifier != nil {
		s.notifier.NotifyRide(rideID, websocket.TypeRideStatusChanged, change)
	}
	events.Emit(ctx, s.publisher, s.logger, eventType, rideID.String(), change)
	return next, nil
}

// AddRule adds a passenger rule to the ride
func (s *Service) AddRule(ctx context.Context, rideID, actorID uuid.UUID, rule ride.Rule) (ride.Ride, error) {
	return s.changeRules(ctx, rideID, actorID, func(r ride.Ride, now time.Time) (ride.Ride, error) {
		return r.AddRule(rule, now)
	})
}

// RemoveRule removes a passenger rule from the ride
func (s *Service) RemoveRule(ctx context.Context, rideID, actorID uuid.UUID, rule ride.Rule) (ride.Ride, error) {
	return s.changeRules(ctx, rideID, actorID, func(r ride.Ride, now time.Time) (ride.Ride, error) {
		return r.RemoveRule(rule, now)
	})
}

func (s *Service) changeRules(ctx context.Context, rideID, actorID uuid.UUID, apply func(ride.Ride, time.Time) (ride.Ride, error)) (ride.Ride, error) {
	current, err := s.managed(ctx, rideID, actorID)
	if err != nil {
		return ride.Ride{}, err
	}
	next, err := apply(*current, s.now())
	if err != nil {
		return ride.Ride{}, err
	}
	if err := s.rides.UpdateRules(ctx, &next); err != nil {
		return ride.Ride{}, err
	}

	s.logger.Info("Ride rules changed",
		logger.UUID("ride_id", rideID),
		logger.Strings("rules", next.Rules.Strings()),
	)
	events.Emit(ctx, s.publisher, s.logger, events.RideRulesChanged, rideID.String(), map[string]interface{}{
		"ride_id": rideID,
		"rules":   next.Rules,
	})
	return next, nil
}

// managed loads a ride and checks actorID is its originating party
func (s *Service) managed(ctx context.Context, rideID, actorID uuid.UUID) (*ride.Ride, error) {
	r, err := s.rides.FindByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !r.Origin.IsManagedBy(actorID) {
		s.logger.Warn("Ride change by non-manager refused",
			logger.UUID("ride_id", rideID),
			logger.UUID("actor_id", actorID),
		)
		return nil, ride.ErrForbidden
	}
	return r, nil
}

// ListByDriver lists rides of a driver
func (s *Service) ListByDriver(ctx context.Context, driverID uuid.UUID, page ride.Page) ([]*ride.Ride, error) {
	return s.rides.FindByDriver(ctx, driverID, page)
}

// ListByOwner lists rides created from an owner's proposals
func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID, page ride.Page) ([]*ride.Ride, error) {
	return s.rides.FindByOwner(ctx, ownerID, page)
}

// ListByDate lists rides departing on the day of day
func (s *Service) ListByDate(ctx context.Context, day time.Time, page ride.Page) ([]*ride.Ride, error) {
	return s.rides.FindByDate(ctx, day, page)
}
