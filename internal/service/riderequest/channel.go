package riderequest

import (
	"context"
	"errors"
	"time"

	"github.com/gocomet/rideshare/internal/domain/fleet"
	"github.com/gocomet/rideshare/internal/domain/ride"
	"github.com/gocomet/rideshare/internal/domain/riderequest"
	"github.com/gocomet/rideshare/pkg/events"
	"github.com/gocomet/rideshare/pkg/logger"
	"github.com/gocomet/rideshare/pkg/metrics"
	"github.com/gocomet/rideshare/pkg/monitoring"
	"github.com/gocomet/rideshare/pkg/websocket"
	"github.com/google/uuid"
)

const (
	actionPropose = "propose"
	actionAccept  = "accept"
)

// Notifier pushes real-time updates to connected users
type Notifier interface {
	NotifyUser(userID uuid.UUID, msgType string, data interface{})
}

// Config holds ride request configuration
type Config struct {
	TTL time.Duration
	Now func() time.Time
}

// Channel carries owner proposals to drivers. Each driver has at most one
// pending proposal, and a proposal is turned into a ride at most once.
type Channel struct {
	cache     riderequest.Cache
	rides     ride.Repository
	fleet     fleet.Directory
	publisher events.Publisher
	notifier  Notifier
	nr        *monitoring.NewRelicApp
	logger    *logger.Logger
	config    Config
}

// NewChannel creates a new ride request channel
func NewChannel(
	cache riderequest.Cache,
	rides ride.Repository,
	directory fleet.Directory,
	publisher events.Publisher,
	notifier Notifier,
	nr *monitoring.NewRelicApp,
	log *logger.Logger,
	config Config,
) *Channel {
	if config.TTL <= 0 {
		config.TTL = riderequest.DefaultTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Channel{
		cache:     cache,
		rides:     rides,
		fleet:     directory,
		publisher: publisher,
		notifier:  notifier,
		nr:        nr,
		logger:    log.Named("ride_requests"),
		config:    config,
	}
}

// ProposeInput is an owner's proposal for a driver
type ProposeInput struct {
	OwnerID      uuid.UUID
	DriverID     uuid.UUID
	LicensePlate string
	Ride         ride.Draft
}

// Accepted is pushed to the owner when the driver takes the proposal
type Accepted struct {
	RequestID uuid.UUID `json:"request_id"`
	RideID    uuid.UUID `json:"ride_id"`
	DriverID  uuid.UUID `json:"driver_id"`
}

// Propose validates a proposal and makes it the driver's pending request,
// replacing any earlier one.
func (c *Channel) Propose(ctx context.Context, in ProposeInput) (riderequest.RideRequest, error) {
	if err := fleet.CheckProposal(ctx, c.fleet, in.OwnerID, in.LicensePlate, in.DriverID); err != nil {
		c.count(actionPropose, err)
		return riderequest.RideRequest{}, err
	}

	now := c.config.Now()
	params, err := in.Ride.Params(ride.NewOwnerOrigin(in.DriverID, in.OwnerID), in.LicensePlate, now)
	if err != nil {
		c.count(actionPropose, err)
		return riderequest.RideRequest{}, err
	}
	req, err := riderequest.New(riderequest.Params{
		DriverID:          in.DriverID,
		OwnerID:           in.OwnerID,
		LicensePlate:      in.LicensePlate,
		Route:             params.Route,
		Schedule:          params.Schedule,
		PricePerSeat:      params.PricePerSeat,
		Seats:             params.Seats,
		Description:       params.Description,
		Rules:             params.Rules,
		DeliveryAvailable: params.DeliveryAvailable,
		DeliveryPrice:     params.DeliveryPrice,
	}, c.config.TTL, now)
	if err != nil {
		c.count(actionPropose, err)
		return riderequest.RideRequest{}, err
	}

	if err := c.cache.Put(ctx, &req, c.config.TTL); err != nil {
		c.count(actionPropose, err)
		c.logger.Error("Failed to store ride request", logger.Err(err), logger.UUID("driver_id", in.DriverID))
		return riderequest.RideRequest{}, err
	}

	c.count(actionPropose, nil)
	c.nr.RecordRideRequestProposed(in.DriverID.String())
	c.logger.Info("Ride request proposed",
		logger.UUID("request_id", req.ID),
		logger.UUID("owner_id", in.OwnerID),
		logger.UUID("driver_id", in.DriverID),
		logger.Duration("ttl", c.config.TTL),
	)

	if c.notifier != nil {
		c.notifier.NotifyUser(in.DriverID, websocket.TypeRideRequestProposed, req)
	}
	events.Emit(ctx, c.publisher, c.logger, events.RideRequestProposed, in.DriverID.String(), req)
	return req, nil
}

// ListPending returns the driver's pending request, if any, without consuming it
func (c *Channel) ListPending(ctx context.Context, driverID uuid.UUID) ([]riderequest.RideRequest, error) {
	req, err := c.cache.Get(ctx, driverID)
	if errors.Is(err, riderequest.ErrRideRequestNotFound) {
		return []riderequest.RideRequest{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []riderequest.RideRequest{*req}, nil
}

// Accept consumes the driver's pending request requestID and creates the
// owner-originated ride it describes. Concurrent accepts of one request
// yield exactly one ride; the rest get ErrRideRequestNotFound.
func (c *Channel) Accept(ctx context.Context, driverID, requestID uuid.UUID) (ride.Ride, error) {
	req, err := c.cache.GetAndDelete(ctx, driverID, requestID)
	if err != nil {
		c.count(actionAccept, err)
		return ride.Ride{}, err
	}

	r, err := req.ToRide(c.config.Now())
	if err != nil {
		c.count(actionAccept, err)
		c.logger.Warn("Accepted ride request is no longer valid",
			logger.UUID("request_id", requestID),
			logger.Err(err),
		)
		return ride.Ride{}, err
	}
	if err := c.rides.Save(ctx, &r); err != nil {
		c.count(actionAccept, err)
		c.logger.Error("Failed to save ride from request",
			logger.Err(err),
			logger.UUID("request_id", requestID),
		)
		return ride.Ride{}, err
	}

	c.count(actionAccept, nil)
	metrics.RidesCreatedTotal.WithLabelValues(string(ride.OwnerOriginated)).Inc()
	c.nr.RecordRideRequestAccepted(driverID.String(), r.ID.String())
	c.logger.Info("Ride request accepted",
		logger.UUID("request_id", requestID),
		logger.UUID("ride_id", r.ID),
		logger.UUID("driver_id", driverID),
	)

	accepted := Accepted{RequestID: requestID, RideID: r.ID, DriverID: driverID}
	if c.notifier != nil {
		c.notifier.NotifyUser(req.OwnerID, websocket.TypeRideRequestAccepted, accepted)
	}
	events.Emit(ctx, c.publisher, c.logger, events.RideRequestAccepted, driverID.String(), accepted)
	events.Emit(ctx, c.publisher, c.logger, events.RideCreated, r.ID.String(), r)
	return r, nil
}

func (c *Channel) count(action string, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, riderequest.ErrRideRequestNotFound):
		outcome = metrics.OutcomeConflict
	case isInfrastructure(err):
		outcome = metrics.OutcomeError
	default:
		outcome = metrics.OutcomeRejected
	}
	metrics.RideRequestsTotal.WithLabelValues(action, outcome).Inc()
}

// isInfrastructure reports errors that are not a domain refusal
func isInfrastructure(err error) bool {
	for _, domain := range []error{
		fleet.ErrCarNotFound, fleet.ErrDriverNotFound, fleet.ErrNotCarOwner,
		fleet.ErrCarUnavailable, fleet.ErrDriverUnavailable,
		riderequest.ErrInvalidRideRequest,
		ride.ErrInvalidRoute, ride.ErrInvalidLocation, ride.ErrInvalidSchedule,
		ride.ErrInvalidSeatLayout, ride.ErrInvalidPrice, ride.ErrInvalidRule, ride.ErrInvalidOrigin,
	} {
		if errors.Is(err, domain) {
			return false
		}
	}
	return true
}
