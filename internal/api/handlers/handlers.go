package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/rideshare/internal/domain/ride"
	"github.com/gocomet/rideshare/internal/domain/riderequest"
	requests "github.com/gocomet/rideshare/internal/service/riderequest"
	"github.com/gocomet/rideshare/pkg/logger"
	"github.com/gocomet/rideshare/pkg/websocket"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
)

// RideService publishes rides and drives their lifecycle
type RideService interface {
	Create(ctx context.Context, driverID uuid.UUID, draft ride.Draft) (ride.Ride, error)
	Get(ctx context.Context, rideID uuid.UUID) (*ride.Ride, error)
	Start(ctx context.Context, rideID, actorID uuid.UUID) (ride.Ride, error)
	Cancel(ctx context.Context, rideID, actorID uuid.UUID) (ride.Ride, error)
	Finish(ctx context.Context, rideID, actorID uuid.UUID) (ride.Ride, error)
	AddRule(ctx context.Context, rideID, actorID uuid.UUID, rule ride.Rule) (ride.Ride, error)
	RemoveRule(ctx context.Context, rideID, actorID uuid.UUID, rule ride.Rule) (ride.Ride, error)
	ListByDriver(ctx context.Context, driverID uuid.UUID, page ride.Page) ([]*ride.Ride, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, page ride.Page) ([]*ride.Ride, error)
	ListByDate(ctx context.Context, day time.Time, page ride.Page) ([]*ride.Ride, error)
}

// BookingService books seats and reads contracts
type BookingService interface {
	Book(ctx context.Context, rideID, passengerID uuid.UUID, seats ride.BookedSeats) (ride.Contract, error)
	GetContract(ctx context.Context, id uuid.UUID) (*ride.Contract, error)
	ListContractsByRide(ctx context.Context, rideID uuid.UUID, page ride.Page) ([]*ride.Contract, error)
	ListContractsByPassenger(ctx context.Context, passengerID uuid.UUID, page ride.Page) ([]*ride.Contract, error)
}

// RideRequestService carries owner proposals to drivers
type RideRequestService interface {
	Propose(ctx context.Context, in requests.ProposeInput) (riderequest.RideRequest, error)
	ListPending(ctx context.Context, driverID uuid.UUID) ([]riderequest.RideRequest, error)
	Accept(ctx context.Context, driverID, requestID uuid.UUID) (ride.Ride, error)
}

// Handlers holds all handler dependencies
type Handlers struct {
	Rides    RideService
	Bookings BookingService
	Requests RideRequestService
	Hub      *websocket.Hub
	Logger   *logger.Logger
	upgrader gorilla.Upgrader
}

// UpgraderConfig configures websocket upgrades
type UpgraderConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	AllowedOrigins  []string
}

// NewHandlers creates a new Handlers instance
func NewHandlers(rides RideService, bookings BookingService, reqs RideRequestService, hub *websocket.Hub, log *logger.Logger, ws UpgraderConfig) *Handlers {
	return &Handlers{
		Rides:    rides,
		Bookings: bookings,
		Requests: reqs,
		Hub:      hub,
		Logger:   log,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  ws.ReadBufferSize,
			WriteBufferSize: ws.WriteBufferSize,
			CheckOrigin:     originChecker(ws.AllowedOrigins),
		},
	}
}

// originChecker allows every origin when none are configured
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	connections := 0
	if h.Hub != nil {
		connections = h.Hub.GetActiveConnections()
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "websocket_connections": connections})
}
