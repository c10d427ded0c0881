package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gocomet/rideshare/pkg/logger"
	"github.com/google/uuid"
)

// Event types published after a state change is committed
const (
	RideCreated         = "ride.created"
	RideStarted         = "ride.started"
	RideCanceled        = "ride.canceled"
	RideFinished        = "ride.finished"
	RideRulesChanged    = "ride.rules_changed"
	RideSeatsBooked     = "ride.seats_booked"
	RideRequestProposed = "ride_request.proposed"
	RideRequestAccepted = "ride_request.accepted"
)

// Event is a domain notification. Key orders events of one aggregate.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// New creates an event for the aggregate identified by key
func New(eventType, key string, payload interface{}) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Encode serializes the event for the wire
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to a broker
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error {
	return nil
}

func (NopPublisher) Close() error {
	return nil
}

// Emit publishes an event and logs failures. The state change it describes
// is already committed, so delivery errors are not returned.
func Emit(ctx context.Context, pub Publisher, log *logger.Logger, eventType, key string, payload interface{}) {
	if pub == nil {
		return
	}
	event := New(eventType, key, payload)
	if err := pub.Publish(ctx, event); err != nil {
		log.Warn("Failed to publish event",
			logger.Err(err),
			logger.String("type", eventType),
			logger.String("key", key),
		)
	}
}
