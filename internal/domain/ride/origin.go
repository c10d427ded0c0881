package ride

import (
	"fmt"

	"github.com/google/uuid"
)

// OriginKind tells who created a ride
type OriginKind string

const (
	DriverOriginated OriginKind = "DRIVER"
	OwnerOriginated  OriginKind = "OWNER"
)

// Origin identifies the driver of a ride and, for owner-originated rides,
// the fleet owner on whose behalf the driver operates. Only the originating
// party may manage the ride.
type Origin struct {
	Kind     OriginKind `json:"kind"`
	DriverID uuid.UUID  `json:"driver_id"`
	OwnerID  *uuid.UUID `json:"owner_id,omitempty"`
}

// NewDriverOrigin describes a ride published directly by a driver
func NewDriverOrigin(driverID uuid.UUID) Origin {
	return Origin{Kind: DriverOriginated, DriverID: driverID}
}

// NewOwnerOrigin describes a ride created from an owner's proposal
func NewOwnerOrigin(driverID, ownerID uuid.UUID) Origin {
	return Origin{Kind: OwnerOriginated, DriverID: driverID, OwnerID: &ownerID}
}

// Validate checks the variant is consistent with its tag
func (o Origin) Validate() error {
	if o.DriverID == uuid.Nil {
		return fmt.Errorf("%w: driver is required", ErrInvalidOrigin)
	}
	switch o.Kind {
	case DriverOriginated:
		if o.OwnerID != nil {
			return fmt.Errorf("%w: driver-originated ride cannot have an owner", ErrInvalidOrigin)
		}
	case OwnerOriginated:
		if o.OwnerID == nil || *o.OwnerID == uuid.Nil {
			return fmt.Errorf("%w: owner-originated ride requires an owner", ErrInvalidOrigin)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidOrigin, o.Kind)
	}
	return nil
}

// IsOwnerCreated reports whether the ride came from an owner proposal
func (o Origin) IsOwnerCreated() bool {
	return o.Kind == OwnerOriginated
}

// IsDriverCreated reports whether the driver published the ride
func (o Origin) IsDriverCreated() bool {
	return o.Kind == DriverOriginated
}

// ManagerID returns the principal allowed to manage the ride
func (o Origin) ManagerID() uuid.UUID {
	if o.Kind == OwnerOriginated && o.OwnerID != nil {
		return *o.OwnerID
	}
	return o.DriverID
}

// IsManagedBy reports whether actor is the originating party
func (o Origin) IsManagedBy(actor uuid.UUID) bool {
	return actor != uuid.Nil && o.ManagerID() == actor
}
