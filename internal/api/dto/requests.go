package dto

import (
	"time"

	"github.com/gocomet/rideshare/internal/domain/ride"
)

// LocationRequest is a point on a route
type LocationRequest struct {
	Description string  `json:"description" binding:"required"`
	Latitude    float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude   float64 `json:"longitude" binding:"min=-180,max=180"`
}

// ToDomain converts the request to a ride location
func (l LocationRequest) ToDomain() ride.Location {
	return ride.Location{Description: l.Description, Latitude: l.Latitude, Longitude: l.Longitude}
}

// RideDetailsRequest describes a ride to publish or propose
type RideDetailsRequest struct {
	From              LocationRequest   `json:"from"`
	To                LocationRequest   `json:"to"`
	Stops             []LocationRequest `json:"stops" binding:"dive"`
	Start             time.Time         `json:"start" binding:"required"`
	End               time.Time         `json:"end" binding:"required"`
	PricePerSeat      int64             `json:"price_per_seat" binding:"min=0"`
	Seats             []string          `json:"seats" binding:"required,min=2,max=64"`
	Description       string            `json:"description" binding:"max=1000"`
	Rules             []string          `json:"rules"`
	DeliveryAvailable bool              `json:"delivery_available"`
	DeliveryPrice     *int64            `json:"delivery_price,omitempty"`
}

// ToDraft converts the request to an unvalidated ride draft
func (r RideDetailsRequest) ToDraft() ride.Draft {
	stops := make([]ride.Location, len(r.Stops))
	for i, s := range r.Stops {
		stops[i] = s.ToDomain()
	}
	seats := make([]ride.SeatStatus, len(r.Seats))
	for i, s := range r.Seats {
		seats[i] = ride.SeatStatus(s)
	}
	rules := make([]ride.Rule, len(r.Rules))
	for i, rule := range r.Rules {
		rules[i] = ride.Rule(rule)
	}
	var delivery *ride.Price
	if r.DeliveryPrice != nil {
		p := ride.Price(*r.DeliveryPrice)
		delivery = &p
	}

	return ride.Draft{
		From:              r.From.ToDomain(),
		To:                r.To.ToDomain(),
		Stops:             stops,
		Start:             r.Start,
		End:               r.End,
		PricePerSeat:      ride.Price(r.PricePerSeat),
		Seats:             seats,
		Description:       r.Description,
		Rules:             rules,
		DeliveryAvailable: r.DeliveryAvailable,
		DeliveryPrice:     delivery,
	}
}

// CreateRideRequest represents a driver publishing a ride
type CreateRideRequest struct {
	RideDetailsRequest
}

// ProposeRideRequest represents an owner proposing a ride to a driver
type ProposeRideRequest struct {
	DriverID     string             `json:"driver_id" binding:"required,uuid"`
	LicensePlate string             `json:"license_plate" binding:"required"`
	Ride         RideDetailsRequest `json:"ride"`
}

// AddRuleRequest represents adding a rule to a ride
type AddRuleRequest struct {
	Rule string `json:"rule" binding:"required"`
}

// SeatRequest is one seat in a booking
type SeatRequest struct {
	Index  int    `json:"index" binding:"min=1"`
	Status string `json:"status" binding:"required,oneof=MALE_OCCUPIED FEMALE_OCCUPIED"`
}

// BookSeatsRequest represents a passenger booking seats
type BookSeatsRequest struct {
	Seats []SeatRequest `json:"seats" binding:"required,min=1,dive"`
}

// ToDomain converts the request to booked seats
func (b BookSeatsRequest) ToDomain() ride.BookedSeats {
	out := make(ride.BookedSeats, len(b.Seats))
	for i, s := range b.Seats {
		out[i] = ride.PassengerSeat{Index: s.Index, Status: ride.SeatStatus(s.Status)}
	}
	return out
}

// ListQuery holds paging parameters
type ListQuery struct {
	Limit  int `form:"limit" binding:"min=0,max=100"`
	Offset int `form:"offset" binding:"min=0"`
}

// Page converts the query to a page
func (q ListQuery) Page() ride.Page {
	return ride.Page{Limit: q.Limit, Offset: q.Offset}.Normalize()
}

// ListRidesQuery selects rides by driver, owner or departure date
type ListRidesQuery struct {
	ListQuery
	DriverID string `form:"driver_id" binding:"omitempty,uuid"`
	OwnerID  string `form:"owner_id" binding:"omitempty,uuid"`
	Date     string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}
