package ride

import (
	"fmt"
	"strings"
)

// Location is an opaque coordinate with a human readable description
type Location struct {
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Validate checks the coordinate ranges and description
func (l Location) Validate() error {
	if strings.TrimSpace(l.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidLocation)
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("%w: latitude %f out of range", ErrInvalidLocation, l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("%w: longitude %f out of range", ErrInvalidLocation, l.Longitude)
	}
	return nil
}

// Route is the path of a ride: origin, destination and intermediate stops
type Route struct {
	From  Location   `json:"from"`
	To    Location   `json:"to"`
	Stops []Location `json:"stops"`
}

// NewRoute validates and builds a route. Stops are copied.
func NewRoute(from, to Location, stops []Location) (Route, error) {
	if err := from.Validate(); err != nil {
		return Route{}, fmt.Errorf("%w: from: %v", ErrInvalidRoute, err)
	}
	if err := to.Validate(); err != nil {
		return Route{}, fmt.Errorf("%w: to: %v", ErrInvalidRoute, err)
	}
	if from == to {
		return Route{}, fmt.Errorf("%w: origin and destination are the same", ErrInvalidRoute)
	}

	cp := make([]Location, 0, len(stops))
	for i, stop := range stops {
		if err := stop.Validate(); err != nil {
			return Route{}, fmt.Errorf("%w: stop %d: %v", ErrInvalidRoute, i, err)
		}
		if stop == from || stop == to {
			return Route{}, fmt.Errorf("%w: stop %d repeats origin or destination", ErrInvalidRoute, i)
		}
		cp = append(cp, stop)
	}

	return Route{From: from, To: to, Stops: cp}, nil
}

// IsDirect reports whether the route has no intermediate stops
func (r Route) IsDirect() bool {
	return len(r.Stops) == 0
}

func (r Route) clone() Route {
	stops := make([]Location, len(r.Stops))
	copy(stops, r.Stops)
	r.Stops = stops
	return r
}
