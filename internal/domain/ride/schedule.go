package ride

import (
	"fmt"
	"time"
)

// Schedule is the departure/arrival window of a ride
type Schedule struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewSchedule requires the whole window to lie strictly after now.
// Date and time of day are compared as a single instant.
func NewSchedule(start, end, now time.Time) (Schedule, error) {
	if start.IsZero() || end.IsZero() {
		return Schedule{}, fmt.Errorf("%w: start and end are required", ErrInvalidSchedule)
	}
	if !start.After(now) {
		return Schedule{}, fmt.Errorf("%w: start %s is not in the future", ErrInvalidSchedule, start.Format(time.RFC3339))
	}
	if !end.After(start) {
		return Schedule{}, fmt.Errorf("%w: end must be after start", ErrInvalidSchedule)
	}
	return Schedule{Start: start.UTC(), End: end.UTC()}, nil
}

// Duration returns the planned length of the ride
func (s Schedule) Duration() time.Duration {
	return s.End.Sub(s.Start)
}
