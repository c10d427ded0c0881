package ride

import "time"

// Draft is ride input as received from a client, before validation
type Draft struct {
	From              Location
	To                Location
	Stops             []Location
	Start             time.Time
	End               time.Time
	PricePerSeat      Price
	Seats             []SeatStatus
	Description       string
	Rules             []Rule
	DeliveryAvailable bool
	DeliveryPrice     *Price
}

// Params validates the draft and returns the parameters of a ride run by origin
func (d Draft) Params(origin Origin, carPlate string, now time.Time) (Params, error) {
	if err := origin.Validate(); err != nil {
		return Params{}, err
	}
	route, err := NewRoute(d.From, d.To, d.Stops)
	if err != nil {
		return Params{}, err
	}
	schedule, err := NewSchedule(d.Start, d.End, now)
	if err != nil {
		return Params{}, err
	}
	seats, err := NewSeatMap(d.Seats)
	if err != nil {
		return Params{}, err
	}
	if err := d.PricePerSeat.Validate(); err != nil {
		return Params{}, err
	}
	rules, err := NewRuleSet(d.Rules...)
	if err != nil {
		return Params{}, err
	}

	return Params{
		Origin:            origin,
		CarPlate:          carPlate,
		Route:             route,
		Schedule:          schedule,
		PricePerSeat:      d.PricePerSeat,
		Seats:             seats,
		Description:       d.Description,
		Rules:             rules,
		DeliveryAvailable: d.DeliveryAvailable,
		DeliveryPrice:     d.DeliveryPrice,
	}, nil
}
