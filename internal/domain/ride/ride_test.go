package ride

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestRide(t *testing.T, origin Origin, seats int) Ride {
	t.Helper()
	route, err := NewRoute(bratislava, vienna, nil)
	require.NoError(t, err)
	schedule, err := NewSchedule(testNow.Add(2*time.Hour), testNow.Add(3*time.Hour), testNow)
	require.NoError(t, err)
	seatMap, err := NewEmptySeatMap(seats)
	require.NoError(t, err)

	r, err := New(Params{
		Origin:       origin,
		Route:        route,
		Schedule:     schedule,
		PricePerSeat: 1500,
		Seats:        seatMap,
		Rules:        RuleSet{RuleNoSmoking},
	}, testNow)
	require.NoError(t, err)
	return r
}

func TestNew(t *testing.T) {
	driverID := uuid.New()
	r := newTestRide(t, NewDriverOrigin(driverID), 4)

	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, testNow, r.CreatedAt)
	assert.True(t, r.IsBookable())
	assert.True(t, r.Origin.IsManagedBy(driverID))
}

func TestNew_Invalid(t *testing.T) {
	route, _ := NewRoute(bratislava, vienna, nil)
	schedule, _ := NewSchedule(testNow.Add(time.Hour), testNow.Add(2*time.Hour), testNow)
	seats, _ := NewEmptySeatMap(3)
	delivery := Price(300)
	valid := Params{
		Origin:       NewDriverOrigin(uuid.New()),
		Route:        route,
		Schedule:     schedule,
		PricePerSeat: 1000,
		Seats:        seats,
	}

	tests := []struct {
		name   string
		mutate func(p *Params)
		err    error
	}{
		{"Missing driver", func(p *Params) { p.Origin = NewDriverOrigin(uuid.Nil) }, ErrInvalidOrigin},
		{"Missing route", func(p *Params) { p.Route = Route{} }, ErrInvalidRoute},
		{"Past schedule", func(p *Params) { p.Schedule = Schedule{Start: testNow.Add(-time.Hour), End: testNow} }, ErrInvalidSchedule},
		{"Missing seats", func(p *Params) { p.Seats = SeatMap{} }, ErrInvalidSeatLayout},
		{"Negative price", func(p *Params) { p.PricePerSeat = -1 }, ErrInvalidPrice},
		{"Delivery without price", func(p *Params) { p.DeliveryAvailable = true }, ErrInvalidPrice},
		{"Delivery price without delivery", func(p *Params) { p.DeliveryPrice = &delivery }, ErrInvalidPrice},
		{"Unknown rule", func(p *Params) { p.Rules = RuleSet{"NO_TALKING"} }, ErrInvalidRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			_, err := New(p, testNow)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestRide_Transitions(t *testing.T) {
	later := testNow.Add(time.Minute)

	t.Run("Start then finish", func(t *testing.T) {
		r := newTestRide(t, NewDriverOrigin(uuid.New()), 3)

		started, err := r.Start(later)
		require.NoError(t, err)
		assert.Equal(t, StatusOnTheRoad, started.Status)
		assert.Equal(t, StatusPending, r.Status)
		assert.False(t, started.IsBookable())

		_, err = started.Start(later)
		assert.ErrorIs(t, err, ErrInvalidRideTransition)
		_, err = started.Cancel(later)
		assert.ErrorIs(t, err, ErrInvalidRideTransition)

		finished, err := started.Finish(later)
		require.NoError(t, err)
		assert.Equal(t, StatusEndedSuccessfully, finished.Status)
		assert.True(t, finished.Status.IsTerminal())
	})

	t.Run("Cancel", func(t *testing.T) {
		r := newTestRide(t, NewDriverOrigin(uuid.New()), 3)

		_, err := r.Finish(later)
		assert.ErrorIs(t, err, ErrInvalidRideTransition)

		canceled, err := r.Cancel(later)
		require.NoError(t, err)
		assert.Equal(t, StatusCanceled, canceled.Status)
		assert.Equal(t, later, canceled.UpdatedAt)

		for _, step := range []func(time.Time) (Ride, error){canceled.Start, canceled.Cancel, canceled.Finish} {
			_, err := step(later)
			assert.ErrorIs(t, err, ErrInvalidRideTransition)
		}
	})
}

func TestRide_Rules(t *testing.T) {
	r := newTestRide(t, NewDriverOrigin(uuid.New()), 3)

	next, err := r.AddRule(RuleNoPets, testNow)
	require.NoError(t, err)
	assert.Equal(t, RuleSet{RuleNoPets, RuleNoSmoking}, next.Rules)
	assert.Equal(t, RuleSet{RuleNoSmoking}, r.Rules)

	_, err = next.AddRule(RuleNoPets, testNow)
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = next.AddRule("NO_TALKING", testNow)
	assert.ErrorIs(t, err, ErrInvalidRule)

	removed, err := next.RemoveRule(RuleNoSmoking, testNow)
	require.NoError(t, err)
	assert.Equal(t, RuleSet{RuleNoPets}, removed.Rules)

	_, err = removed.RemoveRule(RuleNoSmoking, testNow)
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestRide_Book(t *testing.T) {
	driverID, passengerID := uuid.New(), uuid.New()
	r := newTestRide(t, NewDriverOrigin(driverID), 4)

	seats := BookedSeats{{Index: 1, Status: SeatMaleOccupied}, {Index: 3, Status: SeatFemaleOccupied}}
	next, contract, err := r.Book(passengerID, seats, testNow)
	require.NoError(t, err)

	assert.Equal(t, []int{2}, next.Seats.AvailableIndexes())
	assert.Equal(t, []int{1, 2, 3}, r.Seats.AvailableIndexes(), "receiver must be unchanged")
	assert.Equal(t, r.ID, contract.RideID)
	assert.Equal(t, passengerID, contract.PassengerID)
	assert.Equal(t, Price(1500), contract.PricePerSeat)
	assert.Equal(t, Price(3000), contract.Total())
	assert.Equal(t, []int{1, 3}, contract.BookedSeats.Indexes())

	seats[0].Index = 2
	assert.Equal(t, 1, contract.BookedSeats[0].Index)
}

func TestRide_Book_AllOrNothing(t *testing.T) {
	driverID := uuid.New()
	r := newTestRide(t, NewDriverOrigin(driverID), 4)
	r, _, err := r.Book(uuid.New(), BookedSeats{{Index: 2, Status: SeatMaleOccupied}}, testNow)
	require.NoError(t, err)
	started, err := r.Start(testNow)
	require.NoError(t, err)

	tests := []struct {
		name      string
		ride      Ride
		passenger uuid.UUID
		seats     BookedSeats
		err       error
	}{
		{"One seat taken", r, uuid.New(), BookedSeats{{Index: 1, Status: SeatMaleOccupied}, {Index: 2, Status: SeatFemaleOccupied}}, ErrSeatUnavailable},
		{"Driver seat", r, uuid.New(), BookedSeats{{Index: 0, Status: SeatMaleOccupied}}, ErrInvalidBooking},
		{"Out of range", r, uuid.New(), BookedSeats{{Index: 9, Status: SeatMaleOccupied}}, ErrInvalidBooking},
		{"Negative index", r, uuid.New(), BookedSeats{{Index: -1, Status: SeatMaleOccupied}}, ErrInvalidBooking},
		{"Valid seat next to out of range", r, uuid.New(), BookedSeats{{Index: 1, Status: SeatMaleOccupied}, {Index: 99, Status: SeatFemaleOccupied}}, ErrInvalidBooking},
		{"Duplicate index", r, uuid.New(), BookedSeats{{Index: 1, Status: SeatMaleOccupied}, {Index: 1, Status: SeatMaleOccupied}}, ErrInvalidBooking},
		{"Non occupant status", r, uuid.New(), BookedSeats{{Index: 1, Status: SeatEmpty}}, ErrInvalidBooking},
		{"No seats", r, uuid.New(), nil, ErrInvalidBooking},
		{"Driver books own ride", r, driverID, BookedSeats{{Index: 1, Status: SeatMaleOccupied}}, ErrInvalidBooking},
		{"Missing passenger", r, uuid.Nil, BookedSeats{{Index: 1, Status: SeatMaleOccupied}}, ErrInvalidBooking},
		{"Ride started", started, uuid.New(), BookedSeats{{Index: 1, Status: SeatMaleOccupied}}, ErrRideNotBookable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.ride.Seats.Seats()
			_, _, err := tt.ride.Book(tt.passenger, tt.seats, testNow)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, before, tt.ride.Seats.Seats())
		})
	}
}

func TestRide_Book_SeatOutOfRange(t *testing.T) {
	r := newTestRide(t, NewDriverOrigin(uuid.New()), 3)

	for _, index := range []int{0, -1, 3, 99} {
		_, _, err := r.Book(uuid.New(), BookedSeats{{Index: index, Status: SeatMaleOccupied}}, testNow)
		assert.ErrorIs(t, err, ErrInvalidBooking, "index %d", index)
		assert.ErrorIs(t, err, ErrInvalidSeatOperation, "index %d", index)
		assert.NotErrorIs(t, err, ErrSeatUnavailable, "index %d", index)
	}
}

func TestRide_JSON(t *testing.T) {
	ownerID := uuid.New()
	r := newTestRide(t, NewOwnerOrigin(uuid.New(), ownerID), 3)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded Ride
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.ID, decoded.ID)
	assert.True(t, r.Seats.Equal(decoded.Seats))
	assert.Equal(t, r.Rules, decoded.Rules)
	require.NotNil(t, decoded.Origin.OwnerID)
	assert.Equal(t, ownerID, *decoded.Origin.OwnerID)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["seats"] = []string{"EMPTY", "EMPTY"}
	tampered, err := json.Marshal(raw)
	require.NoError(t, err)
	assert.ErrorIs(t, json.Unmarshal(tampered, &decoded), ErrInvalidSeatLayout)
}

func TestOrigin(t *testing.T) {
	driverID, ownerID := uuid.New(), uuid.New()

	driven := NewDriverOrigin(driverID)
	require.NoError(t, driven.Validate())
	assert.True(t, driven.IsDriverCreated())
	assert.True(t, driven.IsManagedBy(driverID))
	assert.False(t, driven.IsManagedBy(ownerID))
	assert.False(t, driven.IsManagedBy(uuid.Nil))

	owned := NewOwnerOrigin(driverID, ownerID)
	require.NoError(t, owned.Validate())
	assert.True(t, owned.IsOwnerCreated())
	assert.True(t, owned.IsManagedBy(ownerID))
	assert.False(t, owned.IsManagedBy(driverID))

	assert.ErrorIs(t, Origin{Kind: OwnerOriginated, DriverID: driverID}.Validate(), ErrInvalidOrigin)
	assert.ErrorIs(t, Origin{Kind: DriverOriginated, DriverID: driverID, OwnerID: &ownerID}.Validate(), ErrInvalidOrigin)
	assert.ErrorIs(t, Origin{Kind: "ROBOT", DriverID: driverID}.Validate(), ErrInvalidOrigin)
}

func TestDraft_Params(t *testing.T) {
	draft := Draft{
		From:         bratislava,
		To:           vienna,
		Stops:        []Location{gyor},
		Start:        testNow.Add(time.Hour),
		End:          testNow.Add(2 * time.Hour),
		PricePerSeat: 900,
		Seats:        []SeatStatus{SeatDriver, SeatEmpty, SeatEmpty},
		Rules:        []Rule{RuleNoFood},
	}

	p, err := draft.Params(NewDriverOrigin(uuid.New()), "BA-001AA", testNow)
	require.NoError(t, err)
	assert.Equal(t, "BA-001AA", p.CarPlate)
	assert.Equal(t, 3, p.Seats.Len())
	assert.Equal(t, RuleSet{RuleNoFood}, p.Rules)

	r, err := New(p, testNow)
	require.NoError(t, err)
	assert.Len(t, r.Route.Stops, 1)

	bad := draft
	bad.Seats = []SeatStatus{SeatEmpty, SeatEmpty}
	_, err = bad.Params(NewDriverOrigin(uuid.New()), "", testNow)
	assert.ErrorIs(t, err, ErrInvalidSeatLayout)

	bad = draft
	bad.PricePerSeat = -5
	_, err = bad.Params(NewDriverOrigin(uuid.New()), "", testNow)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = draft.Params(Origin{}, "", testNow)
	assert.ErrorIs(t, err, ErrInvalidOrigin)
}

func TestDayBounds(t *testing.T) {
	from, to := DayBounds(time.Date(2026, 6, 1, 23, 30, 0, 0, time.FixedZone("X", -2*3600)))
	assert.Equal(t, time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, from.Add(24*time.Hour), to)
}

func TestPage_Normalize(t *testing.T) {
	assert.Equal(t, Page{Limit: DefaultPageLimit}, Page{}.Normalize())
	assert.Equal(t, Page{Limit: MaxPageLimit, Offset: 0}, Page{Limit: 1000, Offset: -3}.Normalize())
	assert.Equal(t, Page{Limit: 5, Offset: 10}, Page{Limit: 5, Offset: 10}.Normalize())
}
