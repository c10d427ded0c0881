package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gocomet/rideshare/internal/domain/ride"
	"github.com/gocomet/rideshare/internal/repository/memory"
	"github.com/gocomet/rideshare/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time {
	return testNow
}

func seedRide(t *testing.T, store *memory.Store, seats []ride.SeatStatus) ride.Ride {
	t.Helper()
	params, err := ride.Draft{
		From:         ride.Location{Description: "Station", Latitude: 50, Longitude: 30},
		To:           ride.Location{Description: "Lake", Latitude: 51, Longitude: 31},
		Start:        testNow.Add(time.Hour),
		End:          testNow.Add(3 * time.Hour),
		PricePerSeat: 4000,
		Seats:        seats,
	}.Params(ride.NewDriverOrigin(uuid.New()), "", testNow)
	require.NoError(t, err)

	r, err := ride.New(params, testNow)
	require.NoError(t, err)
	require.NoError(t, store.Rides().Save(context.Background(), &r))
	return r
}

func newEngine(store *memory.Store, tx ride.Transactor) *Engine {
	if tx == nil {
		tx = store
	}
	return NewEngine(store.Rides(), store.Contracts(), tx, nil, nil, nil, logger.NewNop(), Config{Now: clock})
}

func seat(i int, status ride.SeatStatus) ride.BookedSeats {
	return ride.BookedSeats{{Index: i, Status: status}}
}

// TestEngine_Book tests the booking scenario end to end
func TestEngine_Book(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	r := seedRide(t, store, []ride.SeatStatus{ride.SeatDriver, ride.SeatEmpty, ride.SeatEmpty, ride.SeatEmpty})
	engine := newEngine(store, nil)
	passenger := uuid.New()

	contract, err := engine.Book(ctx, r.ID, passenger, ride.BookedSeats{
		{Index: 1, Status: ride.SeatMaleOccupied},
		{Index: 3, Status: ride.SeatFemaleOccupied},
	})
	require.NoError(t, err)

	assert.Equal(t, r.ID, contract.RideID)
	assert.Equal(t, passenger, contract.PassengerID)
	assert.Equal(t, ride.Price(4000), contract.PricePerSeat)
	assert.Equal(t, ride.Price(8000), contract.Total())

	stored, err := store.Rides().FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []ride.SeatStatus{
		ride.SeatDriver, ride.SeatMaleOccupied, ride.SeatEmpty, ride.SeatFemaleOccupied,
	}, stored.Seats.Seats())
	assert.Equal(t, int64(2), stored.Version)

	got, err := engine.GetContract(ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, contract.ID, got.ID)

	byRide, err := engine.ListContractsByRide(ctx, r.ID, ride.Page{})
	require.NoError(t, err)
	assert.Len(t, byRide, 1)

	byPassenger, err := engine.ListContractsByPassenger(ctx, passenger, ride.Page{})
	require.NoError(t, err)
	assert.Len(t, byPassenger, 1)
}

// TestEngine_Book_Rejections tests that refused bookings change nothing
func TestEngine_Book_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		seats   ride.BookedSeats
		prepare func(t *testing.T, store *memory.Store, r ride.Ride)
		wantErr error
	}{
		{
			name: "One of the seats is taken",
			seats: ride.BookedSeats{
				{Index: 2, Status: ride.SeatMaleOccupied},
				{Index: 1, Status: ride.SeatMaleOccupied},
			},
			wantErr: ride.ErrSeatUnavailable,
		},
		{
			name:    "Driver seat",
			seats:   seat(0, ride.SeatMaleOccupied),
			wantErr: ride.ErrInvalidBooking,
		},
		{
			name:    "Out of range",
			seats:   seat(9, ride.SeatMaleOccupied),
			wantErr: ride.ErrInvalidBooking,
		},
		{
			name:    "Negative index",
			seats:   seat(-1, ride.SeatMaleOccupied),
			wantErr: ride.ErrInvalidBooking,
		},
		{
			name:    "Empty request",
			seats:   ride.BookedSeats{},
			wantErr: ride.ErrInvalidBooking,
		},
		{
			name:    "Non occupant status",
			seats:   seat(2, ride.SeatEmpty),
			wantErr: ride.ErrInvalidBooking,
		},
		{
			name:  "Ride already started",
			seats: seat(2, ride.SeatMaleOccupied),
			prepare: func(t *testing.T, store *memory.Store, r ride.Ride) {
				started, err := r.Start(testNow)
				require.NoError(t, err)
				require.NoError(t, store.Rides().UpdateStatus(context.Background(), &started))
			},
			wantErr: ride.ErrRideNotBookable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.NewStore()
			r := seedRide(t, store, []ride.SeatStatus{ride.SeatDriver, ride.SeatFemaleOccupied, ride.SeatEmpty})
			if tt.prepare != nil {
				tt.prepare(t, store, r)
			}
			before, err := store.Rides().FindByID(ctx, r.ID)
			require.NoError(t, err)

			engine := newEngine(store, nil)
			_, err = engine.Book(ctx, r.ID, uuid.New(), tt.seats)
			assert.ErrorIs(t, err, tt.wantErr)

			after, err := store.Rides().FindByID(ctx, r.ID)
			require.NoError(t, err)
			assert.Equal(t, before.Seats.Seats(), after.Seats.Seats())
			assert.Equal(t, before.Version, after.Version)

			contracts, err := engine.ListContractsByRide(ctx, r.ID, ride.Page{})
			require.NoError(t, err)
			assert.Empty(t, contracts)
		})
	}
}

// TestEngine_Book_UnknownRide tests the not found path
func TestEngine_Book_UnknownRide(t *testing.T) {
	engine := newEngine(memory.NewStore(), nil)
	_, err := engine.Book(context.Background(), uuid.New(), uuid.New(), seat(1, ride.SeatMaleOccupied))
	assert.ErrorIs(t, err, ride.ErrRideNotFound)
}

// TestEngine_Book_DriverCannotBookOwnRide tests self booking is refused
func TestEngine_Book_DriverCannotBookOwnRide(t *testing.T) {
	store := memory.NewStore()
	r := seedRide(t, store, []ride.SeatStatus{ride.SeatDriver, ride.SeatEmpty})
	engine := newEngine(store, nil)

	_, err := engine.Book(context.Background(), r.ID, r.Origin.DriverID, seat(1, ride.SeatMaleOccupied))
	assert.ErrorIs(t, err, ride.ErrInvalidBooking)
}

// TestEngine_Book_LastSeatRace tests two passengers racing for one seat
func TestEngine_Book_LastSeatRace(t *testing.T) {
	for i := 0; i < 20; i++ {
		ctx := context.Background()
		store := memory.NewStore()
		r := seedRide(t, store, []ride.SeatStatus{ride.SeatDriver, ride.SeatEmpty})
		engine := newEngine(store, nil)

		var wg sync.WaitGroup
		results := make([]error, 2)
		for j := range results {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				_, results[j] = engine.Book(ctx, r.ID, uuid.New(), seat(1, ride.SeatFemaleOccupied))
			}(j)
		}
		wg.Wait()

		var won, lost int
		for _, err := range results {
			switch {
			case err == nil:
				won++
			case errors.Is(err, ride.ErrSeatUnavailable):
				lost++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, won)
		assert.Equal(t, 1, lost)

		contracts, err := engine.ListContractsByRide(ctx, r.ID, ride.Page{})
		require.NoError(t, err)
		assert.Len(t, contracts, 1)
	}
}

// TestEngine_Book_ManyPassengers tests seats are never double booked under load
func TestEngine_Book_ManyPassengers(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	layout := make([]ride.SeatStatus, 9)
	layout[0] = ride.SeatDriver
	for i := 1; i < len(layout); i++ {
		layout[i] = ride.SeatEmpty
	}
	r := seedRide(t, store, layout)
	engine := NewEngine(store.Rides(), store.Contracts(), store, nil, nil, nil, logger.NewNop(), Config{MaxAttempts: 50, Now: clock})

	var wg sync.WaitGroup
	for p := 0; p < 16; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			_, _ = engine.Book(ctx, r.ID, uuid.New(), seat(1+p%8, ride.SeatMaleOccupied))
		}(p)
	}
	wg.Wait()

	contracts, err := engine.ListContractsByRide(ctx, r.ID, ride.Page{})
	require.NoError(t, err)

	taken := make(map[int]bool)
	for _, c := range contracts {
		for _, idx := range c.BookedSeats.Indexes() {
			assert.False(t, taken[idx], "seat %d booked twice", idx)
			taken[idx] = true
		}
	}
	stored, err := store.Rides().FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Seats.OccupiedIndexes(), len(taken))
}

type conflictingTx struct {
	calls int
}

func (c *conflictingTx) WithinTx(ctx context.Context, fn func(ride.Repository, ride.ContractRepository) error) error {
	c.calls++
	return ride.ErrConflict
}

// TestEngine_Book_RetriesExhausted tests the attempt bound
func TestEngine_Book_RetriesExhausted(t *testing.T) {
	store := memory.NewStore()
	r := seedRide(t, store, []ride.SeatStatus{ride.SeatDriver, ride.SeatEmpty})
	tx := &conflictingTx{}
	engine := newEngine(store, tx)

	_, err := engine.Book(context.Background(), r.ID, uuid.New(), seat(1, ride.SeatMaleOccupied))
	assert.ErrorIs(t, err, ride.ErrConflict)
	assert.Equal(t, DefaultMaxAttempts, tx.calls)
}
