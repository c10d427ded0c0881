package riderequest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocomet/rideshare/internal/domain/fleet"
	"github.com/gocomet/rideshare/internal/domain/ride"
	"github.com/gocomet/rideshare/internal/domain/riderequest"
	"github.com/gocomet/rideshare/internal/repository/memory"
	"github.com/gocomet/rideshare/pkg/logger"
	"github.com/gocomet/rideshare/pkg/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[uuid.UUID][]string
}

func (n *recordingNotifier) NotifyUser(userID uuid.UUID, msgType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent[userID] = append(n.sent[userID], msgType)
}

type fixture struct {
	channel  *Channel
	clock    *fakeClock
	store    *memory.Store
	fleet    *memory.FleetDirectory
	notifier *recordingNotifier
	ownerID  uuid.UUID
	driverID uuid.UUID
	plate    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 8, 3, 7, 30, 0, 0, time.UTC)}
	store := memory.NewStore()
	directory := memory.NewFleetDirectory(store)
	notifier := &recordingNotifier{sent: make(map[uuid.UUID][]string)}

	f := &fixture{
		clock:    clock,
		store:    store,
		fleet:    directory,
		notifier: notifier,
		ownerID:  uuid.New(),
		driverID: uuid.New(),
		plate:    "KZ 001 AAA",
	}
	directory.PutCar(fleet.Car{LicensePlate: f.plate, OwnerID: f.ownerID})
	directory.PutDriver(fleet.Driver{ID: f.driverID, Available: true})

	f.channel = NewChannel(
		memory.NewRequestCache(clock.Now),
		store.Rides(),
		directory,
		nil,
		notifier,
		nil,
		logger.NewNop(),
		Config{TTL: riderequest.DefaultTTL, Now: clock.Now},
	)
	return f
}

func (f *fixture) input() ProposeInput {
	now := f.clock.Now()
	return ProposeInput{
		OwnerID:      f.ownerID,
		DriverID:     f.driverID,
		LicensePlate: f.plate,
		Ride: ride.Draft{
			From:         ride.Location{Description: "Depot", Latitude: 40, Longitude: 70},
			To:           ride.Location{Description: "Mall", Latitude: 41, Longitude: 71},
			Start:        now.Add(time.Hour),
			End:          now.Add(2 * time.Hour),
			PricePerSeat: 900,
			Seats:        []ride.SeatStatus{ride.SeatDriver, ride.SeatEmpty, ride.SeatEmpty, ride.SeatEmpty},
		},
	}
}

// TestChannel_ProposeAndAccept tests the happy path
func TestChannel_ProposeAndAccept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req, err := f.channel.Propose(ctx, f.input())
	require.NoError(t, err)
	assert.Equal(t, []string{websocket.TypeRideRequestProposed}, f.notifier.sent[f.driverID])

	pending, err := f.channel.ListPending(ctx, f.driverID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)

	r, err := f.channel.Accept(ctx, f.driverID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.StatusPending, r.Status)
	assert.True(t, r.Origin.IsOwnerCreated())
	assert.Equal(t, f.driverID, r.Origin.DriverID)
	assert.True(t, r.Origin.IsManagedBy(f.ownerID))
	assert.Equal(t, "KZ 001 AAA", r.CarPlate)
	assert.Equal(t, []string{websocket.TypeRideRequestAccepted}, f.notifier.sent[f.ownerID])

	stored, err := f.store.Rides().FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, stored.ID)

	pending, err = f.channel.ListPending(ctx, f.driverID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.channel.Accept(ctx, f.driverID, req.ID)
	assert.ErrorIs(t, err, riderequest.ErrRideRequestNotFound)
}

// TestChannel_Propose_FleetChecks tests proposals the fleet refuses
func TestChannel_Propose_FleetChecks(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *fixture, in *ProposeInput)
		wantErr error
	}{
		{
			name:    "Unknown car",
			mutate:  func(f *fixture, in *ProposeInput) { in.LicensePlate = "NONE" },
			wantErr: fleet.ErrCarNotFound,
		},
		{
			name:    "Someone else's car",
			mutate:  func(f *fixture, in *ProposeInput) { in.OwnerID = uuid.New() },
			wantErr: fleet.ErrNotCarOwner,
		},
		{
			name:    "Unknown driver",
			mutate:  func(f *fixture, in *ProposeInput) { in.DriverID = uuid.New() },
			wantErr: fleet.ErrDriverNotFound,
		},
		{
			name: "Inactive driver",
			mutate: func(f *fixture, in *ProposeInput) {
				f.fleet.PutDriver(fleet.Driver{ID: f.driverID, Available: false})
			},
			wantErr: fleet.ErrDriverUnavailable,
		},
		{
			name:    "Departure in the past",
			mutate:  func(f *fixture, in *ProposeInput) { in.Ride.Start = f.clock.Now().Add(-time.Minute) },
			wantErr: ride.ErrInvalidSchedule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := f.input()
			tt.mutate(f, &in)

			_, err := f.channel.Propose(context.Background(), in)
			assert.ErrorIs(t, err, tt.wantErr)

			pending, err := f.channel.ListPending(context.Background(), f.driverID)
			require.NoError(t, err)
			assert.Empty(t, pending)
		})
	}
}

// TestChannel_Propose_RideOnTheRoad tests a started ride takes its car and
// driver out of the fleet until it ends
func TestChannel_Propose_RideOnTheRoad(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req, err := f.channel.Propose(ctx, f.input())
	require.NoError(t, err)
	accepted, err := f.channel.Accept(ctx, f.driverID, req.ID)
	require.NoError(t, err)

	// still pending, nothing is on the road yet
	_, err = f.channel.Propose(ctx, f.input())
	require.NoError(t, err)

	started, err := accepted.Start(f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.Rides().UpdateStatus(ctx, &started))

	otherDriver := uuid.New()
	f.fleet.PutDriver(fleet.Driver{ID: otherDriver, Available: true})
	in := f.input()
	in.DriverID = otherDriver
	_, err = f.channel.Propose(ctx, in)
	assert.ErrorIs(t, err, fleet.ErrCarUnavailable)

	otherPlate := "kz 002 bbb"
	f.fleet.PutCar(fleet.Car{LicensePlate: otherPlate, OwnerID: f.ownerID})
	in = f.input()
	in.LicensePlate = otherPlate
	_, err = f.channel.Propose(ctx, in)
	assert.ErrorIs(t, err, fleet.ErrDriverUnavailable)

	pending, err := f.channel.ListPending(ctx, otherDriver)
	require.NoError(t, err)
	assert.Empty(t, pending)

	finished, err := started.Finish(f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.Rides().UpdateStatus(ctx, &finished))

	_, err = f.channel.Propose(ctx, in)
	assert.NoError(t, err)
}

// TestChannel_LastProposalWins tests a second proposal replaces the first
func TestChannel_LastProposalWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.channel.Propose(ctx, f.input())
	require.NoError(t, err)
	second, err := f.channel.Propose(ctx, f.input())
	require.NoError(t, err)

	pending, err := f.channel.ListPending(ctx, f.driverID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	_, err = f.channel.Accept(ctx, f.driverID, first.ID)
	assert.ErrorIs(t, err, riderequest.ErrRideRequestNotFound)

	// a stale accept must not destroy the live proposal
	_, err = f.channel.Accept(ctx, f.driverID, second.ID)
	assert.NoError(t, err)
}

// TestChannel_Expiry tests a proposal cannot be accepted after its TTL
func TestChannel_Expiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req, err := f.channel.Propose(ctx, f.input())
	require.NoError(t, err)

	f.clock.Advance(riderequest.DefaultTTL - time.Second)
	pending, err := f.channel.ListPending(ctx, f.driverID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	f.clock.Advance(2 * time.Second)
	pending, err = f.channel.ListPending(ctx, f.driverID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.channel.Accept(ctx, f.driverID, req.ID)
	assert.ErrorIs(t, err, riderequest.ErrRideRequestNotFound)

	rides, err := f.store.Rides().FindByDriver(ctx, f.driverID, ride.Page{})
	require.NoError(t, err)
	assert.Empty(t, rides)
}

// TestChannel_ConcurrentAccept tests at most one ride is created per proposal
func TestChannel_ConcurrentAccept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req, err := f.channel.Propose(ctx, f.input())
	require.NoError(t, err)

	const workers = 32
	var (
		wg       sync.WaitGroup
		accepted int32
		missing  int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.channel.Accept(ctx, f.driverID, req.ID)
			switch {
			case err == nil:
				atomic.AddInt32(&accepted, 1)
			case errors.Is(err, riderequest.ErrRideRequestNotFound):
				atomic.AddInt32(&missing, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted)
	assert.Equal(t, int32(workers-1), missing)

	rides, err := f.store.Rides().FindByOwner(ctx, f.ownerID, ride.Page{})
	require.NoError(t, err)
	assert.Len(t, rides, 1)
}
