package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gocomet/rideshare/internal/domain/ride"
	"github.com/google/uuid"
)

// Store keeps rides and contracts in process memory. It honours the same
// version checks as the Postgres store and is used for local runs and tests.
type Store struct {
	mu        sync.Mutex
	rides     map[uuid.UUID]ride.Ride
	contracts map[uuid.UUID]ride.Contract
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		rides:     make(map[uuid.UUID]ride.Ride),
		contracts: make(map[uuid.UUID]ride.Contract),
	}
}

// Rides returns the ride repository view
func (s *Store) Rides() ride.Repository {
	return &rideRepo{store: s, locking: true}
}

// Contracts returns the contract repository view
func (s *Store) Contracts() ride.ContractRepository {
	return &contractRepo{store: s, locking: true}
}

// WithinTx serializes fn against every other store operation and discards
// its writes if it fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ride.Repository, ride.ContractRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rides := make(map[uuid.UUID]ride.Ride, len(s.rides))
	for k, v := range s.rides {
		rides[k] = v
	}
	contracts := make(map[uuid.UUID]ride.Contract, len(s.contracts))
	for k, v := range s.contracts {
		contracts[k] = v
	}

	if err := fn(&rideRepo{store: s}, &contractRepo{store: s}); err != nil {
		s.rides = rides
		s.contracts = contracts
		return err
	}
	return nil
}

func (s *Store) acquire(locking bool) func() {
	if !locking {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// onTheRoad reports whether a ride on the road matches
func (s *Store) onTheRoad(match func(ride.Ride) bool) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rides {
		if r.Status == ride.StatusOnTheRoad && match(r) {
			return true
		}
	}
	return false
}

type rideRepo struct {
	store   *Store
	locking bool
}

func (r *rideRepo) Save(ctx context.Context, rd *ride.Ride) error {
	defer r.store.acquire(r.locking)()

	if _, ok := r.store.rides[rd.ID]; ok {
		return fmt.Errorf("ride %s already exists", rd.ID)
	}
	rd.Version = 1
	r.store.rides[rd.ID] = *rd
	return nil
}

func (r *rideRepo) FindByID(ctx context.Context, id uuid.UUID) (*ride.Ride, error) {
	defer r.store.acquire(r.locking)()

	stored, ok := r.store.rides[id]
	if !ok {
		return nil, ride.ErrRideNotFound
	}
	return &stored, nil
}

func (r *rideRepo) UpdateSeats(ctx context.Context, rd *ride.Ride) error {
	return r.update(rd, func(stored *ride.Ride) { stored.Seats = rd.Seats })
}

func (r *rideRepo) UpdateStatus(ctx context.Context, rd *ride.Ride) error {
	return r.update(rd, func(stored *ride.Ride) { stored.Status = rd.Status })
}

func (r *rideRepo) UpdateRules(ctx context.Context, rd *ride.Ride) error {
	return r.update(rd, func(stored *ride.Ride) { stored.Rules = rd.Rules })
}

func (r *rideRepo) update(rd *ride.Ride, apply func(stored *ride.Ride)) error {
	defer r.store.acquire(r.locking)()

	stored, ok := r.store.rides[rd.ID]
	if !ok {
		return ride.ErrRideNotFound
	}
	if stored.Version != rd.Version {
		return ride.ErrConflict
	}
	apply(&stored)
	stored.Version++
	stored.UpdatedAt = rd.UpdatedAt
	r.store.rides[rd.ID] = stored
	rd.Version = stored.Version
	return nil
}

func (r *rideRepo) FindByDriver(ctx context.Context, driverID uuid.UUID, page ride.Page) ([]*ride.Ride, error) {
	return r.list(page, true, func(rd ride.Ride) bool { return rd.Origin.DriverID == driverID })
}

func (r *rideRepo) FindByOwner(ctx context.Context, ownerID uuid.UUID, page ride.Page) ([]*ride.Ride, error) {
	return r.list(page, true, func(rd ride.Ride) bool {
		return rd.Origin.OwnerID != nil && *rd.Origin.OwnerID == ownerID
	})
}

func (r *rideRepo) FindByDate(ctx context.Context, day time.Time, page ride.Page) ([]*ride.Ride, error) {
	from, to := ride.DayBounds(day)
	return r.list(page, false, func(rd ride.Ride) bool {
		return !rd.Schedule.Start.Before(from) && rd.Schedule.Start.Before(to)
	})
}

func (r *rideRepo) list(page ride.Page, newestFirst bool, match func(ride.Ride) bool) ([]*ride.Ride, error) {
	defer r.store.acquire(r.locking)()

	var matched []ride.Ride
	for _, rd := range r.store.rides {
		if match(rd) {
			matched = append(matched, rd)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].Schedule.Start, matched[j].Schedule.Start
		if a.Equal(b) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		if newestFirst {
			return a.After(b)
		}
		return a.Before(b)
	})

	page = page.Normalize()
	out := make([]*ride.Ride, 0, page.Limit)
	for i := page.Offset; i < len(matched) && len(out) < page.Limit; i++ {
		rd := matched[i]
		out = append(out, &rd)
	}
	return out, nil
}

type contractRepo struct {
	store   *Store
	locking bool
}

func (r *contractRepo) Save(ctx context.Context, c *ride.Contract) error {
	defer r.store.acquire(r.locking)()

	if _, ok := r.store.contracts[c.ID]; ok {
		return fmt.Errorf("contract %s already exists", c.ID)
	}
	r.store.contracts[c.ID] = *c
	return nil
}

func (r *contractRepo) FindByID(ctx context.Context, id uuid.UUID) (*ride.Contract, error) {
	defer r.store.acquire(r.locking)()

	c, ok := r.store.contracts[id]
	if !ok {
		return nil, ride.ErrContractNotFound
	}
	return &c, nil
}

func (r *contractRepo) FindByRide(ctx context.Context, rideID uuid.UUID, page ride.Page) ([]*ride.Contract, error) {
	return r.list(page, func(c ride.Contract) bool { return c.RideID == rideID })
}

func (r *contractRepo) FindByPassenger(ctx context.Context, passengerID uuid.UUID, page ride.Page) ([]*ride.Contract, error) {
	return r.list(page, func(c ride.Contract) bool { return c.PassengerID == passengerID })
}

func (r *contractRepo) list(page ride.Page, match func(ride.Contract) bool) ([]*ride.Contract, error) {
	defer r.store.acquire(r.locking)()

	var matched []ride.Contract
	for _, c := range r.store.contracts {
		if match(c) {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	page = page.Normalize()
	out := make([]*ride.Contract, 0, page.Limit)
	for i := page.Offset; i < len(matched) && len(out) < page.Limit; i++ {
		c := matched[i]
		out = append(out, &c)
	}
	return out, nil
}
