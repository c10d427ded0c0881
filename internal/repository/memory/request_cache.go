package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gocomet/rideshare/internal/domain/riderequest"
	"github.com/google/uuid"
)

type cachedRequest struct {
	req       riderequest.RideRequest
	expiresAt time.Time
}

// RequestCache is an in-process ride request cache with per-key expiry
type RequestCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]cachedRequest
	now     func() time.Time
}

// NewRequestCache creates a cache reading time from now (time.Now if nil)
func NewRequestCache(now func() time.Time) *RequestCache {
	if now == nil {
		now = time.Now
	}
	return &RequestCache{
		entries: make(map[uuid.UUID]cachedRequest),
		now:     now,
	}
}

func (c *RequestCache) Put(ctx context.Context, req *riderequest.RideRequest, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[req.DriverID] = cachedRequest{req: *req, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *RequestCache) Get(ctx context.Context, driverID uuid.UUID) (*riderequest.RideRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.live(driverID)
	if !ok {
		return nil, riderequest.ErrRideRequestNotFound
	}
	req := entry.req
	return &req, nil
}

func (c *RequestCache) GetAndDelete(ctx context.Context, driverID, requestID uuid.UUID) (*riderequest.RideRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.live(driverID)
	if !ok || entry.req.ID != requestID {
		return nil, riderequest.ErrRideRequestNotFound
	}
	delete(c.entries, driverID)
	req := entry.req
	return &req, nil
}

// live returns the unexpired entry, evicting it if it has expired. Caller holds mu.
func (c *RequestCache) live(driverID uuid.UUID) (cachedRequest, bool) {
	entry, ok := c.entries[driverID]
	if !ok {
		return cachedRequest{}, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, driverID)
		return cachedRequest{}, false
	}
	return entry, true
}
