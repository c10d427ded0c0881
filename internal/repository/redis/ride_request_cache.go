package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gocomet/rideshare/internal/domain/riderequest"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ride_request:"

// takeIfMatches deletes and returns KEYS[1] only if its payload carries the
// id needle in ARGV[1]. The needle is `"id":"<uuid>"`, which cannot match
// inside "driver_id" or "owner_id".
var takeIfMatches = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
	return false
end
if string.find(v, ARGV[1], 1, true) then
	redis.call('DEL', KEYS[1])
	return v
end
return false
`)

// RideRequestCache stores pending ride requests in Redis, one key per driver
type RideRequestCache struct {
	client redis.UniversalClient
}

// NewRideRequestCache creates a cache on client
func NewRideRequestCache(client redis.UniversalClient) *RideRequestCache {
	return &RideRequestCache{client: client}
}

func key(driverID uuid.UUID) string {
	return keyPrefix + driverID.String()
}

// Put stores req under its driver with ttl, replacing any pending request
func (c *RideRequestCache) Put(ctx context.Context, req *riderequest.RideRequest, ttl time.Duration) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode ride request: %w", err)
	}
	if err := c.client.Set(ctx, key(req.DriverID), data, ttl).Err(); err != nil {
		return fmt.Errorf("store ride request: %w", err)
	}
	return nil
}

// Get returns the pending request of a driver
func (c *RideRequestCache) Get(ctx context.Context, driverID uuid.UUID) (*riderequest.RideRequest, error) {
	data, err := c.client.Get(ctx, key(driverID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, riderequest.ErrRideRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ride request: %w", err)
	}
	return decode(data)
}

// GetAndDelete consumes the pending request if it is requestID
func (c *RideRequestCache) GetAndDelete(ctx context.Context, driverID, requestID uuid.UUID) (*riderequest.RideRequest, error) {
	needle := fmt.Sprintf(`"id":%q`, requestID.String())
	data, err := takeIfMatches.Run(ctx, c.client, []string{key(driverID)}, needle).Text()
	if errors.Is(err, redis.Nil) {
		return nil, riderequest.ErrRideRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take ride request: %w", err)
	}

	req, err := decode([]byte(data))
	if err != nil {
		return nil, err
	}
	if req.ID != requestID {
		return nil, riderequest.ErrRideRequestNotFound
	}
	return req, nil
}

func decode(data []byte) (*riderequest.RideRequest, error) {
	var req riderequest.RideRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode ride request: %w", err)
	}
	return &req, nil
}
