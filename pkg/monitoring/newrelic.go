package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// Config holds New Relic configuration
type Config struct {
	LicenseKey string
	AppName    string
	Enabled    bool
	LogLevel   string
}

// NewRelicApp wraps the New Relic application. A nil or disabled app
// silently drops everything recorded on it.
type NewRelicApp struct {
	*newrelic.Application
	enabled bool
}

// New creates a new New Relic application
func New(cfg Config) (*NewRelicApp, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return &NewRelicApp{nil, false}, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigAppLogForwardingEnabled(true),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	return &NewRelicApp{app, true}, nil
}

// IsEnabled returns whether New Relic is enabled
func (nr *NewRelicApp) IsEnabled() bool {
	return nr != nil && nr.enabled && nr.Application != nil
}

// Agent returns the underlying application, or nil when disabled
func (nr *NewRelicApp) Agent() *newrelic.Application {
	if !nr.IsEnabled() {
		return nil
	}
	return nr.Application
}

// RecordCustomEvent records a custom event
func (nr *NewRelicApp) RecordCustomEvent(eventType string, params map[string]interface{}) {
	if !nr.IsEnabled() {
		return
	}
	nr.Application.RecordCustomEvent(eventType, params)
}

// RecordCustomMetric records a custom metric
func (nr *NewRelicApp) RecordCustomMetric(name string, value float64) {
	if !nr.IsEnabled() {
		return
	}
	nr.Application.RecordCustomMetric(name, value)
}

// Shutdown gracefully shuts down the New Relic application
func (nr *NewRelicApp) Shutdown(timeout time.Duration) {
	if !nr.IsEnabled() {
		return
	}
	nr.Application.Shutdown(timeout)
}

// RecordSeatsBooked records a successful booking
func (nr *NewRelicApp) RecordSeatsBooked(rideID string, seats int, total int64, attempts int) {
	nr.RecordCustomEvent("SeatsBooked", map[string]interface{}{
		"ride_id":  rideID,
		"seats":    seats,
		"total":    total,
		"attempts": attempts,
	})
}

// RecordBookingRejected records a booking refused for a domain reason
func (nr *NewRelicApp) RecordBookingRejected(rideID, reason string) {
	nr.RecordCustomEvent("BookingRejected", map[string]interface{}{
		"ride_id": rideID,
		"reason":  reason,
	})
}

// RecordRideTransition records a lifecycle change
func (nr *NewRelicApp) RecordRideTransition(rideID, status string) {
	nr.RecordCustomEvent("RideTransition", map[string]interface{}{
		"ride_id": rideID,
		"status":  status,
	})
}

// RecordRideRequestProposed records an owner proposal
func (nr *NewRelicApp) RecordRideRequestProposed(driverID string) {
	nr.RecordCustomEvent("RideRequestProposed", map[string]interface{}{
		"driver_id": driverID,
	})
}

// RecordRideRequestAccepted records an accepted proposal
func (nr *NewRelicApp) RecordRideRequestAccepted(driverID, rideID string) {
	nr.RecordCustomEvent("RideRequestAccepted", map[string]interface{}{
		"driver_id": driverID,
		"ride_id":   rideID,
	})
}

// RecordDatabasePoolStats records database connection pool statistics
func (nr *NewRelicApp) RecordDatabasePoolStats(stats map[string]interface{}) {
	if totalConns, ok := stats["total_connections"].(int32); ok {
		nr.RecordCustomMetric("custom/db/total_connections", float64(totalConns))
	}
	if idleConns, ok := stats["idle_connections"].(int32); ok {
		nr.RecordCustomMetric("custom/db/idle_connections", float64(idleConns))
	}
	if inUse, ok := stats["in_use_connections"].(int32); ok {
		nr.RecordCustomMetric("custom/db/in_use_connections", float64(inUse))
	}
}

// RecordRedisPoolStats records Redis pool statistics
func (nr *NewRelicApp) RecordRedisPoolStats(stats map[string]interface{}) {
	if hits, ok := stats["hits"].(uint32); ok {
		nr.RecordCustomMetric("custom/redis/cache_hits", float64(hits))
	}
	if misses, ok := stats["misses"].(uint32); ok {
		nr.RecordCustomMetric("custom/redis/cache_misses", float64(misses))
	}
	if timeouts, ok := stats["timeouts"].(uint32); ok {
		nr.RecordCustomMetric("custom/redis/timeouts", float64(timeouts))
	}
}

// ReportPoolStats samples pool statistics every interval until ctx is done.
// Nil samplers are skipped.
func (nr *NewRelicApp) ReportPoolStats(ctx context.Context, interval time.Duration, db, redis func() map[string]interface{}) {
	if !nr.IsEnabled() {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if db != nil {
				nr.RecordDatabasePoolStats(db())
			}
			if redis != nil {
				nr.RecordRedisPoolStats(redis())
			}
		}
	}
}
