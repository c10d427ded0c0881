package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rideshare"

var (
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "bookings_total", Help: "Booking attempts by outcome"},
		[]string{"outcome"},
	)
	BookingAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "booking_commit_attempts",
		Help:      "Optimistic commit attempts needed per booking",
		Buckets:   []float64{1, 2, 3, 4, 5},
	})
	BookedSeatsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "booked_seats_total", Help: "Seats reserved through contracts"})

	RideTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_transitions_total", Help: "Ride lifecycle transitions by target status and outcome"},
		[]string{"status", "outcome"},
	)
	RidesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rides_created_total", Help: "Rides created by origin"},
		[]string{"origin"},
	)

	RideRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_requests_total", Help: "Ride request operations by action and outcome"},
		[]string{"action", "outcome"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "websocket_connections", Help: "Open websocket connections"})
)

// Outcome labels
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)
