package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/gocomet/rideshare/internal/api/handlers"
	"github.com/gocomet/rideshare/internal/api/middleware"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options toggles optional parts of the router
type Options struct {
	JWTSecret      []byte
	MetricsEnabled bool
	NewRelic       *newrelic.Application
}

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, opts Options) {
	// Add New Relic middleware if enabled
	if opts.NewRelic != nil {
		r.Use(nrgin.Middleware(opts.NewRelic))
	}

	r.GET("/health", h.Health)

	if opts.MetricsEnabled {
		r.Use(middleware.Metrics())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	driver := middleware.RequireRole(middleware.RoleDriver)
	owner := middleware.RequireRole(middleware.RoleOwner)
	passenger := middleware.RequireRole(middleware.RolePassenger)
	manager := middleware.RequireRole(middleware.RoleDriver, middleware.RoleOwner)

	// API v1 routes
	v1 := r.Group("/v1", middleware.Auth(opts.JWTSecret))
	{
		// WebSocket connection
		v1.GET("/ws", h.HandleWebSocket)

		// Ride endpoints
		rides := v1.Group("/rides")
		{
			rides.POST("", driver, h.CreateRide)
			rides.GET("", h.ListRides)
			rides.GET("/:id", h.GetRide)
			rides.POST("/:id/start", manager, h.StartRide)
			rides.POST("/:id/cancel", manager, h.CancelRide)
			rides.POST("/:id/finish", manager, h.FinishRide)
			rides.POST("/:id/rules", manager, h.AddRule)
			rides.DELETE("/:id/rules/:rule", manager, h.RemoveRule)
			rides.POST("/:id/bookings", passenger, h.BookSeats)
			rides.GET("/:id/contracts", h.ListRideContracts)
		}

		// Contract endpoints
		contracts := v1.Group("/contracts")
		{
			contracts.GET("", passenger, h.ListMyContracts)
			contracts.GET("/:id", h.GetContract)
		}

		// Ride request endpoints
		requests := v1.Group("/ride-requests")
		{
			requests.POST("", owner, h.ProposeRide)
			requests.GET("/pending", driver, h.ListPendingRequests)
			requests.POST("/:id/accept", driver, h.AcceptRequest)
		}
	}
}
