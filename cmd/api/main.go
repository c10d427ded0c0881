package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/rideshare/internal/api/handlers"
	"github.com/gocomet/rideshare/internal/api/middleware"
	"github.com/gocomet/rideshare/internal/api/routes"
	"github.com/gocomet/rideshare/internal/config"
	"github.com/gocomet/rideshare/internal/domain/fleet"
	"github.com/gocomet/rideshare/internal/domain/ride"
	"github.com/gocomet/rideshare/internal/domain/riderequest"
	"github.com/gocomet/rideshare/internal/repository/memory"
	"github.com/gocomet/rideshare/internal/repository/postgres"
	rediscache "github.com/gocomet/rideshare/internal/repository/redis"
	"github.com/gocomet/rideshare/internal/service/booking"
	requests "github.com/gocomet/rideshare/internal/service/riderequest"
	"github.com/gocomet/rideshare/internal/service/rides"
	"github.com/gocomet/rideshare/pkg/cache"
	"github.com/gocomet/rideshare/pkg/database"
	"github.com/gocomet/rideshare/pkg/events"
	"github.com/gocomet/rideshare/pkg/logger"
	"github.com/gocomet/rideshare/pkg/monitoring"
	"github.com/gocomet/rideshare/pkg/websocket"
)

// storage bundles the repositories selected by STORAGE_DRIVER
type storage struct {
	rides     ride.Repository
	contracts ride.ContractRepository
	tx        ride.Transactor
	requests  riderequest.Cache
	directory fleet.Directory
	dbStats   func() map[string]interface{}
	redis     func() map[string]interface{}
	close     func()
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting rideshare service",
		logger.String("env", cfg.Server.Env),
		logger.String("port", cfg.Server.Port),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("broker", cfg.Events.Broker),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize New Relic
	nrApp, err := monitoring.New(monitoring.Config{
		LicenseKey: cfg.NewRelic.LicenseKey,
		AppName:    cfg.NewRelic.AppName,
		Enabled:    cfg.NewRelic.Enabled,
		LogLevel:   cfg.NewRelic.LogLevel,
	})
	if err != nil {
		appLogger.Warn("Failed to initialize New Relic", logger.Err(err))
	} else if nrApp.IsEnabled() {
		appLogger.Info("New Relic APM initialized", logger.String("app_name", cfg.NewRelic.AppName))
	}
	defer nrApp.Shutdown(10 * time.Second)

	store, err := openStorage(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open storage", logger.Err(err))
	}
	defer store.close()

	publisher, err := newPublisher(cfg.Events, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to event broker", logger.Err(err))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.Warn("Failed to close event publisher", logger.Err(err))
		}
	}()

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(appLogger)
	go wsHub.Run(ctx)

	go nrApp.ReportPoolStats(ctx, cfg.NewRelic.StatsInterval, store.dbStats, store.redis)

	rideService := rides.NewService(store.rides, publisher, wsHub, nrApp, appLogger, rides.Config{})
	bookingEngine := booking.NewEngine(store.rides, store.contracts, store.tx, publisher, wsHub, nrApp, appLogger,
		booking.Config{MaxAttempts: cfg.Booking.MaxAttempts})
	requestChannel := requests.NewChannel(store.requests, store.rides, store.directory, publisher, wsHub, nrApp, appLogger,
		requests.Config{TTL: cfg.Requests.TTL})

	h := handlers.NewHandlers(rideService, bookingEngine, requestChannel, wsHub, appLogger, handlers.UpgraderConfig{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
	})

	// Initialize Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(appLogger))

	routes.SetupRoutes(router, h, routes.Options{
		JWTSecret:      []byte(cfg.JWT.Secret),
		MetricsEnabled: cfg.Metrics.Enabled,
		NewRelic:       nrApp.Agent(),
	})

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		appLogger.Info("Server starting", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", logger.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.Err(err))
	}

	appLogger.Info("Server stopped gracefully")
}

// seedFleet registers the configured cars and drivers in the in-memory directory
func seedFleet(directory *memory.FleetDirectory, cfg config.FleetConfig, appLogger *logger.Logger) error {
	cars, err := cfg.CarSeeds()
	if err != nil {
		return err
	}
	drivers, err := cfg.DriverSeeds()
	if err != nil {
		return err
	}

	for _, car := range cars {
		directory.PutCar(fleet.Car{LicensePlate: car.LicensePlate, OwnerID: car.OwnerID})
	}
	for _, id := range drivers {
		directory.PutDriver(fleet.Driver{ID: id, Available: true})
	}

	if len(cars) == 0 || len(drivers) == 0 {
		appLogger.Warn("In-memory fleet is empty, ride requests will be refused; set FLEET_CARS and FLEET_DRIVERS")
	}
	appLogger.Info("In-memory fleet seeded",
		logger.Int("cars", len(cars)),
		logger.Int("drivers", len(drivers)),
	)
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*storage, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		appLogger.Warn("Using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		directory := memory.NewFleetDirectory(store)
		if err := seedFleet(directory, cfg.Fleet, appLogger); err != nil {
			return nil, err
		}
		return &storage{
			rides:     store.Rides(),
			contracts: store.Contracts(),
			tx:        store,
			requests:  memory.NewRequestCache(nil),
			directory: directory,
			close:     func() {},
		}, nil
	}

	db, err := database.NewPostgresDB(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		DBName:      cfg.Database.Name,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConnections,
		MaxIdle:     cfg.Database.MaxIdleConns,
		MaxLifetime: cfg.Database.MaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	appLogger.Info("Connected to PostgreSQL")

	if cfg.Storage.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cache.Config{
		Host:        cfg.Redis.Host,
		Port:        cfg.Redis.Port,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		MinIdleConn: cfg.Redis.MinIdleConn,
		DialTimeout: cfg.Redis.DialTimeout,
		ReadTimeout: cfg.Redis.ReadTimeout,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	appLogger.Info("Connected to Redis")

	store := postgres.NewStore(db)
	return &storage{
		rides:     store.Rides(),
		contracts: store.Contracts(),
		tx:        store,
		requests:  rediscache.NewRideRequestCache(redisClient),
		directory: postgres.NewFleetDirectory(db),
		dbStats:   func() map[string]interface{} { return database.GetPoolStats(db) },
		redis:     func() map[string]interface{} { return cache.GetClientStats(redisClient) },
		close: func() {
			closeQuietly(appLogger, "redis", func() error { return cache.Close(redisClient) })
			closeQuietly(appLogger, "postgres", db.Close)
		},
	}, nil
}

// newPublisher connects the configured broker behind a queue so that request
// handlers never wait on it
func newPublisher(cfg config.EventsConfig, appLogger *logger.Logger) (events.Publisher, error) {
	switch cfg.Broker {
	case config.BrokerKafka:
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		return events.NewAsyncPublisher(publisher, cfg.BufferSize, cfg.PublishTimeout, appLogger), nil
	case config.BrokerRabbitMQ:
		publisher, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, err
		}
		return events.NewAsyncPublisher(publisher, cfg.BufferSize, cfg.PublishTimeout, appLogger), nil
	default:
		return events.NopPublisher{}, nil
	}
}

func closeQuietly(appLogger *logger.Logger, name string, fn func() error) {
	if err := fn(); err != nil {
		appLogger.Warn("Failed to close "+name, logger.Err(err))
	}
}
