package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nekogravitycat/room-booking-backend/internal/api"
	"github.com/nekogravitycat/room-booking-backend/internal/artifact"
	"github.com/nekogravitycat/room-booking-backend/internal/auth"
	"github.com/nekogravitycat/room-booking-backend/internal/booking"
	"github.com/nekogravitycat/room-booking-backend/internal/config"
	"github.com/nekogravitycat/room-booking-backend/internal/db"
	"github.com/nekogravitycat/room-booking-backend/internal/event"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/clock"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/storage"
	"github.com/nekogravitycat/room-booking-backend/internal/room"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	App    *config.Config
	DBPool *pgxpool.Pool
	Redis  *redis.Client // nil disables rate limiting
	Logger *slog.Logger
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router         *gin.Engine
	BookingService booking.Service
	Sweeper        *booking.Sweeper
	Consumer       *event.Consumer  // nil with the inline transport
	Publisher      *event.Publisher // nil with the inline transport
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	appCfg := cfg.App
	logger := cfg.Logger

	loc, err := appCfg.Location()
	if err != nil {
		return nil, err
	}
	clk := clock.NewRealClock(loc)

	// Init Components
	jwtManager := auth.NewJWTManager(appCfg.JWT.Secret, time.Hour)
	artifactStore, err := storage.NewLocalStorage(appCfg.Artifact.Dir)
	if err != nil {
		return nil, fmt.Errorf("init artifact storage: %w", err)
	}

	// Room Module
	roomRepo := room.NewPgxRepository(cfg.DBPool)
	roomService := room.NewService(roomRepo)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	uow := booking.NewPgUnitOfWork(db.NewTxRunner(cfg.DBPool, appCfg.Booking.TxRetries, logger))

	// Post-commit consumers
	passes := artifact.NewService(artifactStore, bookingRepo, artifact.Options{
		Size:          appCfg.Artifact.Size,
		PublicBaseURL: appCfg.Artifact.PublicBaseURL,
	}, logger)

	var (
		notifier  booking.Notifier
		consumer  *event.Consumer
		publisher *event.Publisher
	)
	audit := event.NewLogNotifier(logger)
	switch appCfg.Events.Transport {
	case config.TransportAMQP:
		publisher = event.NewPublisher(appCfg.Events.AMQPURL, appCfg.Events.Queue, logger)
		consumer = event.NewConsumer(appCfg.Events.AMQPURL, appCfg.Events.Queue, passes, logger)
		notifier = booking.Fanout{audit, publisher}
	default:
		notifier = booking.Fanout{audit, passes}
	}

	bookingService := booking.NewService(
		uow,
		bookingRepo,
		roomService,
		notifier,
		booking.NewReferenceGenerator(),
		clk,
		booking.Options{
			MaxAttendees:      appCfg.Booking.MaxAttendees,
			ReferenceAttempts: appCfg.Booking.ReferenceAttempts,
			StorageTimeout:    appCfg.DB.StorageTimeout,
		},
		logger,
	)

	var limiter *api.RateLimiter
	if appCfg.RateLimit.Enabled && cfg.Redis != nil {
		limiter = api.NewRateLimiter(cfg.Redis, api.RateLimitOptions{
			Limit:  appCfg.RateLimit.Limit,
			Window: appCfg.RateLimit.Window,
			Prefix: appCfg.RateLimit.Prefix,
		}, clk, logger)
	}

	// Router
	router := api.NewRouter(api.RouterDeps{
		Logger:      logger,
		JWT:         jwtManager,
		Rooms:       roomService,
		Bookings:    bookingService,
		Artifacts:   artifactStore,
		RateLimiter: limiter,
		DB:          cfg.DBPool,
		Production:  appCfg.IsProduction(),
		ProdOrigins: appCfg.ProdOrigins,
	})

	return &Container{
		Router:         router,
		BookingService: bookingService,
		Sweeper:        booking.NewSweeper(bookingService, appCfg.Booking.SweepInterval, logger),
		Consumer:       consumer,
		Publisher:      publisher,
	}, nil
}
