package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/room-booking-backend/internal/auth"
	"github.com/nekogravitycat/room-booking-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/room-booking-backend/internal/booking/http"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/storage"
	"github.com/nekogravitycat/room-booking-backend/internal/room"
	roomHttp "github.com/nekogravitycat/room-booking-backend/internal/room/http"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps collects everything the HTTP layer needs.
type RouterDeps struct {
	Logger      *slog.Logger
	JWT         *auth.JWTManager
	Rooms       room.Service
	Bookings    booking.Service
	Artifacts   storage.Storage
	RateLimiter *RateLimiter // nil disables rate limiting
	DB          Pinger
	Production  bool
	ProdOrigins string
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, logging, auth) and registering routes for various modules.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global Middleware:
	// - RequestLogger: structured access log with a request id.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(RequestLogger(deps.Logger), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"http://localhost:3000"}
	if deps.Production {
		config.AllowOrigins = splitOrigins(deps.ProdOrigins)
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	config.ExposeHeaders = []string{requestIDHeader, "Retry-After"}
	if len(config.AllowOrigins) > 0 {
		r.Use(cors.New(config))
	}

	r.GET("/healthz", healthHandler(deps.DB))

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(deps.JWT)
	rateLimit := gin.HandlerFunc(passThrough)
	if deps.RateLimiter != nil {
		rateLimit = deps.RateLimiter.Middleware()
	}

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	roomHandler := roomHttp.NewHandler(deps.Rooms)
	bookingHandler := bookingHttp.NewHandler(deps.Bookings, deps.Artifacts)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		roomHttp.RegisterRoutes(v1, roomHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware, rateLimit)
	}

	return r
}

func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
