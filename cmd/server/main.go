package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/nekogravitycat/room-booking-backend/internal/app"
	"github.com/nekogravitycat/room-booking-backend/internal/config"
	"github.com/nekogravitycat/room-booking-backend/internal/db"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/logging"
)

func main() {
	fx.New(
		fx.Provide(
			config.Load,
			newLogger,
			newPool,
			newRedis,
			newContainer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger}
		}),
		fx.Invoke(
			startWorkers,
			startServer,
		),
	).Run()
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return logging.New(cfg.LogLevel, cfg.IsProduction())
}

func newPool(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DB.DSN, db.PoolOptions{
		MaxConns:         cfg.DB.MaxConns,
		LockTimeout:      cfg.DB.LockTimeout,
		StatementTimeout: cfg.DB.StorageTimeout,
	})
	if err != nil {
		return nil, err
	}

	if cfg.DB.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database schema applied")
	}

	lc.Append(fx.StopHook(pool.Close))
	return pool, nil
}

// newRedis returns nil when Redis is not configured or unreachable; booking
// then runs without rate limiting.
func newRedis(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) *redis.Client {
	if cfg.Redis.Addr == "" || !cfg.RateLimit.Enabled {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, rate limiting disabled", "addr", cfg.Redis.Addr, "error", err)
		_ = rdb.Close()
		return nil
	}

	lc.Append(fx.StopHook(rdb.Close))
	return rdb
}

func newContainer(cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client, logger *slog.Logger) (*app.Container, error) {
	return app.NewContainer(app.Config{
		App:    cfg,
		DBPool: pool,
		Redis:  rdb,
		Logger: logger,
	})
}

func startWorkers(lc fx.Lifecycle, c *app.Container, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go c.Sweeper.Run(ctx)
			if c.Consumer != nil {
				go func() {
					if err := c.Consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("event consumer exited", "error", err)
					}
				}()
			}
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			if c.Publisher != nil {
				return c.Publisher.Close()
			}
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, c *app.Container, cfg *config.Config, logger *slog.Logger) {
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           c.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("server running", "addr", cfg.HTTPAddr, "mode", gin.Mode())
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server error", "error", err)
					os.Exit(1)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			return nil
		},
	})
}
