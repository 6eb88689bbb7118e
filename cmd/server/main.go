package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/intervention-api/internal/cache"
	"github.com/iliyamo/intervention-api/internal/config"
	"github.com/iliyamo/intervention-api/internal/database"
	"github.com/iliyamo/intervention-api/internal/dto"
	"github.com/iliyamo/intervention-api/internal/handler"
	"github.com/iliyamo/intervention-api/internal/middleware"
	"github.com/iliyamo/intervention-api/internal/obs"
	"github.com/iliyamo/intervention-api/internal/queue"
	"github.com/iliyamo/intervention-api/internal/repository"
	"github.com/iliyamo/intervention-api/internal/router"
	"github.com/iliyamo/intervention-api/internal/service"
	"github.com/iliyamo/intervention-api/internal/session"
	"github.com/iliyamo/intervention-api/internal/utils"
)

func main() {
	log := obs.Logger()
	cfg := config.Load()
	obs.Init()

	sqlDB, err := database.Open(cfg)
	if err != nil {
		log.Error("database unavailable", "err", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	gdb, err := database.OpenGorm(sqlDB)
	if err != nil {
		log.Error("gorm init failed", "err", err)
		os.Exit(1)
	}
	if err := database.Migrate(gdb); err != nil {
		log.Error("migration failed", "err", err)
		os.Exit(1)
	}
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Seed(seedCtx, gdb, database.AdminSeed{
		Username:   cfg.AdminUsername,
		Email:      cfg.AdminEmail,
		Password:   cfg.AdminPassword,
		BcryptCost: cfg.BcryptCost,
	})
	cancelSeed()
	if err != nil {
		log.Error("seeding failed", "err", err)
		os.Exit(1)
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	readCache := buildCache(gctx, g, config.LoadCacheConfig(), rdb)

	var sessions session.Store
	if rdb != nil {
		sessions = session.NewRedisStore(rdb, "refresh")
	} else {
		mem := session.NewMemoryStore()
		g.Go(func() error { return mem.RunGC(gctx, time.Minute) })
		sessions = mem
		log.Warn("refresh tokens kept in process; they are lost on restart")
	}

	var publisher queue.Publisher = queue.NopPublisher{}
	if cfg.AMQPURL != "" {
		publisher = queue.NewAMQPPublisher(cfg.AMQPURL)
		if cfg.AuditConsumerEnabled {
			g.Go(func() error { return queue.RunAuditConsumer(gctx, cfg.AMQPURL, cfg.AuditLogDir) })
		}
	}

	tokens := utils.TokenParams{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.AccessTTL(),
	}
	store := repository.NewStore(gdb)
	interventions := service.NewInterventionManager(store, readCache, publisher)
	identity := service.NewIdentityService(store, sessions, tokens, cfg.RefreshTTL(), cfg.BcryptCost)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler(log)
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: obs.NewRequestID}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.LogAttrs(context.Background(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("user", middleware.Username(c)),
			)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(obs.Instrument())

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	router.RegisterRoutes(e, sqlDB, obs.Handler())
	router.RegisterAuth(e, handler.NewAuthHandler(identity), tokens, limit)
	router.RegisterInterventions(e, handler.NewInterventionHandler(interventions), tokens, limit)

	addr := ":" + cfg.Port
	g.Go(func() error {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// buildCache picks the intervention read cache from cfg.  A process-local
// cache broadcasts its invalidations over Redis when Redis is available.
func buildCache(ctx context.Context, g *errgroup.Group, cfg config.CacheConfig, rdb *redis.Client) cache.Cache[dto.GetInterventionModel] {
	if !cfg.Enabled {
		return cache.Nop[dto.GetInterventionModel]{}
	}
	policy := cache.Policy{Sliding: cfg.Sliding, Absolute: cfg.Absolute, Capacity: cfg.Capacity}

	var c cache.Cache[dto.GetInterventionModel]
	switch {
	case cfg.Backend == "redis" && rdb != nil:
		c = cache.NewRedis[dto.GetInterventionModel](rdb, cfg.Prefix, policy)
	default:
		mem := cache.NewMemory[dto.GetInterventionModel](policy)
		g.Go(func() error { return mem.RunGC(ctx, cfg.GCInterval) })
		c = mem
		if rdb != nil && cfg.InvalidationChannel != "" {
			b := cache.NewBroadcast[dto.GetInterventionModel](mem, rdb, cfg.InvalidationChannel)
			g.Go(func() error {
				if err := b.Listen(ctx, nil); err != nil {
					slog.Warn("cache invalidation listener stopped", "err", err)
				}
				return nil
			})
			c = b
		}
	}
	return cache.NewObserved[dto.GetInterventionModel](c, obs.CacheLookup)
}
