package router

import (
	"context"
	"fmt"
	"net/http"

	portfoliosvc "portfolio-registry/internal/application/portfolio"
	"portfolio-registry/internal/chain"
	"portfolio-registry/internal/config"
	"portfolio-registry/internal/infrastructure/database"
	chainhandler "portfolio-registry/internal/interfaces/handlers/chain"
	healthhandler "portfolio-registry/internal/interfaces/handlers/health"
	portfoliohandler "portfolio-registry/internal/interfaces/handlers/portfolio"
	protocolhandler "portfolio-registry/internal/interfaces/handlers/protocol"
	"portfolio-registry/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Deps are the collaborators the HTTP app is built from.
type Deps struct {
	DB             *gorm.DB
	Rdb            *redis.Client // optional; request stats are skipped without it
	Clock          chain.Clock
	Service        *portfoliosvc.Service
	AdminKeyHash   string
	HealthAdminKey string
}

// CreateApp opens the database and Redis from cfg, migrates, and builds the Fiber app.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, fmt.Errorf("migrate: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opt)
	}

	clock, err := NewClock(cfg, rdb)
	if err != nil {
		return nil, nil, nil, err
	}

	svc := portfoliosvc.NewService(db, clock, portfoliosvc.Options{
		ProtocolOwner:       cfg.ProtocolOwner,
		MaterializeAllSlots: cfg.MaterializeAllSlots,
		RebalanceCooldown:   cfg.RebalanceCooldown,
	})
	if err := svc.Bootstrap(context.Background()); err != nil {
		return nil, nil, nil, fmt.Errorf("bootstrap protocol state: %w", err)
	}

	app := NewApp(Deps{
		DB:             db,
		Rdb:            rdb,
		Clock:          clock,
		Service:        svc,
		AdminKeyHash:   cfg.AdminKeyHash,
		HealthAdminKey: cfg.HealthAdminKey,
	})
	return app, db, rdb, nil
}

// NewClock picks the block-height source named by cfg.ClockSource.
func NewClock(cfg *config.Config, rdb *redis.Client) (chain.Clock, error) {
	switch cfg.ClockSource {
	case config.ClockRedis:
		if rdb == nil {
			return nil, fmt.Errorf("CLOCK_SOURCE=redis requires REDIS_URL")
		}
		return chain.NewRedisClock(rdb), nil
	case config.ClockInterval:
		return &chain.IntervalClock{Genesis: cfg.ClockGenesis, Interval: cfg.ClockInterval}, nil
	default:
		return nil, fmt.Errorf("unknown clock source %q", cfg.ClockSource)
	}
}

// NewApp registers middleware and routes.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.Tracing())
	app.Use(middleware.HealthMarker(d.Rdb))
	app.Use(middleware.Principal())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            d.Rdb,
		Clock:          d.Clock,
		HealthAdminKey: d.HealthAdminKey,
	}
	if d.DB != nil {
		hh.DB = &gormDBPinger{db: d.DB}
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	ph := &portfoliohandler.Handlers{Service: d.Service}
	pg := app.Group("/api/v1/portfolios")
	pg.Post("/", middleware.RequireAuth(), ph.CreatePortfolio)
	pg.Get("/:id", ph.GetPortfolio)
	pg.Get("/:id/assets/:slot", ph.GetPortfolioAsset)
	pg.Patch("/:id/assets/:slot", middleware.RequireAuth(), ph.UpdateAllocation)
	pg.Post("/:id/rebalance", middleware.RequireAuth(), ph.Rebalance)
	pg.Get("/:id/rebalance-amounts", ph.RebalanceAmounts)
	app.Get("/api/v1/owners/:owner/portfolios", ph.OwnerPortfolios)

	prh := &protocolhandler.Handlers{Service: d.Service}
	app.Get("/api/v1/protocol", prh.Info)
	app.Post("/api/v1/protocol/initialize", middleware.RequireAuth(), prh.Initialize)

	ch := &chainhandler.Handlers{Clock: d.Clock}
	app.Get("/api/v1/chain/height", ch.Height)
	app.Post("/api/v1/chain/advance", middleware.RequireAdminKey(d.AdminKeyHash), ch.Advance)

	return app
}

// Handler returns the Fiber app as a net/http handler.
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
