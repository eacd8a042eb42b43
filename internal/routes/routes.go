package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hashscope/hashscope/internal/apikey"
	"github.com/hashscope/hashscope/internal/auth"
	"github.com/hashscope/hashscope/internal/catalog"
	"github.com/hashscope/hashscope/internal/config"
	"github.com/hashscope/hashscope/internal/deposit"
	"github.com/hashscope/hashscope/internal/identity"
	"github.com/hashscope/hashscope/internal/ledger"
	"github.com/hashscope/hashscope/internal/middleware"
	"github.com/hashscope/hashscope/internal/notification"
	"github.com/hashscope/hashscope/internal/usage"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	notifier := notification.NewLoggerNotifier(d.Logger)
	sink := notification.NewLedgerEvents(notifier)

	var ledgerBackend ledger.Ledger
	if d.DB != nil {
		pgLedger := ledger.NewPostgresLedger(d.DB, d.Cfg.LedgerOwner, ledger.NoopPayout{}, sink)
		if err := pgLedger.EnsureReserve(context.Background()); err != nil {
			return err
		}
		ledgerBackend = pgLedger
	} else {
		ledgerBackend = ledger.NewInMemory(d.Cfg.LedgerOwner, ledger.NoopPayout{}, sink)
	}

	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	authHandler := auth.NewHandler(authSvc)

	var depositRepo deposit.Repository
	if d.DB != nil {
		depositRepo = deposit.NewPostgresRepository(d.DB)
	} else {
		depositRepo = deposit.NewMemoryRepository()
	}
	depositSvc, err := deposit.NewService(ledgerBackend, depositRepo, identityRepo, deposit.StaticVerifier{}, notifier)
	if err != nil {
		return err
	}
	depositHandler := deposit.NewHandler(depositSvc)

	var keyRepo apikey.Repository
	if d.DB != nil {
		keyRepo = apikey.NewPostgresRepository(d.DB)
	} else {
		keyRepo = apikey.NewMemoryRepository()
	}
	keySvc := apikey.NewService(keyRepo, identityRepo, ledgerBackend)
	keyHandler := apikey.NewHandler(keySvc)

	var usageRepo usage.Repository
	if d.DB != nil {
		usageRepo = usage.NewPostgresRepository(d.DB)
	} else {
		usageRepo = usage.NewMemoryRepository()
	}
	usageSvc := usage.NewService(usageRepo, ledgerBackend, d.Cfg.LedgerOwner, notifier, d.Logger)

	var catalogRepo catalog.Repository
	if d.DB != nil {
		catalogRepo = catalog.NewPostgresRepository(d.DB)
	} else {
		catalogRepo = catalog.NewMemoryRepository(catalog.DefaultSources()...)
	}
	catalogHandler := catalog.NewHandler(catalogRepo, usageSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterUserRoutes(api, identitySvc, d.Logger)
	RegisterAuthRoutes(api, authHandler)

	// Data plane, API-key authenticated. Must be registered before the JWT
	// group: an empty-prefix group attaches its middleware to every route
	// added under /api/v1 afterwards.
	keymw := middleware.APIKeyAuth(keySvc)
	ratemw := middleware.KeyRateLimit(d.Cache, d.Cfg.KeyRateLimit)
	RegisterDataRoutes(api, catalogHandler, keymw, ratemw)

	// Protected routes
	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	protected := api.Group("", jwtmw)
	protected.Post("/auth/logout", authHandler.Logout)
	RegisterAccountRoutes(protected, identityRepo, ledgerBackend)
	RegisterDepositRoutes(protected, depositHandler)
	RegisterKeyRoutes(protected, keyHandler, keySvc, usageSvc)
	// Privileged ledger operations get a structured audit trail.
	audited := protected.Group("", middleware.Audit(d.Logger))
	RegisterLedgerRoutes(audited, ledgerBackend)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
