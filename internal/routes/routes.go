package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/taskify/taskify-api/internal/auth"
	"github.com/taskify/taskify-api/internal/cache"
	"github.com/taskify/taskify-api/internal/config"
	"github.com/taskify/taskify-api/internal/identity"
	"github.com/taskify/taskify-api/internal/kv"
	"github.com/taskify/taskify-api/internal/middleware"
	"github.com/taskify/taskify-api/internal/notification"
	"github.com/taskify/taskify-api/internal/otp"
	"github.com/taskify/taskify-api/internal/ratelimit"
	"github.com/taskify/taskify-api/internal/respond"
	"github.com/taskify/taskify-api/internal/token"
	"github.com/taskify/taskify-api/internal/todo"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. It returns the
// cache layer so the caller can drain pending invalidations on shutdown.
func Setup(app *fiber.App, d Deps) (*cache.Cache, error) {
	// Redis backs tokens, OTPs, rate limits and the cache; there is no
	// degraded mode without it. Postgres may be absent in development.
	if d.Redis == nil {
		return nil, fmt.Errorf("redis is required")
	}
	if d.DB == nil && d.Cfg.IsProduction() {
		return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	out := respond.Writer{Debug: !d.Cfg.IsProduction()}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	// Shared Redis-backed primitives.
	store := kv.NewRedisStore(d.Redis)
	tokens, err := token.NewManager(store, token.Config{
		AccessSecret:  []byte(d.Cfg.AccessTokenSecret),
		RefreshSecret: []byte(d.Cfg.RefreshTokenSecret),
		AccessTTL:     d.Cfg.AccessTokenTTL,
		RefreshTTL:    d.Cfg.RefreshTokenTTL,
		Issuer:        d.Cfg.AppName,
	})
	if err != nil {
		return nil, err
	}
	otpSvc := otp.NewService(store, d.Cfg.OTPTTL)
	limiter := ratelimit.New(store, map[ratelimit.Purpose]ratelimit.Window{
		ratelimit.PurposeLogin: {Max: d.Cfg.RateLimit.LoginMax, Length: d.Cfg.RateLimit.LoginWindow},
		ratelimit.PurposeOTP:   {Max: d.Cfg.RateLimit.OTPMax, Length: d.Cfg.RateLimit.OTPWindow},
		ratelimit.PurposeAPI:   {Max: d.Cfg.RateLimit.APIMax, Length: d.Cfg.RateLimit.APIWindow},
	})
	responseCache := cache.New(store, d.Logger, d.Cfg.CacheTTL, 2)

	// Repositories fall back to in-memory stores in development.
	var userRepo identity.Repository
	if d.DB != nil {
		userRepo = identity.NewPostgresRepository(d.DB)
	} else {
		userRepo = identity.NewMemoryRepository()
	}
	var todoRepo todo.Repository
	if d.DB != nil {
		todoRepo = todo.NewPostgresRepository(d.DB)
	} else {
		todoRepo = todo.NewMemoryRepository()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	identitySvc := identity.NewService(userRepo, otpSvc, notifier, tokens, d.Logger)
	authSvc := auth.NewService(identitySvc, userRepo, tokens, d.Cfg.AccessTokenTTL)
	todoSvc := todo.NewService(todoRepo, responseCache, d.Logger)

	authHandler := auth.NewHandler(identitySvc, authSvc, out, d.Cfg.RefreshTokenTTL, d.Cfg.IsProduction())
	todoHandler := todo.NewHandler(todoSvc, out)
	userHandler := identity.NewHandler(identitySvc, userRepo, out)

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter, ratelimit.PurposeAPI, out))
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	loginLimit := middleware.RateLimit(limiter, ratelimit.PurposeLogin, out)
	otpLimit := middleware.RateLimit(limiter, ratelimit.PurposeOTP, out)
	guard := middleware.BearerAuth(tokens, userRepo, out)
	RegisterAuthRoutes(api, authHandler, guard, loginLimit, otpLimit)

	protected := api.Group("", guard)
	RegisterTodoRoutes(protected, todoHandler, out)
	RegisterUserRoutes(protected, userHandler, out)

	return responseCache, nil
}
