// Package server wires the HTTP API and the realtime WebSocket endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	_ "ember/docs" // swagger docs
	"ember/internal/cache"
	"ember/internal/config"
	"ember/internal/database"
	"ember/internal/featureflags"
	"ember/internal/middleware"
	"ember/internal/models"
	"ember/internal/realtime"
	"ember/internal/repository"
	"ember/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const sendMessageResource = "send_message"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo    repository.UserRepository
	swipeRepo   repository.SwipeRepository
	matchRepo   repository.MatchRepository
	messageRepo repository.MessageRepository

	featureFlags *featureflags.Set
	bus          *realtime.Bus

	userService      *service.UserService
	candidateService *service.CandidateService
	swipeService     *service.SwipeService
	matchService     *service.MatchService
	chatService      *service.ChatService
}

// NewServer connects to the database and Redis and returns a ready server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, rate limits, tickets and cross-process
// fan-out are then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("ember-api"),
		userRepo:       repository.NewUserRepository(db),
		swipeRepo:      repository.NewSwipeRepository(db),
		matchRepo:      repository.NewMatchRepository(db),
		messageRepo:    repository.NewMessageRepository(db),
		featureFlags:   featureflags.Parse(cfg.FeatureFlags),
	}
	s.wire()
	return s, nil
}

// wire builds the realtime bus and the services on top of the repositories.
func (s *Server) wire() {
	if s.featureFlags == nil {
		s.featureFlags = featureflags.Parse("")
	}

	presence := realtime.NewPresence(s.redis, realtime.PresenceOptions{
		OnOnline: func(userID uint) {
			middleware.Logger.Debug("user online", slog.Uint64("user_id", uint64(userID)))
		},
		OnOffline: func(userID uint) {
			middleware.Logger.Debug("user offline", slog.Uint64("user_id", uint64(userID)))
		},
	})
	s.bus = realtime.NewBus(realtime.NewRegistry(), realtime.BusOptions{
		Presence: presence,
		Fanout:   realtime.NewFanout(s.redis),
		Limiter:  s.allowSend,
	})

	s.userService = service.NewUserService(s.userRepo)
	s.candidateService = service.NewCandidateService(s.userRepo, s.swipeRepo, s.featureFlags, s.config.CandidateBatchSize)
	s.swipeService = service.NewSwipeService(s.swipeRepo)
	s.matchService = service.NewMatchService(s.matchRepo, s.userRepo, s.messageRepo, service.MatchServiceOptions{
		Presence:     s.bus,
		Flags:        s.featureFlags,
		HistoryLimit: s.config.MessageHistoryLimit,
	})
	s.chatService = service.NewChatService(s.messageRepo, s.matchRepo, s.bus, s.config.MessageMaxLength)
	s.bus.SetSender(s.chatService)
}

// allowSend applies the shared message budget to WebSocket sends. A Redis
// failure lets the message through, like the HTTP limiter.
func (s *Server) allowSend(ctx context.Context, userID uint) (bool, error) {
	allowed, err := middleware.CheckRateLimit(ctx, s.redis, sendMessageResource,
		fmt.Sprintf("user:%d", userID), 30, time.Minute)
	if err != nil {
		return true, err
	}
	return allowed, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8081,http://localhost:19006"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests, models.NewRateLimitedError())
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Ember Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Post("/auth", middleware.RateLimit(s.redis, 20, 10*time.Minute, "auth"), s.Authenticate)
	api.Get("/profiles/showcase", s.GetShowcase)

	protected := api.Group("", s.AuthRequired())

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/me/complete", s.GetProfileCompletion)
	users.Get("/lookup", s.LookupUser)
	users.Get("/:id", s.GetUserProfile)

	protected.Get("/candidates", s.GetCandidates)
	protected.Post("/swipes", middleware.RateLimit(s.redis, 120, time.Minute, "swipe"), s.RecordSwipe)

	matches := protected.Group("/matches")
	matches.Get("/", s.GetMatches)
	matches.Get("/:id/messages", s.GetMessages)
	matches.Post("/:id/messages", middleware.RateLimit(s.redis, 30, time.Minute, sendMessageResource), s.SendMessage)

	protected.Get("/feature-flags", s.GetFeatureFlags)

	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.AuthRequired(), s.WebSocketUpgrade, s.WebSocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis reachability.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: without it the API still serves, minus caching
	// and cross-process fan-out.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired accepts a single-use WebSocket ticket, a bearer token or a
// token query parameter, in that order.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ticket := c.Query("ticket"); ticket != "" {
			userID, ok := s.consumeTicket(c.UserContext(), ticket)
			if !ok {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			return s.authenticated(c, userID)
		}

		token := middleware.BearerToken(c)
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := middleware.ParseToken(s.config.JWTSecret, token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}
		return s.authenticated(c, claims.UserID)
	}
}

func (s *Server) authenticated(c *fiber.Ctx, userID uint) error {
	c.Locals("userID", userID)
	c.SetUserContext(middleware.WithUserID(c.UserContext(), userID))
	return c.Next()
}

// consumeTicket redeems a ticket exactly once.
func (s *Server) consumeTicket(ctx context.Context, ticket string) (uint, bool) {
	if s.redis == nil {
		return 0, false
	}
	raw, err := s.redis.GetDel(ctx, cache.WSTicketKey(ticket)).Result()
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// App builds the Fiber application without listening. Start uses it; tests
// can drive it through app.Test or a custom listener.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName: "Ember API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// StartBackground starts cross-process fan-out. Start calls it.
func (s *Server) StartBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	if err := s.bus.Start(ctx); err != nil {
		middleware.Logger.Error("realtime fan-out unavailable", slog.String("error", err.Error()))
	}
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	s.StartBackground()

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	s.bus.Shutdown()

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
