package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/ShortcutURL/config"
	"github.com/sifan077/ShortcutURL/internal/app/service"
	inthttp "github.com/sifan077/ShortcutURL/internal/http/handler"
	"github.com/sifan077/ShortcutURL/internal/http/middleware"
	"go.uber.org/zap"
)

// Dependencies bundles the services and infrastructure the HTTP server needs.
type Dependencies struct {
	Logger        *zap.Logger
	App           config.AppConfig
	RateLimit     config.RateLimitConfig
	Redis         *redis.Client
	Tokens        middleware.TokenValidator
	Accounts      service.AccountService
	Links         service.LinkService
	Redirects     service.RedirectService
	Subscriptions service.SubscriptionService
	Webhooks      inthttp.WebhookProcessor
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with all routes registered.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "shortcuturl",
		ProxyHeader:           deps.App.ProxyHeader,
		DisableStartupMessage: deps.App.Production(),
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(
		middleware.Recovery(s.deps.Logger),
		middleware.RequestID(),
		middleware.Logger(s.deps.Logger),
		middleware.Metrics(),
		middleware.CORS(s.deps.App.FrontendURL),
	)
}

func (s *Server) registerRoutes() {
	log := s.deps.Logger
	limits := s.deps.RateLimit
	auth := middleware.NewAuth(s.deps.Tokens, s.deps.Accounts, log)

	apiLimit := middleware.RateLimit(s.deps.Redis, middleware.RateLimitConfig{
		Scope:       "api",
		MaxRequests: limits.APIMax,
		Window:      limits.APIWindow,
	}, log)
	createLimit := middleware.RateLimit(s.deps.Redis, middleware.RateLimitConfig{
		Scope:       "create",
		MaxRequests: limits.CreateMax,
		Window:      limits.CreateWindow,
	}, log)
	redirectLimit := middleware.RateLimit(s.deps.Redis, middleware.RateLimitConfig{
		Scope:       "redirect",
		MaxRequests: limits.RedirectMax,
		Window:      limits.RedirectWindow,
	}, log)

	api := s.app.Group("/api", apiLimit)

	inthttp.NewLinkHandler(inthttp.LinkDeps{
		Logger:      log,
		LinkService: s.deps.Links,
		BaseURL:     s.deps.App.BaseURL,
	}).Register(api, auth, createLimit)

	inthttp.NewAccountHandler(inthttp.AccountDeps{
		Logger:   log,
		Accounts: s.deps.Accounts,
	}).Register(api, auth)

	inthttp.NewSubscriptionHandler(inthttp.SubscriptionDeps{
		Logger:        log,
		Subscriptions: s.deps.Subscriptions,
		Webhooks:      s.deps.Webhooks,
	}).Register(api, auth)

	// /:code catches every single-segment path, so it goes last.
	inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:    log,
		Redirects: s.deps.Redirects,
	}).Register(s.app, redirectLimit)
}
