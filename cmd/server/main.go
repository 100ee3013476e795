package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/ShortcutURL/config"
	apprepository "github.com/sifan077/ShortcutURL/internal/app/repository"
	appserver "github.com/sifan077/ShortcutURL/internal/app/server"
	appservice "github.com/sifan077/ShortcutURL/internal/app/service"
	httpUtil "github.com/sifan077/ShortcutURL/internal/http/util"
	infraBilling "github.com/sifan077/ShortcutURL/internal/infra/billing"
	infraCaptcha "github.com/sifan077/ShortcutURL/internal/infra/captcha"
	"github.com/sifan077/ShortcutURL/internal/infra/logger"
	infraNATS "github.com/sifan077/ShortcutURL/internal/infra/nats"
	infraPostgres "github.com/sifan077/ShortcutURL/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/ShortcutURL/internal/infra/prometheus"
	infraRedis "github.com/sifan077/ShortcutURL/internal/infra/redis"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet.
		bootstrap, _ := logger.New(logger.Config{Development: true})
		bootstrap.Fatal("Failed to load config", zap.Error(err))
	}

	log, err := logger.Init(logger.FromApp(cfg.App))
	if err != nil {
		os.Stderr.WriteString("failed to init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log.Info("Configuration loaded successfully",
		zap.String("env", cfg.App.Env),
		zap.String("addr", cfg.App.Addr),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
		zap.String("billing_provider", cfg.Billing.Provider),
		zap.Bool("captcha_enabled", cfg.Captcha.Enabled),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres, log)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	defer func() { _ = infraPostgres.Close(gormDB) }()

	if err := infraPostgres.Migrate(ctx, gormDB); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres successfully")

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = infraRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("Connected to Redis successfully")
	} else {
		log.Info("Redis disabled, rate limits are per process")
	}

	var clicks appservice.ClickSink
	if cfg.NATS.Enabled {
		natsConn, js, err := infraNATS.Connect(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsConn.Drain()
		if err := infraNATS.EnsureStream(js); err != nil {
			log.Fatal("Failed to prepare click stream", zap.Error(err))
		}
		clicks = appservice.NewClickPublisher(js)
		log.Info("Connected to NATS successfully")
	}

	if cfg.Prometheus.Enabled {
		if err := infraPrometheus.RegisterPoolStats(prometheus.DefaultRegisterer, pool); err != nil {
			log.Warn("Failed to register pool metrics", zap.Error(err))
		}
		promServer := infraPrometheus.NewServer(cfg.Prometheus, prometheus.DefaultGatherer)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port),
				zap.String("path", cfg.Prometheus.Path),
			)
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	}

	var verifier appservice.Verifier
	if cfg.Captcha.Enabled {
		verifier = infraCaptcha.New(cfg.Captcha)
	} else {
		log.Warn("Human verification disabled, any non-empty token is accepted")
	}

	billingProvider, err := infraBilling.New(cfg)
	if err != nil {
		log.Fatal("Failed to configure billing provider", zap.Error(err))
	}

	linkRepo := apprepository.NewLinkRepository(gormDB)
	accountRepo := apprepository.NewAccountRepository(gormDB)
	billingEvents := apprepository.NewBillingEventRepository(pool)

	tokens := httpUtil.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)

	accounts := appservice.NewAccountService(appservice.AccountDeps{
		Logger:   log.Named("accounts"),
		Accounts: accountRepo,
		Links:    linkRepo,
		Tokens:   tokens,
	})
	links := appservice.NewLinkService(appservice.LinkDeps{
		Logger:   log.Named("links"),
		Links:    linkRepo,
		Verifier: verifier,
	})
	redirects := appservice.NewRedirectService(appservice.RedirectDeps{
		Logger:   log.Named("redirects"),
		Links:    linkRepo,
		Accounts: accounts,
		Clicks:   clicks,
	})
	subscriptions := appservice.NewSubscriptionService(appservice.SubscriptionDeps{
		Logger:          log.Named("subscriptions"),
		Accounts:        accountRepo,
		AccountReader:   accounts,
		BillingProvider: billingProvider,
	})
	bridge := appservice.NewBillingBridge(appservice.BillingBridgeDeps{
		Logger:          log.Named("billing"),
		Accounts:        accountRepo,
		Events:          billingEvents,
		BillingProvider: billingProvider,
	})

	server := appserver.New(appserver.Dependencies{
		Logger:        log,
		App:           cfg.App,
		RateLimit:     cfg.RateLimit,
		Redis:         redisClient,
		Tokens:        tokens,
		Accounts:      accounts,
		Links:         links,
		Redirects:     redirects,
		Subscriptions: subscriptions,
		Webhooks:      bridge,
	})

	go func() {
		<-ctx.Done()
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shut down HTTP server", zap.Error(err))
		}
	}()

	log.Info("Starting HTTP server", zap.String("addr", cfg.App.Addr))
	if err := server.Listen(cfg.App.Addr); err != nil {
		log.Error("Fiber server exited", zap.Error(err))
	}
}
