package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/iliyamo/contact-book/internal/auth"
	"github.com/iliyamo/contact-book/internal/cache"
	"github.com/iliyamo/contact-book/internal/config"
	"github.com/iliyamo/contact-book/internal/database"
	"github.com/iliyamo/contact-book/internal/handler"
	"github.com/iliyamo/contact-book/internal/logging"
	"github.com/iliyamo/contact-book/internal/mail"
	"github.com/iliyamo/contact-book/internal/metrics"
	"github.com/iliyamo/contact-book/internal/queue"
	"github.com/iliyamo/contact-book/internal/repository"
	"github.com/iliyamo/contact-book/internal/router"
	"github.com/iliyamo/contact-book/internal/service"
	"github.com/iliyamo/contact-book/internal/storage"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	// Redis is optional: without it the principal cache and the rate
	// limiter are disabled.
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable, principal cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	var principals auth.PrincipalCache
	if pc := config.LoadPrincipalCacheConfig(); pc.Enabled && rdb != nil {
		principals = cache.NewPrincipalCache(rdb, pc.TTL, pc.Prefix, m)
	}

	tokens, err := auth.NewManager(auth.TokenConfig{
		Secret:     cfg.JWTSecret,
		Algorithm:  cfg.JWTAlgorithm,
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
		EmailTTL:   cfg.EmailTTL(),
	})
	if err != nil {
		return err
	}

	users := repository.NewUserRepo(db)
	contacts := repository.NewContactRepo(db)
	resolver := auth.NewResolver(tokens, users, principals, logger.Named("principal"))

	qcfg := config.LoadQueueConfig()
	publisher := service.NewPublisher(qcfg.URL, qcfg.MailQueue, logger, m)

	var avatars service.AvatarUploader
	if store, err := storage.NewAvatarStore(ctx, config.LoadStorageConfig()); err != nil {
		logger.Warn("avatar storage unavailable", zap.Error(err))
	} else {
		avatars = store
	}

	authSvc := service.NewAuthService(service.AuthDeps{
		Users:      users,
		Tokens:     tokens,
		Principals: resolver,
		Notifier:   publisher,
		BcryptCost: cfg.BcryptCost,
		BaseURL:    cfg.PublicBaseURL,
		Log:        logger,
	})
	userSvc := service.NewUserService(users, avatars, resolver)
	contactSvc := service.NewContactService(contacts)

	if mcfg := config.LoadMailConfig(); mcfg.ConsumerEnabled {
		consumer := queue.NewConsumer(qcfg.URL, qcfg.MailQueue, mail.NewSender(mcfg), logger, m)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("mail consumer stopped", zap.Error(err))
			}
		}()
	}

	rl := config.LoadRateLimitConfig()
	e := echo.New()
	router.Common(e, logger, m)
	router.RegisterRoutes(e, reg)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc), resolver, rl, rdb, logger)
	router.RegisterUsers(e, handler.NewUserHandler(userSvc), resolver, rl.Scaled(3), rdb, logger)
	router.RegisterContacts(e, handler.NewContactHandler(contactSvc), resolver, rl.Scaled(3), rdb, logger)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
