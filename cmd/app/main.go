package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"coursehub-payments/internal/config"
	"coursehub-payments/internal/domain/ports/adapter"
	gatewayAdapters "coursehub-payments/internal/infra/adapters/gateway"
	"coursehub-payments/internal/infra/adapters/notify"
	pg "coursehub-payments/internal/infra/db/postgres"
	"coursehub-payments/internal/infra/i18n"
	"coursehub-payments/internal/infra/logging"
	"coursehub-payments/internal/infra/metrics"
	red "coursehub-payments/internal/infra/redis"
	"coursehub-payments/internal/infra/sched"
	"coursehub-payments/internal/infra/web"
	"coursehub-payments/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway/notifier fallbacks)")
	flag.Parse()

	// Optional .env overlay for local runs; the YAML file stays the source of truth.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	// ---- Migrations ----
	m, err := migrate.New("file://"+cfg.Database.MigrationsPath, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate init")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal().Err(err).Msg("migrate up")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	stash := red.NewTokenStash(redisClient)

	// ---- Repositories ----
	paymentRepo := pg.NewPendingPaymentRepo(pool)
	enrollmentRepo := pg.NewEnrollmentRepo(pool)
	userRepo := pg.NewUserRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Gateway ----
	var checkoutGateway adapter.CheckoutGateway
	if cfg.Gateway.BaseURL != "" {
		checkoutGateway, err = gatewayAdapters.NewRestGateway(cfg.Gateway.Name, cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.VerifyTimeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("gateway")
		}
		logger.Info().Str("gateway", checkoutGateway.Name()).Msg("checkout gateway configured")
	} else if cfg.Runtime.Dev {
		checkoutGateway = gatewayAdapters.NewNoopGateway()
		logger.Warn().Msg("no gateway configured, using noop gateway")
	} else {
		logger.Fatal().Msg("gateway.base_url is required outside dev")
	}

	// ---- Notifier ----
	var notifier adapter.Notifier
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(cfg.SMTP, logger)
	} else {
		notifier = notify.NewNoopNotifier(logger)
		logger.Warn().Msg("no smtp configured, notifications are log-only")
	}

	// ---- i18n ----
	translator, err := i18n.NewTranslator(i18n.LocalesFS, cfg.I18N.Locale)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}

	// ---- Use cases ----
	resolver := usecase.NewTokenResolver(paymentRepo, stash, cfg.Runtime.Dev, logger)
	entitlementUC := usecase.NewEntitlementUseCase(userRepo, enrollmentRepo, logger)
	reconcileUC := usecase.NewReconcileUseCase(
		resolver, paymentRepo, userRepo, entitlementUC,
		checkoutGateway, notifier, tm, locker,
		cfg.Gateway.VerifyTimeout, cfg.Runtime.Dev, logger,
	)
	checkoutUC := usecase.NewCheckoutUseCase(paymentRepo, stash, tm, cfg.Redis.StashTTL, logger)

	// ---- Metrics ----
	metrics.MustRegister()

	// ---- Sweeper ----
	sweeper := sched.NewReconcileSweeper(reconcileUC, paymentRepo, cfg.Sweeper.Interval, cfg.Sweeper.StaleAfter, logger)
	go sweeper.Start(ctx)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	server := web.NewServer(
		reconcileUC, checkoutUC, paymentRepo,
		cfg.URLs.Purchases, cfg.URLs.Checkout,
		translator, auth, cfg.Admin.Password, logger,
	)
	go func() {
		if err := server.Start(cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
