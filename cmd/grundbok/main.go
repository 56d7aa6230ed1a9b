package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/grundbok/grundbok/internal/accounting"
	"github.com/grundbok/grundbok/internal/accounts"
	"github.com/grundbok/grundbok/internal/app"
	"github.com/grundbok/grundbok/internal/auth"
	"github.com/grundbok/grundbok/internal/ledger"
	"github.com/grundbok/grundbok/internal/observability"
	"github.com/grundbok/grundbok/internal/payroll"
	"github.com/grundbok/grundbok/internal/payroll/taxtable"
	"github.com/grundbok/grundbok/internal/periods"
	"github.com/grundbok/grundbok/internal/platform/cache"
	"github.com/grundbok/grundbok/internal/platform/db"
	"github.com/grundbok/grundbok/internal/shared"
	"github.com/grundbok/grundbok/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tables, err := taxtable.LoadFile(cfg.TaxTablePath)
	if err != nil {
		logger.Error("load tax tables", slog.Any("error", err), slog.String("path", cfg.TaxTablePath))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, "grundbok_session", cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	ledgerCache := ledger.NewCache(redisClient, cfg.PreviewTTL)
	taxEngine := payroll.NewTaxEngine(tables, cfg.SocialFeeRateDecimal())
	generator := payroll.NewGenerator(taxEngine, logger)

	accountingRepo := accounting.NewRepository(dbpool)
	accountingService := accounting.NewService(accountingRepo, auditLogger, ledgerCache, logger)
	accountingService.WithMetrics(metrics)
	transactionHandler := accounting.NewHandler(logger, accountingService, authService)

	payrollRepo := payroll.NewRepository(dbpool)
	payrollService := payroll.NewService(payrollRepo, taxEngine, generator, ledgerCache, accountingService, logger)
	payrollService.WithMetrics(metrics)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	payrollHandler := payroll.NewHandler(logger, payrollService, authService, jobClient)

	accountsRepo := accounts.NewRepository(dbpool)
	accountsHandler := accounts.NewHandler(logger, accountsRepo, authService)

	periodsRepo := periods.NewRepository(dbpool)
	periodsService := periods.NewService(periodsRepo, auditLogger, logger)
	periodsHandler := periods.NewHandler(logger, periodsService, authService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthHandler:        authHandler,
		AccountsHandler:    accountsHandler,
		PayrollHandler:     payrollHandler,
		TransactionHandler: transactionHandler,
		PeriodsHandler:     periodsHandler,
		JobsHandler:        jobsHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
