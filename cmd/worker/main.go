package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/grundbok/grundbok/internal/accounting"
	"github.com/grundbok/grundbok/internal/app"
	"github.com/grundbok/grundbok/internal/ledger"
	"github.com/grundbok/grundbok/internal/payroll"
	"github.com/grundbok/grundbok/internal/payroll/taxtable"
	"github.com/grundbok/grundbok/internal/platform/cache"
	"github.com/grundbok/grundbok/internal/platform/db"
	"github.com/grundbok/grundbok/internal/shared"
	"github.com/grundbok/grundbok/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	auditLogger := shared.NewAuditLogger(pool)
	ledgerCache := ledger.NewCache(redisClient, cfg.PreviewTTL)
	taxEngine := payroll.NewTaxEngine(tables, cfg.SocialFeeRateDecimal())
	generator := payroll.NewGenerator(taxEngine, logger)

	accountingRepo := accounting.NewRepository(pool)
	accountingService := accounting.NewService(accountingRepo, auditLogger, ledgerCache, logger)

	payrollRepo := payroll.NewRepository(pool)
	payrollService := payroll.NewService(payrollRepo, taxEngine, generator, ledgerCache, accountingService, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypePayrollPost, Handler: jobs.NewPayrollPostHandler(payrollService, logger)},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
