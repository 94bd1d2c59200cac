package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/bigblink-erp/bigblink-erp/internal/accounting/accounts"
	"github.com/bigblink-erp/bigblink-erp/internal/accounting/journals"
	"github.com/bigblink-erp/bigblink-erp/internal/accounting/mappings"
	"github.com/bigblink-erp/bigblink-erp/internal/accounting/periods"
	"github.com/bigblink-erp/bigblink-erp/internal/ap"
	"github.com/bigblink-erp/bigblink-erp/internal/app"
	"github.com/bigblink-erp/bigblink-erp/internal/ar"
	"github.com/bigblink-erp/bigblink-erp/internal/audit"
	"github.com/bigblink-erp/bigblink-erp/internal/auth"
	"github.com/bigblink-erp/bigblink-erp/internal/billing/costs"
	"github.com/bigblink-erp/bigblink-erp/internal/billing/invoices"
	"github.com/bigblink-erp/bigblink-erp/internal/export"
	"github.com/bigblink-erp/bigblink-erp/internal/freight"
	"github.com/bigblink-erp/bigblink-erp/internal/integration"
	"github.com/bigblink-erp/bigblink-erp/internal/masterdata/suppliers"
	"github.com/bigblink-erp/bigblink-erp/internal/observability"
	"github.com/bigblink-erp/bigblink-erp/internal/platform/cache"
	"github.com/bigblink-erp/bigblink-erp/internal/platform/db"
	"github.com/bigblink-erp/bigblink-erp/internal/procurement"
	"github.com/bigblink-erp/bigblink-erp/internal/sales/customers"
	"github.com/bigblink-erp/bigblink-erp/internal/sales/quotations"
	"github.com/bigblink-erp/bigblink-erp/internal/shared"
	"github.com/bigblink-erp/bigblink-erp/jobs"
)

// quotationGateway lets the freight module confirm a quotation exists without
// importing the sales package directly.
type quotationGateway struct {
	repo quotations.Repository
}

func (g quotationGateway) Exists(ctx context.Context, quotationID int64) (bool, error) {
	if _, err := g.repo.Get(ctx, quotationID); err != nil {
		if errors.Is(err, quotations.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

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
		logger.Error("connect postgres", slog.Any("error", err))
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

	auditLogger := shared.NewAuditLogger(pool)
	approvalRecorder := shared.NewApprovalRecorder(pool, logger)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	mappingRepo := mappings.NewRepository(pool)
	if err := mappingRepo.ValidateRequired(ctx); err != nil {
		logger.Error("account mappings incomplete", slog.Any("error", err))
		os.Exit(1)
	}

	periodRepo := periods.NewRepository(pool)
	periodService := periods.NewService(periodRepo)
	journalRepo := journals.NewRepository(pool)
	journalService := journals.NewService(journalRepo, auditLogger)
	integrationHooks := integration.NewHooks(journalService, periodRepo, mappingRepo)

	accountRepo := accounts.NewRepository(pool)
	accountService := accounts.NewService(accountRepo)

	customerRepo := customers.NewRepository(pool)
	customerService := customers.NewService(customerRepo)
	supplierRepo := suppliers.NewRepository(pool)
	supplierService := suppliers.NewService(supplierRepo)

	quotationRepo := quotations.NewRepository(pool)
	quotationService := quotations.NewService(quotationRepo, customerRepo, approvalRecorder, auditLogger, integrationHooks, logger)

	invoiceRepo := invoices.NewRepository(pool)
	invoiceService := invoices.NewService(invoiceRepo, auditLogger)
	costRepo := costs.NewRepository(pool)
	costService := costs.NewService(costRepo, auditLogger)

	procurementRepo := procurement.NewRepository(pool)
	procurementService := procurement.NewService(procurementRepo, supplierRepo, approvalRecorder, auditLogger, integrationHooks, logger)

	arRepo := ar.NewRepository(pool)
	arService := ar.NewService(arRepo, auditLogger, integrationHooks, logger)
	arAging := ar.NewAgingService(arRepo, redisClient, logger)

	apRepo := ap.NewRepository(pool)
	apService := ap.NewService(apRepo, procurementRepo, auditLogger, integrationHooks, logger)
	apAging := ap.NewAgingService(apRepo, redisClient, logger)

	freightRepo := freight.NewRepository(pool)
	freightService := freight.NewService(freightRepo, quotationGateway{repo: quotationRepo}, auditLogger)

	auditService := audit.NewService(audit.NewRepository(pool))

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, cfg.JWTSecret, cfg.JWTTTL)
	authHandler := auth.NewHandler(logger, authService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Auth:               authService,
		AuthHandler:        authHandler,
		CustomersHandler:   customers.NewHandler(logger, customerService),
		SuppliersHandler:   suppliers.NewHandler(logger, supplierService),
		QuotationsHandler:  quotations.NewHandler(logger, quotationService),
		InvoicesHandler:    invoices.NewHandler(logger, invoiceService),
		CostsHandler:       costs.NewHandler(logger, costService),
		ProcurementHandler: procurement.NewHandler(logger, procurementService),
		ARHandler:          ar.NewHandler(logger, arService, arAging, idempotencyStore),
		APHandler:          ap.NewHandler(logger, apService, apAging, idempotencyStore),
		FreightHandler:     freight.NewHandler(logger, freightService),
		AccountsHandler:    accounts.NewHandler(logger, accountService),
		PeriodsHandler:     periods.NewHandler(logger, periodService),
		JournalsHandler:    journals.NewHandler(logger, journalService),
		MappingsHandler:    mappings.NewHandler(logger, mappingRepo),
		ExportHandler:      export.NewHandler(logger, arService, apService),
		AuditHandler:       audit.NewHandler(logger, auditService),
		JobsHandler:        jobs.NewHandler(inspector, jobsClient, logger),
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
