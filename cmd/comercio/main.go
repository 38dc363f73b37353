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

	"golang.org/x/sync/errgroup"

	"github.com/comercio-erp/comercio-erp/internal/app"
	"github.com/comercio-erp/comercio-erp/internal/billing"
	"github.com/comercio-erp/comercio-erp/internal/delivery"
	"github.com/comercio-erp/comercio-erp/internal/inventory"
	"github.com/comercio-erp/comercio-erp/internal/masterdata"
	"github.com/comercio-erp/comercio-erp/internal/numbering"
	"github.com/comercio-erp/comercio-erp/internal/platform/db"
	"github.com/comercio-erp/comercio-erp/internal/sales"
	"github.com/comercio-erp/comercio-erp/internal/shared"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	clock := shared.Clock(shared.SystemClock)
	auditLogger := shared.NewAuditLogger(pool)
	changeTracker := shared.NewPGChangeTracker(pool)
	sequencer := numbering.NewPGSequencer(pool)
	ledger := inventory.NewLedger(clock)

	refs := masterdata.NewRepository(pool)
	movements := inventory.NewRepository(pool)

	salesService := sales.NewService(sales.NewRepository(pool), refs, ledger, sequencer, auditLogger, clock, logger)
	billingService := billing.NewService(billing.NewRepository(pool), refs, movements, ledger, sequencer, auditLogger, changeTracker, clock, logger)
	deliveryService := delivery.NewService(delivery.NewRepository(pool), refs, sequencer, auditLogger, clock, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Pool:            pool,
		SalesHandler:    sales.NewHandler(salesService, logger),
		BillingHandler:  billing.NewHandler(billingService, logger),
		DeliveryHandler: delivery.NewHandler(deliveryService, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
