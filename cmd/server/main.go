package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/delivery-ledger/internal/config"
	"github.com/mamadbah2/delivery-ledger/internal/repository"
	"github.com/mamadbah2/delivery-ledger/internal/repository/memory"
	"github.com/mamadbah2/delivery-ledger/internal/repository/mongodb"
	"github.com/mamadbah2/delivery-ledger/internal/repository/sheets"
	"github.com/mamadbah2/delivery-ledger/internal/repository/sqlstore"
	"github.com/mamadbah2/delivery-ledger/internal/scheduler"
	"github.com/mamadbah2/delivery-ledger/internal/server/handlers"
	"github.com/mamadbah2/delivery-ledger/internal/server/router"
	deliverysvc "github.com/mamadbah2/delivery-ledger/internal/service/delivery"
	"github.com/mamadbah2/delivery-ledger/pkg/clients/webhook"
	"github.com/mamadbah2/delivery-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, err := openStore(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init store",
			zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close store", zap.Error(err))
		}
	}()

	var sheetSink deliverysvc.SheetSink
	if cfg.SheetsEnabled() {
		sink, err := sheets.NewGoogleSheetSink(context.Background(), cfg.Sheets, baseLogger.Named("sink.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets sink", zap.Error(err))
		}
		sheetSink = sink
		baseLogger.Info("spreadsheet mirror enabled")
	} else {
		baseLogger.Warn("spreadsheet credentials missing, mirror disabled")
	}

	var notifier webhook.Client
	if cfg.WebhookEnabled() {
		notifier = webhook.NewClient(cfg.Webhook)
		baseLogger.Info("webhook notifications enabled")
	}

	ledger := deliverysvc.NewService(store, sheetSink, notifier, baseLogger.Named("svc.delivery"))
	deliveryHandler := handlers.NewDeliveryHandler(ledger, baseLogger.Named("handlers.delivery"))
	authHandler := handlers.NewAuthHandler(cfg.Auth.Password, baseLogger.Named("handlers.auth"))
	engine := router.New(deliveryHandler, authHandler, baseLogger.Named("router"))

	if notifier != nil {
		sched := scheduler.NewScheduler(cfg.Reminder, store, notifier, baseLogger.Named("scheduler"))
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, baseLogger *zap.Logger) (repository.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memory.NewStore("", baseLogger.Named("store.memory"))
	case config.DriverFile:
		return memory.NewStore(cfg.Store.Path, baseLogger.Named("store.file"))
	case config.DriverSQLite:
		return sqlstore.NewSQLiteStore(ctx, cfg.Store.Path, baseLogger.Named("store.sqlite"))
	case config.DriverPostgres:
		return sqlstore.NewPostgresStore(ctx, cfg.Store.PostgresDSN, baseLogger.Named("store.postgres"))
	case config.DriverMongo:
		return mongodb.NewStore(ctx, cfg.Store.MongoURI, cfg.Store.MongoDBName)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
