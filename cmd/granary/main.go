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

	"github.com/go-playground/validator/v10"

	"github.com/granary-books/granary/internal/app"
	"github.com/granary-books/granary/internal/ledger/accounts"
	"github.com/granary-books/granary/internal/ledger/journal"
	"github.com/granary-books/granary/internal/ledger/openitems"
	"github.com/granary-books/granary/internal/ledger/reports"
	"github.com/granary-books/granary/internal/observability"
	"github.com/granary-books/granary/internal/platform/db"
	"github.com/granary-books/granary/internal/platform/migrate"
	"github.com/granary-books/granary/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := migrate.Up(migrations.FS, ".", cfg.PGDSN); err != nil {
		logger.Error("apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{
		MaxConns:        cfg.PGMaxConns,
		MaxConnLifetime: cfg.PGConnLifetime,
	})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	validate := validator.New()

	accountsService := accounts.NewService(accounts.NewRepository(pool), logger)
	journalService := journal.NewService(journal.NewRepository(pool), logger, metrics)
	openItemsRepo := openitems.NewRepository(pool)
	reportsService := reports.NewService(reports.NewRepository(pool), openItemsRepo, logger, metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AccountsHandler:  accounts.NewHandler(logger, accountsService, validate),
		JournalHandler:   journal.NewHandler(logger, journalService, validate),
		OpenItemsHandler: openitems.NewHandler(logger, openItemsRepo, validate),
		ReportsHandler:   reports.NewHandler(logger, reportsService),
		Pool:             pool,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
