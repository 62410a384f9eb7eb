package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"spendwise/internal/auth"
	"spendwise/internal/config"
	"spendwise/internal/db"
	"spendwise/internal/events"
	"spendwise/internal/expenses"
	"spendwise/internal/httpserver"
	"spendwise/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("spendwise stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := db.RunMigrations(ctx, dbConn); err != nil {
		return err
	}

	userStore := auth.NewStore(dbConn, cfg.BcryptCost)
	if err := userStore.SeedFromFile(ctx, cfg.UsersPath); err != nil {
		return err
	}
	authSvc := auth.NewService(userStore, cfg.JWTSecret, cfg.TokenTTL)

	var publisher events.Publisher = events.Noop{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
		logger.Info("publishing domain events", "exchange", cfg.AMQPExchange)
	}

	handler := httpserver.NewRouter(httpserver.Deps{
		Logger:      logger,
		Auth:        authSvc,
		Expenses:    expenses.NewStore(dbConn),
		Events:      publisher,
		CORSOrigins: cfg.CORSOrigins,
		Debug:       cfg.Development(),
	})
	return httpserver.New(cfg.HTTPAddr, handler, logger).Run(ctx)
}
