package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tenge/internal/amqp"
	"tenge/internal/backend"
	"tenge/internal/config"
	"tenge/internal/core"
	"tenge/internal/currency"
	apphttp "tenge/internal/http"
	applog "tenge/internal/log"
	"tenge/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	logger.Info("Starting tenge server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	rawRates, err := cfg.Rates()
	if err != nil {
		logger.Error("Failed to load exchange rates", applog.FieldError, err)
		os.Exit(1)
	}
	rates := make(currency.Rates, len(rawRates))
	for code, rate := range rawRates {
		rates[core.Currency(code)] = rate
	}
	converter, err := currency.NewConverter(rates)
	if err != nil {
		logger.Error("Failed to build currency converter", applog.FieldError, err)
		os.Exit(1)
	}

	store, err := backend.Open(cfg)
	if err != nil {
		logger.Error("Failed to open data backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("Data backend initialized", "backend", cfg.DataBackend)

	// Ledger events are optional: without AMQP the engine still works,
	// the export worker just relies on its pending scan.
	var publisher services.LedgerEventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	users := services.NewUserService(store, cfg.JWTSecret, cfg.TokenTTL)
	accounts := services.NewAccountService(store, converter)
	categories := services.NewCategoryService(store, converter)
	ledger := services.NewLedgerService(store, converter, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, users, accounts, categories, ledger, users)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting HTTP server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
