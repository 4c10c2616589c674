package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tenge/internal/amqp"
	"tenge/internal/backend"
	"tenge/internal/config"
	"tenge/internal/core"
	"tenge/internal/currency"
	applog "tenge/internal/log"
	"tenge/internal/sheets"
	gsheet "tenge/internal/sheets/google"
	memsheet "tenge/internal/sheets/memory"
	"tenge/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting tenge-worker")

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Statement sink: Google Sheets when configured, otherwise an
	// in-process sink so the worker still drains the pending queue.
	var writer sheets.StatementWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			OAuthClientJSON: cfg.GoogleOAuthClientJSON,
			OAuthClientFile: cfg.GoogleOAuthClientFile,
			OAuthTokenJSON:  cfg.GoogleOAuthTokenJSON,
			OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memsheet.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, using in-memory sink")
	}

	var consumer worker.EventConsumer
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		consumer = amqpClient
	} else {
		logger.Info("AMQP disabled - relying on periodic pending scan only")
	}

	exportWorker := worker.NewExportWorker(store, writer, converter, cfg.ExportBatchSize, cfg.ExportInterval)

	logger.Info("Performing startup export check...")
	if err := exportWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup export check failed", applog.FieldError, err)
		// Keep going; the periodic scan retries.
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	if err := exportWorker.Run(ctx, consumer); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
