// Package worker exports committed ledger transactions to an external
// statement sheet, driven by AMQP events with a periodic pending scan
// as backup.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tenge/internal/amqp"
	"tenge/internal/core"
	"tenge/internal/currency"
	"tenge/internal/sheets"
	"tenge/internal/storage"
)

// EventConsumer is the slice of the AMQP client the worker needs.
type EventConsumer interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEventMessage) error) error
}

// ExportWorker turns committed transactions into statement rows. Rows
// are written in canonical currency so the sheet is a stable record
// regardless of the user's display preference.
type ExportWorker struct {
	store     storage.Store
	writer    sheets.StatementWriter
	converter *currency.Converter
	batchSize int
	interval  time.Duration
}

func NewExportWorker(store storage.Store, writer sheets.StatementWriter, converter *currency.Converter, batchSize int, interval time.Duration) *ExportWorker {
	return &ExportWorker{
		store:     store,
		writer:    writer,
		converter: converter,
		batchSize: batchSize,
		interval:  interval,
	}
}

// Run consumes ledger events and scans for pending rows on a ticker
// until the context ends.
func (w *ExportWorker) Run(ctx context.Context, consumer EventConsumer) error {
	g, ctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			err := consumer.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := w.ProcessPending(ctx); err != nil {
					slog.ErrorContext(ctx, "Pending export scan failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}

// HandleLedgerEvent processes a single ledger event from AMQP.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"transaction_id", msg.TransactionID,
		"operation", msg.Op,
		"user_id", msg.UserID)

	if msg.Op == "deleted" {
		// The row is gone; the statement keeps what was exported while
		// the transaction existed.
		slog.InfoContext(ctx, "Transaction deleted, nothing to export",
			"transaction_id", msg.TransactionID)
		return nil
	}

	t, err := w.store.GetTransaction(ctx, msg.TransactionID, msg.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted between publish and consume. Drop the event.
			slog.WarnContext(ctx, "Transaction no longer exists, skipping export",
				"transaction_id", msg.TransactionID)
			return nil
		}
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.exportTransaction(ctx, t)
}

// ProcessPending exports transactions that have not been exported yet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.PendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, t := range pending {
		if err := w.exportTransaction(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				"transaction_id", t.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck drains a larger pending batch at worker startup to
// recover from missed events or worker downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.PendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	synced := 0
	failed := 0
	for _, t := range pending {
		if err := w.exportTransaction(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				"transaction_id", t.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", synced,
		"errors", failed)

	return nil
}

func (w *ExportWorker) exportTransaction(ctx context.Context, t core.Transaction) error {
	row, err := w.statementRow(ctx, t)
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, t.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"transaction_id", t.ID, "error", markErr)
		}
		return fmt.Errorf("build statement row: %w", err)
	}

	ref, err := w.writer.AppendStatement(ctx, row)
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, t.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"transaction_id", t.ID, "error", markErr)
		}
		return fmt.Errorf("append to statement: %w", err)
	}

	if err := w.store.MarkExported(ctx, t.ID); err != nil {
		// The append actually worked, so don't fail the event.
		slog.ErrorContext(ctx, "Failed to mark as exported",
			"transaction_id", t.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"transaction_id", t.ID,
		"row_ref", ref,
		"amount_cents", t.Amount.Cents)

	return nil
}

func (w *ExportWorker) statementRow(ctx context.Context, t core.Transaction) (sheets.StatementRow, error) {
	fromTitle, err := w.entityTitle(ctx, t.From)
	if err != nil {
		return sheets.StatementRow{}, err
	}
	toTitle, err := w.entityTitle(ctx, t.To)
	if err != nil {
		return sheets.StatementRow{}, err
	}

	amount, err := w.converter.Format(t.Amount, core.CanonicalCurrency)
	if err != nil {
		return sheets.StatementRow{}, err
	}
	balance, err := w.converter.Format(t.CurrentBalance, core.CanonicalCurrency)
	if err != nil {
		return sheets.StatementRow{}, err
	}

	return sheets.StatementRow{
		TransactionID: t.ID,
		Date:          t.Date.Format("2006-01-02"),
		Type:          string(t.Type),
		From:          fromTitle,
		To:            toTitle,
		Amount:        amount,
		Balance:       balance,
		Comment:       t.Comment,
	}, nil
}

// entityTitle resolves a reference's display label, falling back to a
// kind/id placeholder when the entity has since been deleted.
func (w *ExportWorker) entityTitle(ctx context.Context, ref core.EntityRef) (string, error) {
	titles, err := w.store.EntityTitles(ctx, ref.Kind, []int64{ref.ID})
	if err != nil {
		return "", fmt.Errorf("resolve %s %d: %w", ref.Kind, ref.ID, err)
	}
	if title, ok := titles[ref.ID]; ok {
		return title, nil
	}
	return fmt.Sprintf("%s #%d", ref.Kind, ref.ID), nil
}
