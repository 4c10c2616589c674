package worker

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"tenge/internal/amqp"
	"tenge/internal/core"
	"tenge/internal/currency"
	"tenge/internal/sheets"
	memsheet "tenge/internal/sheets/memory"
	"tenge/internal/storage/memory"
)

type workerFixture struct {
	store  *memory.Store
	sink   *memsheet.Store
	worker *ExportWorker
	userID int64
	card   core.Account
	food   core.ExpenseCategory
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	sink := memsheet.New()
	converter, err := currency.NewConverter(currency.DefaultRates())
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}

	user, err := store.CreateUser(ctx, "aidar@example.com", "hash", core.KZT)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	card, err := store.CreateAccount(ctx, core.Account{
		Title: "Card", Amount: core.Money{Cents: 1000000}, IncludeInTotal: true, UserID: user.ID,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	food, err := store.CreateExpenseCategory(ctx, core.ExpenseCategory{Title: "Food", UserID: user.ID})
	if err != nil {
		t.Fatalf("CreateExpenseCategory: %v", err)
	}

	return &workerFixture{
		store:  store,
		sink:   sink,
		worker: NewExportWorker(store, sink, converter, 10, time.Minute),
		userID: user.ID,
		card:   card,
		food:   food,
	}
}

func (f *workerFixture) recordSpend(t *testing.T, cents int64, day int, comment string) core.Transaction {
	t.Helper()
	txn, err := f.store.RecordTransaction(context.Background(), core.Transaction{
		Type:     core.Expense,
		From:     core.EntityRef{Kind: core.KindAccount, ID: f.card.ID},
		To:       core.EntityRef{Kind: core.KindExpenseCategory, ID: f.food.ID},
		Amount:   core.Money{Cents: cents},
		Date:     time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		Comment:  comment,
		Currency: core.KZT,
		UserID:   f.userID,
	}, []core.AccountDelta{{AccountID: f.card.ID, Cents: -cents}})
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	return txn
}

func (f *workerFixture) pendingCount(t *testing.T) int {
	t.Helper()
	pending, err := f.store.PendingExport(context.Background(), 100)
	if err != nil {
		t.Fatalf("PendingExport: %v", err)
	}
	return len(pending)
}

func TestProcessPendingExportsAndMarks(t *testing.T) {
	f := newWorkerFixture(t)
	txn := f.recordSpend(t, 150000, 10, "groceries")

	if err := f.worker.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}

	rows := f.sink.Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	want := sheets.StatementRow{
		TransactionID: txn.ID,
		Date:          "2025-03-10",
		Type:          "expense",
		From:          "Card",
		To:            "Food",
		Amount:        "1500₸",
		Balance:       "8500₸",
		Comment:       "groceries",
	}
	if rows[0] != want {
		t.Errorf("row = %+v, want %+v", rows[0], want)
	}

	if n := f.pendingCount(t); n != 0 {
		t.Errorf("pending after export = %d, want 0", n)
	}

	// Nothing pending, nothing appended.
	if err := f.worker.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending again: %v", err)
	}
	if len(f.sink.Rows()) != 1 {
		t.Error("re-exported an already exported transaction")
	}
}

func TestHandleLedgerEvent(t *testing.T) {
	f := newWorkerFixture(t)
	txn := f.recordSpend(t, 100000, 12, "")

	msg := amqp.NewLedgerEventMessage("created", txn.ID, f.userID)
	if err := f.worker.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}
	if len(f.sink.Rows()) != 1 {
		t.Fatalf("got %d rows, want 1", len(f.sink.Rows()))
	}
}

func TestHandleLedgerEventSkipsDeleted(t *testing.T) {
	f := newWorkerFixture(t)
	txn := f.recordSpend(t, 100000, 12, "")

	// A delete event never appends; the statement keeps history.
	msg := amqp.NewLedgerEventMessage("deleted", txn.ID, f.userID)
	if err := f.worker.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}
	if len(f.sink.Rows()) != 0 {
		t.Errorf("got %d rows, want 0", len(f.sink.Rows()))
	}
}

func TestHandleLedgerEventDropsVanishedTransaction(t *testing.T) {
	f := newWorkerFixture(t)

	// Deleted between publish and consume: the event is dropped, not
	// requeued forever.
	msg := amqp.NewLedgerEventMessage("created", 999, f.userID)
	if err := f.worker.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}
	if len(f.sink.Rows()) != 0 {
		t.Errorf("got %d rows, want 0", len(f.sink.Rows()))
	}
}

func TestEntityTitleFallsBackAfterDelete(t *testing.T) {
	f := newWorkerFixture(t)
	txn := f.recordSpend(t, 100000, 12, "")

	if err := f.store.DeleteExpenseCategory(context.Background(), f.food.ID, f.userID); err != nil {
		t.Fatalf("DeleteExpenseCategory: %v", err)
	}

	if err := f.worker.HandleLedgerEvent(context.Background(), amqp.NewLedgerEventMessage("created", txn.ID, f.userID)); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}

	rows := f.sink.Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if want := "expense_category #" + strconv.FormatInt(f.food.ID, 10); rows[0].To != want {
		t.Errorf("to = %q, want %q", rows[0].To, want)
	}
}

type failingWriter struct{}

func (failingWriter) AppendStatement(context.Context, sheets.StatementRow) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestAppendFailureMarksError(t *testing.T) {
	f := newWorkerFixture(t)
	f.worker = NewExportWorker(f.store, failingWriter{}, f.worker.converter, 10, time.Minute)
	f.recordSpend(t, 100000, 12, "")

	// ProcessPending swallows per-row failures so one bad row cannot
	// stall the scan.
	if err := f.worker.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}

	// The row is parked in the error state, not retried as pending.
	if n := f.pendingCount(t); n != 0 {
		t.Errorf("pending = %d, want 0 (row should be marked error)", n)
	}
}

func TestStartupCheckDrainsBacklog(t *testing.T) {
	f := newWorkerFixture(t)
	for day := 1; day <= 3; day++ {
		f.recordSpend(t, 100000, day, "")
	}

	if err := f.worker.StartupCheck(context.Background()); err != nil {
		t.Fatalf("StartupCheck: %v", err)
	}
	if len(f.sink.Rows()) != 3 {
		t.Errorf("got %d rows, want 3", len(f.sink.Rows()))
	}
	if n := f.pendingCount(t); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	f := newWorkerFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.worker.Run(ctx, nil) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
