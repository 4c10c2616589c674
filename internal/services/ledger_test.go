package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tenge/internal/core"
	"tenge/internal/currency"
	"tenge/internal/storage/memory"
)

type eventRecorder struct {
	ops []string
	ids []int64
}

func (r *eventRecorder) PublishLedgerEvent(_ context.Context, op string, transactionID, _ int64) error {
	r.ops = append(r.ops, op)
	r.ids = append(r.ids, transactionID)
	return nil
}

type ledgerFixture struct {
	store  *memory.Store
	ledger *LedgerService
	events *eventRecorder
	userID int64
}

func newLedgerFixture(t *testing.T, preferred core.Currency) *ledgerFixture {
	t.Helper()

	store := memory.NewStore()
	converter, err := currency.NewConverter(currency.DefaultRates())
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}

	user, err := store.CreateUser(context.Background(), "kairat@example.com", "hash", preferred)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	events := &eventRecorder{}
	return &ledgerFixture{
		store:  store,
		ledger: NewLedgerService(store, converter, events),
		events: events,
		userID: user.ID,
	}
}

func (f *ledgerFixture) account(t *testing.T, title string, cents int64, include bool) int64 {
	t.Helper()
	a, err := f.store.CreateAccount(context.Background(), core.Account{
		Title:          title,
		Amount:         core.Money{Cents: cents},
		IncludeInTotal: include,
		UserID:         f.userID,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return a.ID
}

func (f *ledgerFixture) incomeCategory(t *testing.T, title string) int64 {
	t.Helper()
	c, err := f.store.CreateIncomeCategory(context.Background(), core.IncomeCategory{
		Title: title, UserID: f.userID,
	})
	if err != nil {
		t.Fatalf("CreateIncomeCategory: %v", err)
	}
	return c.ID
}

func (f *ledgerFixture) expenseCategory(t *testing.T, title string) int64 {
	t.Helper()
	c, err := f.store.CreateExpenseCategory(context.Background(), core.ExpenseCategory{
		Title: title, UserID: f.userID,
	})
	if err != nil {
		t.Fatalf("CreateExpenseCategory: %v", err)
	}
	return c.ID
}

func (f *ledgerFixture) balance(t *testing.T, accountID int64) int64 {
	t.Helper()
	a, err := f.store.GetAccount(context.Background(), accountID, f.userID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	return a.Amount.Cents
}

func TestLedgerCreateIncome(t *testing.T) {
	f := newLedgerFixture(t, core.USD)
	salary := f.incomeCategory(t, "Salary")
	card := f.account(t, "Card", 0, true)

	res, err := f.ledger.Create(context.Background(), CreateTransactionInput{
		Type:   "income",
		FromID: salary,
		ToID:   card,
		Amount: decimal.NewFromInt(10),
		UserID: f.userID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if res.Status != http.StatusCreated {
		t.Errorf("status = %d, want 201", res.Status)
	}
	// 10 USD at rate 450 lands as 4500 KZT.
	if got := f.balance(t, card); got != 450000 {
		t.Errorf("account balance = %d tiyn, want 450000", got)
	}

	view := res.Data.(TransactionView)
	if view.Amount != "10$" {
		t.Errorf("view amount = %q, want 10$", view.Amount)
	}
	if view.CurrentBalance != "10$" {
		t.Errorf("current balance = %q, want 10$", view.CurrentBalance)
	}
	if view.FromKind != "income_category" || view.ToKind != "account" {
		t.Errorf("ref kinds = %s/%s", view.FromKind, view.ToKind)
	}
}

func TestLedgerCreateExpense(t *testing.T) {
	f := newLedgerFixture(t, core.KZT)
	card := f.account(t, "Card", 500000, true)
	food := f.expenseCategory(t, "Food")

	res, err := f.ledger.Create(context.Background(), CreateTransactionInput{
		Type:   "expense",
		FromID: card,
		ToID:   food,
		Amount: decimal.NewFromInt(1500),
		UserID: f.userID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got := f.balance(t, card); got != 350000 {
		t.Errorf("account balance = %d, want 350000", got)
	}
	view := res.Data.(TransactionView)
	if view.CurrentBalance != "3500₸" {
		t.Errorf("current balance = %q, want 3500₸", view.CurrentBalance)
	}
}

func TestLedgerCreateTransferConservesTotal(t *testing.T) {
	f := newLedgerFixture(t, core.KZT)
	card := f.account(t, "Card", 400000, true)
	cash := f.account(t, "Cash", 100000, true)

	before, _ := f.store.IncludedBalance(context.Background(), f.userID)

	_, err := f.ledger.Create(context.Background(), CreateTransactionInput{
		Type:   "transfer",
		FromID: card,
		ToID:   cash,
		Amount: decimal.NewFromInt(1000),
		UserID: f.userID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got := f.balance(t, card); got != 300000 {
		t.Errorf("source balance = %d, want 300000", got)
	}
	if got := f.balance(t, cash); got != 200000 {
		t.Errorf("target balance = %d, want 200000", got)
	}
	after, _ := f.store.IncludedBalance(context.Background(), f.userID)
	if before != after {
		t.Errorf("included total changed: %d -> %d", before.Cents, after.Cents)
	}
}

func TestLedgerCreateValidation(t *testing.T) {
	f := newLedgerFixture(t, core.KZT)
	card := f.account(t, "Card", 100000, true)
	food := f.expenseCategory(t, "Food")

	tests := []struct {
		name   string
		in     CreateTransactionInput
		status int
	}{
		{
			name:   "unknown type",
			in:     CreateTransactionInput{Type: "refund", FromID: card, ToID: food, Amount: decimal.NewFromInt(1), UserID: f.userID},
			status: http.StatusBadRequest,
		},
		{
			name:   "zero amount",
			in:     CreateTransactionInput{Type: "expense", FromID: card, ToID: food, Amount: decimal.Zero, UserID: f.userID},
			status: http.StatusBadRequest,
		},
		{
			name:   "negative amount",
			in:     CreateTransactionInput{Type: "expense", FromID: card, ToID: food, Amount: decimal.NewFromInt(-5), UserID: f.userID},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing category",
			in:     CreateTransactionInput{Type: "expense", FromID: card, ToID: 9999, Amount: decimal.NewFromInt(1), UserID: f.userID},
			status: http.StatusNotFound,
		},
		{
			name:   "missing account",
			in:     CreateTransactionInput{Type: "expense", FromID: 9999, ToID: food, Amount: decimal.NewFromInt(1), UserID: f.userID},
			status: http.StatusNotFound,
		},
		{
			name:   "unknown user",
			in:     CreateTransactionInput{Type: "expense", FromID: card, ToID: food, Amount: decimal.NewFromInt(1), UserID: 9999},
			status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Create(context.Background(), tt.in)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := core.StatusOf(err); got != tt.status {
				t.Errorf("status = %d, want %d (err: %v)", got, tt.status, err)
			}
			// No balance side-effect on rejected writes.
			if got := f.balance(t, card); got != 100000 {
				t.Errorf("balance changed to %d after rejected write", got)
			}
		})
	}
}

func TestLedgerDeleteRestoresBalances(t *testing.T) {
	tests := []struct {
		name string
		typ  string
	}{
		{"income reversal", "income"},
		{"expense reversal", "expense"},
		{"transfer reversal", "transfer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t, core.KZT)
			card := f.account(t, "Card", 300000, true)
			cash := f.account(t, "Cash", 100000, true)
			salary := f.incomeCategory(t, "Salary")
			food := f.expenseCategory(t, "Food")

			var fromID, toID int64
			switch tt.typ {
			case "income":
				fromID, toID = salary, card
			case "expense":
				fromID, toID = card, food
			case "transfer":
				fromID, toID = card, cash
			}

			res, err := f.ledger.Create(context.Background(), CreateTransactionInput{
				Type:   tt.typ,
				FromID: fromID,
				ToID:   toID,
				Amount: decimal.NewFromInt(500),
				UserID: f.userID,
			})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			id := res.Data.(TransactionView).ID

			if _, err := f.ledger.Delete(context.Background(), id, f.userID); err != nil {
				t.Fatalf("Delete: %v", err)
			}

			if got := f.balance(t, card); got != 300000 {
				t.Errorf("card balance = %d after delete, want 300000", got)
			}
			if got := f.balance(t, cash); got != 100000 {
				t.Errorf("cash balance = %d after delete, want 100000", got)
			}
			if _, err := f.store.GetTransaction(context.Background(), id, f.userID); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("transaction still present after delete: %v", err)
			}
		})
	}
}

func TestLedgerDeleteToleratesMissingAccount(t *testing.T) {
	f := newLedgerFixture(t, core.KZT)
	card := f.account(t, "Card", 300000, true)
	food := f.expenseCategory(t, "Food")

	res, err := f.ledger.Create(context.Background(), CreateTransactionInput{
		Type:   "expense",
		FromID: card,
		ToID:   food,
		Amount: decimal.NewFromInt(100),
		UserID: f.userID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := res.Data.(TransactionView).ID

	// The account disappears before the transaction is deleted. The
	// reversal is skipped with a warning instead of failing the delete.
	if err := f.store.DeleteAccount(context.Background(), card, f.userID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	if _, err := f.ledger.Delete(context.Background(), id, f.userID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.store.GetTransaction(context.Background(), id, f.userID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("transaction still present after delete: %v", err)
	}
}

func TestLedgerUpdateSameRefs(t *testing.T) {
	f := newLedgerFixture(t, core.KZT)
	card := f.account(t, "Card", 500000, true)
	food := f.expenseCategory(t, "Food")

	res, err := f.ledger.Create(context.Background(), CreateTransactionInput{
		Type:   "expense",
		FromID: card,
		ToID:   food,
		Amount: decimal.NewFromInt(1000),
		UserID: f.userID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := res.Data.(TransactionView).ID

	// Same refs, bigger amount: the account moves only by the diff.
	updated, err := f.ledger.Update(context.Background(), UpdateTransactionInput{
		ID:      id,
		FromID:  card,
		ToID:    food,
		Amount:  decimal.NewFromInt(1500),
		Comment: "groceries",
		UserID:  f.userID,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if got := f.balance(t, card); got != 350000 {
		t.Errorf("balance = %d, want 350000", got)
	}
	view := updated.Data.(TransactionView)
	if view.Amount != "1500₸" {
		t.Errorf("amount = %q, want 1500₸", view.Amount)
	}
	if view.Comment != "groceries" {
		t.Errorf("comment = %q", view.Comment)
	}
	if view.CurrentBalance != "3500₸" {
		t.Errorf("current balance = %q, want 3500₸", view.CurrentBalance)
	}
}

func TestLedgerUpdateEqualsDeletePlusCreate(t *testing.T) {
	f := newLedgerFixture(t, core.KZT)
	card := f.account(t, "Card", 500000, true)
	cash := f.account(t, "Cash", 100000, true)
	wallet := f.account(t, "Wallet", 50000, true)

	res, err := f.ledger.Create(context.Background(), CreateTransactionInput{
		Type:   "transfer",
		FromID: card,
		ToID:   cash,
		Amount: decimal.NewFromInt(1000),
		UserID: f.userID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := res.Data.(TransactionView).ID

	// Rebase the transfer onto a different target. The old target must
	// be restored and the new one credited, atomically.
	if _, err := f.ledger.Update(context.Background(), UpdateTransactionInput{
		ID:     id,
		FromID: card,
		ToID:   wallet,
		Amount: decimal.NewFromInt(2000),
		UserID: f.userID,
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if got := f.balance(t, card); got != 300000 {
		t.Errorf("source = %d, want 300000", got)
	}
	if got := f.balance(t, cash); got != 100000 {
		t.Errorf("old target = %d, want 100000 (restored)", got)
	}
	if got := f.balance(t, wallet); got != 250000 {
		t.Errorf("new target = %d, want 250000", got)
	}
}

func TestLedgerUpdateKeepsType(t *testing.T) {
	f := newLedgerFixture(t, core.KZT)
	card := f.account(t, "Card", 500000, true)
	food := f.expenseCategory(t, "Food")

	res, err := f.ledger.Create(context.Background(), CreateTransactionInput{
		Type:   "expense",
		FromID: card,
		ToID:   food,
		Amount: decimal.NewFromInt(100),
		UserID: f.userID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := res.Data.(TransactionView).ID

	updated, err := f.ledger.Update(context.Background(), UpdateTransactionInput{
		ID:     id,
		FromID: card,
		ToID:   food,
		Amount: decimal.NewFromInt(200),
		UserID: f.userID,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := updated.Data.(TransactionView).Type; got != "expense" {
		t.Errorf("type = %q, want expense", got)
	}
}

func TestLedgerList(t *testing.T) {
	f := newLedgerFixture(t, core.KZT)
	card := f.account(t, "Card", 1000000, true)
	food := f.expenseCategory(t, "Food")
	salary := f.incomeCategory(t, "Salary")

	mkDate := func(day int) time.Time {
		return time.Date(2025, time.March, day, 10, 0, 0, 0, time.UTC)
	}

	for i, in := range []CreateTransactionInput{
		{Type: "income", FromID: salary, ToID: card, Amount: decimal.NewFromInt(5000), Date: mkDate(1), UserID: f.userID},
		{Type: "expense", FromID: card, ToID: food, Amount: decimal.NewFromInt(700), Date: mkDate(5), UserID: f.userID},
		// Outside the listed month.
		{Type: "expense", FromID: card, ToID: food, Amount: decimal.NewFromInt(100), Date: time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), UserID: f.userID},
	} {
		if _, err := f.ledger.Create(context.Background(), in); err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
	}

	res, err := f.ledger.List(context.Background(), f.userID, 2025, time.March)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	views := res.Data.([]TransactionView)
	if len(views) != 2 {
		t.Fatalf("got %d transactions, want 2", len(views))
	}
	// Newest first.
	if views[0].Type != "expense" || views[1].Type != "income" {
		t.Errorf("order = %s, %s; want expense, income", views[0].Type, views[1].Type)
	}
	if views[0].FromTitle != "Card" || views[0].ToTitle != "Food" {
		t.Errorf("labels = %q -> %q", views[0].FromTitle, views[0].ToTitle)
	}
	if views[1].FromTitle != "Salary" {
		t.Errorf("income source label = %q, want Salary", views[1].FromTitle)
	}
}

func TestLedgerPublishesEvents(t *testing.T) {
	f := newLedgerFixture(t, core.KZT)
	card := f.account(t, "Card", 500000, true)
	food := f.expenseCategory(t, "Food")

	res, err := f.ledger.Create(context.Background(), CreateTransactionInput{
		Type:   "expense",
		FromID: card,
		ToID:   food,
		Amount: decimal.NewFromInt(100),
		UserID: f.userID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := res.Data.(TransactionView).ID

	if _, err := f.ledger.Update(context.Background(), UpdateTransactionInput{
		ID: id, FromID: card, ToID: food, Amount: decimal.NewFromInt(200), UserID: f.userID,
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := f.ledger.Delete(context.Background(), id, f.userID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	want := []string{"created", "updated", "deleted"}
	if fmt.Sprint(f.events.ops) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", f.events.ops, want)
	}
	for _, gotID := range f.events.ids {
		if gotID != id {
			t.Errorf("event transaction id = %d, want %d", gotID, id)
		}
	}
}
