package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tenge/internal/core"
	"tenge/internal/currency"
	"tenge/internal/storage/memory"
)

type categoryFixture struct {
	store      *memory.Store
	categories *CategoryService
	ledger     *LedgerService
	userID     int64
}

func newCategoryFixture(t *testing.T, preferred core.Currency) *categoryFixture {
	t.Helper()

	store := memory.NewStore()
	converter, err := currency.NewConverter(currency.DefaultRates())
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	user, err := store.CreateUser(context.Background(), "dias@example.com", "hash", preferred)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return &categoryFixture{
		store:      store,
		categories: NewCategoryService(store, converter),
		ledger:     NewLedgerService(store, converter, nil),
		userID:     user.ID,
	}
}

func TestCategoryCreate(t *testing.T) {
	f := newCategoryFixture(t, core.USD)

	res, err := f.categories.CreateExpense(context.Background(), "Food", decimal.NewFromInt(200), f.userID)
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	view := res.Data.(CategoryView)
	if view.Title != "Food" || view.Plan != "200$" {
		t.Errorf("view = %+v, want Food / 200$", view)
	}

	// Plan stored canonically: 200 USD = 90000 KZT.
	cats, err := f.store.ListExpenseCategories(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("ListExpenseCategories: %v", err)
	}
	if len(cats) != 1 || cats[0].SpendingPlan.Cents != 9000000 {
		t.Errorf("stored plan = %+v, want 9000000 tiyn", cats)
	}
}

func TestCategoryCreateRejectsEmptyTitle(t *testing.T) {
	f := newCategoryFixture(t, core.KZT)

	for _, create := range []func() (*Result, error){
		func() (*Result, error) {
			return f.categories.CreateIncome(context.Background(), " ", decimal.NewFromInt(1), f.userID)
		},
		func() (*Result, error) {
			return f.categories.CreateExpense(context.Background(), "", decimal.NewFromInt(1), f.userID)
		},
	} {
		_, err := create()
		if err == nil {
			t.Fatal("expected error")
		}
		if got := core.StatusOf(err); got != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", got)
		}
	}
}

func TestExpenseReportBudgetVsActual(t *testing.T) {
	f := newCategoryFixture(t, core.KZT)

	card, err := f.store.CreateAccount(context.Background(), core.Account{
		Title: "Card", Amount: core.Money{Cents: 1000000}, IncludeInTotal: true, UserID: f.userID,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	res, err := f.categories.CreateExpense(context.Background(), "Food", decimal.NewFromInt(5000), f.userID)
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	food := res.Data.(CategoryView).ID

	// A spend in the current month counts toward the report total.
	if _, err := f.ledger.Create(context.Background(), CreateTransactionInput{
		Type:   "expense",
		FromID: card.ID,
		ToID:   food,
		Amount: decimal.NewFromInt(1200),
		Date:   time.Now().UTC(),
		UserID: f.userID,
	}); err != nil {
		t.Fatalf("ledger.Create: %v", err)
	}

	report, err := f.categories.ExpenseReport(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("ExpenseReport: %v", err)
	}

	got := report.Data.(CategoryReport)
	if got.Budget != "5000₸" {
		t.Errorf("budget = %q, want 5000₸", got.Budget)
	}
	if got.Total != "1200₸" {
		t.Errorf("total = %q, want 1200₸", got.Total)
	}
	if len(got.Categories) != 1 || got.Categories[0].Plan != "5000₸" {
		t.Errorf("categories = %+v", got.Categories)
	}
}

func TestIncomeReport(t *testing.T) {
	f := newCategoryFixture(t, core.KZT)

	card, err := f.store.CreateAccount(context.Background(), core.Account{
		Title: "Card", IncludeInTotal: true, UserID: f.userID,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	res, err := f.categories.CreateIncome(context.Background(), "Salary", decimal.NewFromInt(400000), f.userID)
	if err != nil {
		t.Fatalf("CreateIncome: %v", err)
	}
	salary := res.Data.(CategoryView).ID

	if _, err := f.ledger.Create(context.Background(), CreateTransactionInput{
		Type:   "income",
		FromID: salary,
		ToID:   card.ID,
		Amount: decimal.NewFromInt(350000),
		Date:   time.Now().UTC(),
		UserID: f.userID,
	}); err != nil {
		t.Fatalf("ledger.Create: %v", err)
	}

	report, err := f.categories.IncomeReport(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("IncomeReport: %v", err)
	}

	got := report.Data.(CategoryReport)
	if got.Budget != "400000₸" {
		t.Errorf("budget = %q, want 400000₸", got.Budget)
	}
	if got.Total != "350000₸" {
		t.Errorf("total = %q, want 350000₸", got.Total)
	}
}

func TestCategoryUpdateAndDelete(t *testing.T) {
	f := newCategoryFixture(t, core.KZT)

	res, err := f.categories.CreateIncome(context.Background(), "Salary", decimal.NewFromInt(100), f.userID)
	if err != nil {
		t.Fatalf("CreateIncome: %v", err)
	}
	id := res.Data.(CategoryView).ID

	updated, err := f.categories.UpdateIncome(context.Background(), id, "Main salary", decimal.NewFromInt(250), f.userID)
	if err != nil {
		t.Fatalf("UpdateIncome: %v", err)
	}
	view := updated.Data.(CategoryView)
	if view.Title != "Main salary" || view.Plan != "250₸" {
		t.Errorf("view = %+v", view)
	}

	if _, err := f.categories.UpdateIncome(context.Background(), 9999, "Ghost", decimal.NewFromInt(1), f.userID); err == nil {
		t.Error("expected error updating missing category")
	} else if got := core.StatusOf(err); got != http.StatusNotFound {
		t.Errorf("status = %d, want 404", got)
	}

	if _, err := f.categories.DeleteIncome(context.Background(), id, f.userID); err != nil {
		t.Fatalf("DeleteIncome: %v", err)
	}
	cats, _ := f.store.ListIncomeCategories(context.Background(), f.userID)
	if len(cats) != 0 {
		t.Errorf("categories after delete = %+v, want none", cats)
	}
}
