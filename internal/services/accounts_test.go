package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"tenge/internal/core"
	"tenge/internal/currency"
	"tenge/internal/storage/memory"
)

func newAccountFixture(t *testing.T, preferred core.Currency) (*AccountService, *memory.Store, int64) {
	t.Helper()

	store := memory.NewStore()
	converter, err := currency.NewConverter(currency.DefaultRates())
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	user, err := store.CreateUser(context.Background(), "aliya@example.com", "hash", preferred)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return NewAccountService(store, converter), store, user.ID
}

func TestAccountCreateConvertsOpeningBalance(t *testing.T) {
	svc, store, userID := newAccountFixture(t, core.USD)

	res, err := svc.Create(context.Background(), "Card", decimal.NewFromInt(100), true, userID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Status != http.StatusOK {
		t.Errorf("status = %d, want 200", res.Status)
	}

	view := res.Data.(AccountView)
	if view.Amount != "100$" {
		t.Errorf("amount = %q, want 100$", view.Amount)
	}

	// Stored canonically: 100 USD = 45000 KZT.
	a, err := store.GetAccount(context.Background(), view.ID, userID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if a.Amount.Cents != 4500000 {
		t.Errorf("stored balance = %d tiyn, want 4500000", a.Amount.Cents)
	}
}

func TestAccountCreateRejectsEmptyTitle(t *testing.T) {
	svc, _, userID := newAccountFixture(t, core.KZT)

	_, err := svc.Create(context.Background(), "   ", decimal.NewFromInt(1), true, userID)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := core.StatusOf(err); got != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", got)
	}
}

func TestAccountListTotalsOnlyIncludedAccounts(t *testing.T) {
	svc, _, userID := newAccountFixture(t, core.KZT)

	for _, a := range []struct {
		title   string
		amount  int64
		include bool
	}{
		{"Card", 1000, true},
		{"Cash", 500, true},
		{"Deposit", 100000, false},
	} {
		if _, err := svc.Create(context.Background(), a.title, decimal.NewFromInt(a.amount), a.include, userID); err != nil {
			t.Fatalf("Create %s: %v", a.title, err)
		}
	}

	res, err := svc.List(context.Background(), userID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	list := res.Data.(AccountListView)
	if list.Total != "1500₸" {
		t.Errorf("total = %q, want 1500₸ (excluded account must not count)", list.Total)
	}
	if list.Currency != "KZT" {
		t.Errorf("currency = %q, want KZT", list.Currency)
	}
	if len(list.Accounts) != 3 {
		t.Errorf("got %d accounts, want 3", len(list.Accounts))
	}
}

func TestAccountUpdateLeavesBalanceAlone(t *testing.T) {
	svc, store, userID := newAccountFixture(t, core.KZT)

	res, err := svc.Create(context.Background(), "Card", decimal.NewFromInt(1000), true, userID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := res.Data.(AccountView).ID

	if _, err := svc.Update(context.Background(), id, "Main card", false, userID); err != nil {
		t.Fatalf("Update: %v", err)
	}

	a, err := store.GetAccount(context.Background(), id, userID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if a.Title != "Main card" || a.IncludeInTotal {
		t.Errorf("account = %+v, want renamed and excluded", a)
	}
	if a.Amount.Cents != 100000 {
		t.Errorf("balance = %d, want 100000 untouched", a.Amount.Cents)
	}
}

func TestAccountUpdateMissing(t *testing.T) {
	svc, _, userID := newAccountFixture(t, core.KZT)

	_, err := svc.Update(context.Background(), 42, "Ghost", true, userID)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := core.StatusOf(err); got != http.StatusNotFound {
		t.Errorf("status = %d, want 404", got)
	}
}

func TestAccountDelete(t *testing.T) {
	svc, store, userID := newAccountFixture(t, core.KZT)

	res, err := svc.Create(context.Background(), "Card", decimal.NewFromInt(1), true, userID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := res.Data.(AccountView).ID

	if _, err := svc.Delete(context.Background(), id, userID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetAccount(context.Background(), id, userID); err == nil {
		t.Error("account still present after delete")
	}

	// Deleting again is a no-op, matching the tolerant reversal policy.
	if _, err := svc.Delete(context.Background(), id, userID); err != nil {
		t.Errorf("second delete: %v", err)
	}
}
