package core

import (
	"strings"
	"time"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

const (
	KindAccount         EntityKind = "account"
	KindIncomeCategory  EntityKind = "income_category"
	KindExpenseCategory EntityKind = "expense_category"
)

type (
	TransactionType string

	// EntityKind names the collection an EntityRef addresses into.
	EntityKind string

	// EntityRef is a weak reference to an account or category.
	EntityRef struct {
		Kind EntityKind
		ID   int64
	}

	User struct {
		ID                int64
		Email             string
		PasswordHash      string
		PreferredCurrency Currency
	}

	// Account holds its balance in canonical currency. The balance is
	// mutated only by explicit edits and by ledger side-effects.
	Account struct {
		ID             int64
		Title          string
		Amount         Money
		IncludeInTotal bool
		UserID         int64
	}

	// IncomeCategory is a planning target, never touched by ledger
	// side-effects.
	IncomeCategory struct {
		ID            int64
		Title         string
		ReceivingPlan Money
		UserID        int64
	}

	ExpenseCategory struct {
		ID           int64
		Title        string
		SpendingPlan Money
		UserID       int64
	}

	Transaction struct {
		ID      int64
		Type    TransactionType
		From    EntityRef
		To      EntityRef
		Amount  Money // canonical currency
		Date    time.Time
		Comment string
		// Currency is the user's preferred currency at creation time,
		// kept for display only.
		Currency Currency
		// CurrentBalance is the included-account total right after this
		// transaction's side-effect was applied.
		CurrentBalance Money
		UserID         int64
	}

	// AccountDelta is a signed increment to one account's balance.
	AccountDelta struct {
		AccountID int64
		Cents     int64
	}
)

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	}
	return false
}

// FromKind returns the collection the from side of this transaction
// type addresses.
func (t TransactionType) FromKind() EntityKind {
	if t == Income {
		return KindIncomeCategory
	}
	return KindAccount
}

// ToKind returns the collection the to side of this transaction type
// addresses.
func (t TransactionType) ToKind() EntityKind {
	if t == Expense {
		return KindExpenseCategory
	}
	return KindAccount
}

// Deltas returns the signed account increments that recording a
// transaction of this type implies. Reversal is the same set negated.
func (t TransactionType) Deltas(amount Money, fromID, toID int64) []AccountDelta {
	switch t {
	case Income:
		return []AccountDelta{{AccountID: toID, Cents: amount.Cents}}
	case Expense:
		return []AccountDelta{{AccountID: fromID, Cents: -amount.Cents}}
	case Transfer:
		return []AccountDelta{
			{AccountID: fromID, Cents: -amount.Cents},
			{AccountID: toID, Cents: amount.Cents},
		}
	}
	return nil
}

// Negate returns the inverse side-effect, used to undo a recorded
// transaction on update and delete.
func Negate(deltas []AccountDelta) []AccountDelta {
	out := make([]AccountDelta, len(deltas))
	for i, d := range deltas {
		out[i] = AccountDelta{AccountID: d.AccountID, Cents: -d.Cents}
	}
	return out
}

func (r EntityRef) IsZero() bool {
	return r.ID == 0 && r.Kind == ""
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// MonthRange returns the closed interval [start of month, end of month]
// used for monthly listings and reports.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}
