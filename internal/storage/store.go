// Package storage defines the persistent store the ledger runs on and
// its SQLite implementation. Every multi-record write (account
// increments, balance snapshot, transaction row) happens inside a
// single database transaction: all side-effects commit together or not
// at all.
package storage

import (
	"context"
	"time"

	"tenge/internal/core"
)

// UserPatch is a partial update to a user record. Nil fields are left
// untouched.
type UserPatch struct {
	Email             *string
	PasswordHash      *string
	PreferredCurrency *core.Currency
}

// Store is key-addressed persistent storage for every ledger entity.
// Implementations must make account increments conditional updates so
// concurrent writers serialize on the balance field, and must report
// missing rows as core.ErrNotFound.
type Store interface {
	// Users
	CreateUser(ctx context.Context, email, passwordHash string, preferred core.Currency) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	UpdateUser(ctx context.Context, id int64, patch UserPatch) (core.User, error)

	// Accounts
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	GetAccount(ctx context.Context, id, userID int64) (core.Account, error)
	ListAccounts(ctx context.Context, userID int64) ([]core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) (core.Account, error)
	DeleteAccount(ctx context.Context, id, userID int64) error

	// Categories
	CreateIncomeCategory(ctx context.Context, c core.IncomeCategory) (core.IncomeCategory, error)
	ListIncomeCategories(ctx context.Context, userID int64) ([]core.IncomeCategory, error)
	UpdateIncomeCategory(ctx context.Context, c core.IncomeCategory) (core.IncomeCategory, error)
	DeleteIncomeCategory(ctx context.Context, id, userID int64) error
	CreateExpenseCategory(ctx context.Context, c core.ExpenseCategory) (core.ExpenseCategory, error)
	ListExpenseCategories(ctx context.Context, userID int64) ([]core.ExpenseCategory, error)
	UpdateExpenseCategory(ctx context.Context, c core.ExpenseCategory) (core.ExpenseCategory, error)
	DeleteExpenseCategory(ctx context.Context, id, userID int64) error

	// EntityExists reports whether a referenced entity is present in
	// the collection its kind names, scoped to the owning user.
	EntityExists(ctx context.Context, ref core.EntityRef, userID int64) (bool, error)

	// EntityTitles resolves display labels for referenced entities at
	// read time.
	EntityTitles(ctx context.Context, kind core.EntityKind, ids []int64) (map[int64]string, error)

	// RecordTransaction atomically applies the account deltas, reads
	// the included-account balance after they land, and persists the
	// transaction row with that snapshot. A delta against a missing
	// account aborts the whole write with core.ErrNotFound.
	RecordTransaction(ctx context.Context, t core.Transaction, deltas []core.AccountDelta) (core.Transaction, error)

	// RewriteTransaction atomically applies the compensating deltas
	// for an edit and rewrites the stored row, refreshing the balance
	// snapshot the same way RecordTransaction does.
	RewriteTransaction(ctx context.Context, t core.Transaction, deltas []core.AccountDelta) (core.Transaction, error)

	// DeleteTransaction atomically applies the reversal deltas and
	// removes the row. Reversal against an account that has since been
	// deleted is tolerated and logged as a data-integrity warning.
	DeleteTransaction(ctx context.Context, id, userID int64, reversal []core.AccountDelta) error

	GetTransaction(ctx context.Context, id, userID int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID int64, from, to time.Time) ([]core.Transaction, error)
	SumTransactions(ctx context.Context, userID int64, t core.TransactionType, from, to time.Time) (core.Money, error)

	// IncludedBalance is the sum of canonical amounts over the user's
	// accounts with include_in_total set.
	IncludedBalance(ctx context.Context, userID int64) (core.Money, error)

	// Statement export state
	PendingExport(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkExported(ctx context.Context, id int64) error
	MarkExportError(ctx context.Context, id int64) error

	Close() error
}
