package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tenge/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Users

func (s *SQLiteStore) CreateUser(ctx context.Context, email, passwordHash string, preferred core.Currency) (core.User, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, preferred_currency) VALUES (?, ?, ?)",
		email, passwordHash, string(preferred))
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("create user id: %w", err)
	}
	return core.User{ID: id, Email: email, PasswordHash: passwordHash, PreferredCurrency: preferred}, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, preferred_currency FROM users WHERE id = ?", id))
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, preferred_currency FROM users WHERE email = ?", email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	var cur string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &cur); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, fmt.Errorf("user: %w", core.ErrNotFound)
		}
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.PreferredCurrency = core.Currency(cur)
	return u, nil
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, id int64, patch UserPatch) (core.User, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *patch.PasswordHash)
	}
	if patch.PreferredCurrency != nil {
		sets = append(sets, "preferred_currency = ?")
		args = append(args, string(*patch.PreferredCurrency))
	}
	if len(sets) > 0 {
		args = append(args, id)
		res, err := s.db.ExecContext(ctx,
			"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return core.User{}, fmt.Errorf("update user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
		}
	}
	return s.GetUser(ctx, id)
}

// Accounts

func (s *SQLiteStore) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO accounts (title, amount_cents, include_in_total, user_id) VALUES (?, ?, ?, ?)",
		a.Title, a.Amount.Cents, a.IncludeInTotal, a.UserID)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("create account id: %w", err)
	}
	a.ID = id
	return a, nil
}

func (s *SQLiteStore) GetAccount(ctx context.Context, id, userID int64) (core.Account, error) {
	var a core.Account
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, amount_cents, include_in_total, user_id FROM accounts WHERE id = ? AND user_id = ?",
		id, userID).Scan(&a.ID, &a.Title, &a.Amount.Cents, &a.IncludeInTotal, &a.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
		}
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, amount_cents, include_in_total, user_id FROM accounts WHERE user_id = ? ORDER BY id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Title, &a.Amount.Cents, &a.IncludeInTotal, &a.UserID); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *SQLiteStore) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET title = ?, amount_cents = ?, include_in_total = ? WHERE id = ? AND user_id = ?",
		a.Title, a.Amount.Cents, a.IncludeInTotal, a.ID, a.UserID)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Account{}, fmt.Errorf("account %d: %w", a.ID, core.ErrNotFound)
	}
	return a, nil
}

func (s *SQLiteStore) DeleteAccount(ctx context.Context, id, userID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// Categories

func (s *SQLiteStore) CreateIncomeCategory(ctx context.Context, c core.IncomeCategory) (core.IncomeCategory, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO income_categories (title, receiving_plan_cents, user_id) VALUES (?, ?, ?)",
		c.Title, c.ReceivingPlan.Cents, c.UserID)
	if err != nil {
		return core.IncomeCategory{}, fmt.Errorf("create income category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.IncomeCategory{}, fmt.Errorf("create income category id: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) ListIncomeCategories(ctx context.Context, userID int64) ([]core.IncomeCategory, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, receiving_plan_cents, user_id FROM income_categories WHERE user_id = ? ORDER BY id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list income categories: %w", err)
	}
	defer rows.Close()

	var cats []core.IncomeCategory
	for rows.Next() {
		var c core.IncomeCategory
		if err := rows.Scan(&c.ID, &c.Title, &c.ReceivingPlan.Cents, &c.UserID); err != nil {
			return nil, fmt.Errorf("scan income category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (s *SQLiteStore) UpdateIncomeCategory(ctx context.Context, c core.IncomeCategory) (core.IncomeCategory, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE income_categories SET title = ?, receiving_plan_cents = ? WHERE id = ? AND user_id = ?",
		c.Title, c.ReceivingPlan.Cents, c.ID, c.UserID)
	if err != nil {
		return core.IncomeCategory{}, fmt.Errorf("update income category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.IncomeCategory{}, fmt.Errorf("income category %d: %w", c.ID, core.ErrNotFound)
	}
	return c, nil
}

func (s *SQLiteStore) DeleteIncomeCategory(ctx context.Context, id, userID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM income_categories WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete income category: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateExpenseCategory(ctx context.Context, c core.ExpenseCategory) (core.ExpenseCategory, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO expense_categories (title, spending_plan_cents, user_id) VALUES (?, ?, ?)",
		c.Title, c.SpendingPlan.Cents, c.UserID)
	if err != nil {
		return core.ExpenseCategory{}, fmt.Errorf("create expense category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.ExpenseCategory{}, fmt.Errorf("create expense category id: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) ListExpenseCategories(ctx context.Context, userID int64) ([]core.ExpenseCategory, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, spending_plan_cents, user_id FROM expense_categories WHERE user_id = ? ORDER BY id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list expense categories: %w", err)
	}
	defer rows.Close()

	var cats []core.ExpenseCategory
	for rows.Next() {
		var c core.ExpenseCategory
		if err := rows.Scan(&c.ID, &c.Title, &c.SpendingPlan.Cents, &c.UserID); err != nil {
			return nil, fmt.Errorf("scan expense category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (s *SQLiteStore) UpdateExpenseCategory(ctx context.Context, c core.ExpenseCategory) (core.ExpenseCategory, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE expense_categories SET title = ?, spending_plan_cents = ? WHERE id = ? AND user_id = ?",
		c.Title, c.SpendingPlan.Cents, c.ID, c.UserID)
	if err != nil {
		return core.ExpenseCategory{}, fmt.Errorf("update expense category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ExpenseCategory{}, fmt.Errorf("expense category %d: %w", c.ID, core.ErrNotFound)
	}
	return c, nil
}

func (s *SQLiteStore) DeleteExpenseCategory(ctx context.Context, id, userID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM expense_categories WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete expense category: %w", err)
	}
	return nil
}

// Entity references

func tableFor(kind core.EntityKind) (string, error) {
	switch kind {
	case core.KindAccount:
		return "accounts", nil
	case core.KindIncomeCategory:
		return "income_categories", nil
	case core.KindExpenseCategory:
		return "expense_categories", nil
	}
	return "", fmt.Errorf("unknown entity kind %q", kind)
}

func (s *SQLiteStore) EntityExists(ctx context.Context, ref core.EntityRef, userID int64) (bool, error) {
	table, err := tableFor(ref.Kind)
	if err != nil {
		return false, err
	}
	var one int
	err = s.db.QueryRowContext(ctx,
		"SELECT 1 FROM "+table+" WHERE id = ? AND user_id = ?", ref.ID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s %d: %w", ref.Kind, ref.ID, err)
	}
	return true, nil
}

func (s *SQLiteStore) EntityTitles(ctx context.Context, kind core.EntityKind, ids []int64) (map[int64]string, error) {
	titles := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title FROM "+table+" WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("resolve %s titles: %w", kind, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles[id] = title
	}
	return titles, rows.Err()
}

// Ledger writes

func (s *SQLiteStore) RecordTransaction(ctx context.Context, t core.Transaction, deltas []core.AccountDelta) (core.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin record transaction: %w", err)
	}
	defer tx.Rollback()

	if err := applyDeltas(ctx, tx, t.UserID, deltas, false); err != nil {
		return core.Transaction{}, err
	}

	// Snapshot strictly after the increments, inside the same tx.
	balance, err := includedBalanceTx(ctx, tx, t.UserID)
	if err != nil {
		return core.Transaction{}, err
	}
	t.CurrentBalance = balance

	res, err := tx.ExecContext(ctx, `
		INSERT INTO transactions
			(type, from_kind, from_id, to_kind, to_id, amount_cents, date, comment, currency, current_balance_cents, user_id, sync_state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')`,
		string(t.Type), string(t.From.Kind), t.From.ID, string(t.To.Kind), t.To.ID,
		t.Amount.Cents, t.Date, t.Comment, string(t.Currency), t.CurrentBalance.Cents, t.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit record transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"id", t.ID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"balance_cents", t.CurrentBalance.Cents,
		"user_id", t.UserID)
	return t, nil
}

func (s *SQLiteStore) RewriteTransaction(ctx context.Context, t core.Transaction, deltas []core.AccountDelta) (core.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin rewrite transaction: %w", err)
	}
	defer tx.Rollback()

	if err := applyDeltas(ctx, tx, t.UserID, deltas, false); err != nil {
		return core.Transaction{}, err
	}

	balance, err := includedBalanceTx(ctx, tx, t.UserID)
	if err != nil {
		return core.Transaction{}, err
	}
	t.CurrentBalance = balance

	res, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET from_kind = ?, from_id = ?, to_kind = ?, to_id = ?, amount_cents = ?,
			date = ?, comment = ?, current_balance_cents = ?, sync_state = 'pending'
		WHERE id = ? AND user_id = ?`,
		string(t.From.Kind), t.From.ID, string(t.To.Kind), t.To.ID, t.Amount.Cents,
		t.Date, t.Comment, t.CurrentBalance.Cents, t.ID, t.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit rewrite transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction rewritten",
		"id", t.ID,
		"amount_cents", t.Amount.Cents,
		"balance_cents", t.CurrentBalance.Cents,
		"user_id", t.UserID)
	return t, nil
}

func (s *SQLiteStore) DeleteTransaction(ctx context.Context, id, userID int64, reversal []core.AccountDelta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	// Accounts removed since the transaction was recorded are tolerated
	// here so deletes cannot deadlock on delete order.
	if err := applyDeltas(ctx, tx, userID, reversal, true); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", userID)
	return nil
}

// applyDeltas increments account balances in place. Each increment is a
// conditional single-row update so concurrent writers serialize on the
// account row. With tolerateMissing set, increments against vanished
// accounts are skipped and logged instead of aborting.
func applyDeltas(ctx context.Context, tx *sql.Tx, userID int64, deltas []core.AccountDelta, tolerateMissing bool) error {
	for _, d := range deltas {
		res, err := tx.ExecContext(ctx,
			"UPDATE accounts SET amount_cents = amount_cents + ? WHERE id = ? AND user_id = ?",
			d.Cents, d.AccountID, userID)
		if err != nil {
			return fmt.Errorf("apply delta to account %d: %w", d.AccountID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("apply delta rows affected: %w", err)
		}
		if n == 0 {
			if tolerateMissing {
				slog.WarnContext(ctx, "Reversal target account missing, balance may drift",
					"account_id", d.AccountID,
					"delta_cents", d.Cents,
					"user_id", userID)
				continue
			}
			return fmt.Errorf("account %d: %w", d.AccountID, core.ErrNotFound)
		}
	}
	return nil
}

func includedBalanceTx(ctx context.Context, tx *sql.Tx, userID int64) (core.Money, error) {
	var cents int64
	err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM accounts WHERE user_id = ? AND include_in_total = 1",
		userID).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("included balance: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

func (s *SQLiteStore) IncludedBalance(ctx context.Context, userID int64) (core.Money, error) {
	var cents int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM accounts WHERE user_id = ? AND include_in_total = 1",
		userID).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("included balance: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// Ledger reads

const transactionColumns = "id, type, from_kind, from_id, to_kind, to_id, amount_cents, date, comment, currency, current_balance_cents, user_id"

func scanTransaction(scan func(...any) error) (core.Transaction, error) {
	var t core.Transaction
	var typ, fromKind, toKind, cur string
	err := scan(&t.ID, &typ, &fromKind, &t.From.ID, &toKind, &t.To.ID,
		&t.Amount.Cents, &t.Date, &t.Comment, &cur, &t.CurrentBalance.Cents, &t.UserID)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.From.Kind = core.EntityKind(fromKind)
	t.To.Kind = core.EntityKind(toKind)
	t.Currency = core.Currency(cur)
	return t, nil
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, id, userID int64) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	t, err := scanTransaction(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
		}
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, userID int64, from, to time.Time) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date DESC, id DESC",
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *SQLiteStore) SumTransactions(ctx context.Context, userID int64, t core.TransactionType, from, to time.Time) (core.Money, error) {
	var cents int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE user_id = ? AND type = ? AND date >= ? AND date <= ?",
		userID, string(t), from, to).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum transactions: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// Statement export state

func (s *SQLiteStore) PendingExport(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE sync_state = 'pending' ORDER BY id LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("pending export: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *SQLiteStore) MarkExported(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE transactions SET sync_state = 'exported' WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MarkExportError(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE transactions SET sync_state = 'error' WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with export error", "id", id)
	return nil
}
