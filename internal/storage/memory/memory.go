// Package memory is an in-process implementation of storage.Store.
// It backs the "memory" data backend and the service tests. A single
// mutex makes every multi-record write atomic, mirroring the SQLite
// store's transactional guarantees.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"tenge/internal/core"
	"tenge/internal/storage"
)

type Store struct {
	mu sync.Mutex

	users             map[int64]core.User
	accounts          map[int64]core.Account
	incomeCategories  map[int64]core.IncomeCategory
	expenseCategories map[int64]core.ExpenseCategory
	transactions      map[int64]core.Transaction
	exportState       map[int64]string

	nextID int64
}

var _ storage.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users:             make(map[int64]core.User),
		accounts:          make(map[int64]core.Account),
		incomeCategories:  make(map[int64]core.IncomeCategory),
		expenseCategories: make(map[int64]core.ExpenseCategory),
		transactions:      make(map[int64]core.Transaction),
		exportState:       make(map[int64]string),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Close() error { return nil }

// Users

func (s *Store) CreateUser(_ context.Context, email, passwordHash string, preferred core.Currency) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return core.User{}, fmt.Errorf("create user: email already taken")
		}
	}
	u := core.User{ID: s.id(), Email: email, PasswordHash: passwordHash, PreferredCurrency: preferred}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user: %w", core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user: %w", core.ErrNotFound)
}

func (s *Store) UpdateUser(_ context.Context, id int64, patch storage.UserPatch) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.PreferredCurrency != nil {
		u.PreferredCurrency = *patch.PreferredCurrency
	}
	s.users[id] = u
	return u, nil
}

// Accounts

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) GetAccount(_ context.Context, id, userID int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	return a, nil
}

func (s *Store) ListAccounts(_ context.Context, userID int64) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[a.ID]
	if !ok || cur.UserID != a.UserID {
		return core.Account{}, fmt.Errorf("account %d: %w", a.ID, core.ErrNotFound)
	}
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) DeleteAccount(_ context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok && a.UserID == userID {
		delete(s.accounts, id)
	}
	return nil
}

// Categories

func (s *Store) CreateIncomeCategory(_ context.Context, c core.IncomeCategory) (core.IncomeCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.incomeCategories[c.ID] = c
	return c, nil
}

func (s *Store) ListIncomeCategories(_ context.Context, userID int64) ([]core.IncomeCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.IncomeCategory
	for _, c := range s.incomeCategories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateIncomeCategory(_ context.Context, c core.IncomeCategory) (core.IncomeCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.incomeCategories[c.ID]
	if !ok || cur.UserID != c.UserID {
		return core.IncomeCategory{}, fmt.Errorf("income category %d: %w", c.ID, core.ErrNotFound)
	}
	s.incomeCategories[c.ID] = c
	return c, nil
}

func (s *Store) DeleteIncomeCategory(_ context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.incomeCategories[id]; ok && c.UserID == userID {
		delete(s.incomeCategories, id)
	}
	return nil
}

func (s *Store) CreateExpenseCategory(_ context.Context, c core.ExpenseCategory) (core.ExpenseCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.expenseCategories[c.ID] = c
	return c, nil
}

func (s *Store) ListExpenseCategories(_ context.Context, userID int64) ([]core.ExpenseCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.ExpenseCategory
	for _, c := range s.expenseCategories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateExpenseCategory(_ context.Context, c core.ExpenseCategory) (core.ExpenseCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.expenseCategories[c.ID]
	if !ok || cur.UserID != c.UserID {
		return core.ExpenseCategory{}, fmt.Errorf("expense category %d: %w", c.ID, core.ErrNotFound)
	}
	s.expenseCategories[c.ID] = c
	return c, nil
}

func (s *Store) DeleteExpenseCategory(_ context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.expenseCategories[id]; ok && c.UserID == userID {
		delete(s.expenseCategories, id)
	}
	return nil
}

// Entity references

func (s *Store) EntityExists(_ context.Context, ref core.EntityRef, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entityExistsLocked(ref, userID)
}

func (s *Store) entityExistsLocked(ref core.EntityRef, userID int64) (bool, error) {
	switch ref.Kind {
	case core.KindAccount:
		a, ok := s.accounts[ref.ID]
		return ok && a.UserID == userID, nil
	case core.KindIncomeCategory:
		c, ok := s.incomeCategories[ref.ID]
		return ok && c.UserID == userID, nil
	case core.KindExpenseCategory:
		c, ok := s.expenseCategories[ref.ID]
		return ok && c.UserID == userID, nil
	}
	return false, fmt.Errorf("unknown entity kind %q", ref.Kind)
}

func (s *Store) EntityTitles(_ context.Context, kind core.EntityKind, ids []int64) (map[int64]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := make(map[int64]string, len(ids))
	for _, id := range ids {
		switch kind {
		case core.KindAccount:
			if a, ok := s.accounts[id]; ok {
				titles[id] = a.Title
			}
		case core.KindIncomeCategory:
			if c, ok := s.incomeCategories[id]; ok {
				titles[id] = c.Title
			}
		case core.KindExpenseCategory:
			if c, ok := s.expenseCategories[id]; ok {
				titles[id] = c.Title
			}
		default:
			return nil, fmt.Errorf("unknown entity kind %q", kind)
		}
	}
	return titles, nil
}

// Ledger writes

func (s *Store) RecordTransaction(ctx context.Context, t core.Transaction, deltas []core.AccountDelta) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.applyDeltasLocked(ctx, t.UserID, deltas, false); err != nil {
		return core.Transaction{}, err
	}
	t.CurrentBalance = s.includedBalanceLocked(t.UserID)
	t.ID = s.id()
	s.transactions[t.ID] = t
	s.exportState[t.ID] = "pending"
	return t, nil
}

func (s *Store) RewriteTransaction(ctx context.Context, t core.Transaction, deltas []core.AccountDelta) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.transactions[t.ID]
	if !ok || cur.UserID != t.UserID {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	if err := s.applyDeltasLocked(ctx, t.UserID, deltas, false); err != nil {
		return core.Transaction{}, err
	}
	t.CurrentBalance = s.includedBalanceLocked(t.UserID)
	s.transactions[t.ID] = t
	s.exportState[t.ID] = "pending"
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id, userID int64, reversal []core.AccountDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.transactions[id]
	if !ok || cur.UserID != userID {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err := s.applyDeltasLocked(ctx, userID, reversal, true); err != nil {
		return err
	}
	delete(s.transactions, id)
	delete(s.exportState, id)
	return nil
}

// applyDeltasLocked mirrors the SQLite delta semantics. On a strict
// failure partway through it undoes the increments already applied so
// the write stays all-or-nothing.
func (s *Store) applyDeltasLocked(ctx context.Context, userID int64, deltas []core.AccountDelta, tolerateMissing bool) error {
	applied := make([]core.AccountDelta, 0, len(deltas))
	for _, d := range deltas {
		a, ok := s.accounts[d.AccountID]
		if !ok || a.UserID != userID {
			if tolerateMissing {
				slog.WarnContext(ctx, "Reversal target account missing, balance may drift",
					"account_id", d.AccountID,
					"delta_cents", d.Cents,
					"user_id", userID)
				continue
			}
			for _, u := range applied {
				acc := s.accounts[u.AccountID]
				acc.Amount.Cents -= u.Cents
				s.accounts[u.AccountID] = acc
			}
			return fmt.Errorf("account %d: %w", d.AccountID, core.ErrNotFound)
		}
		a.Amount.Cents += d.Cents
		s.accounts[d.AccountID] = a
		applied = append(applied, d)
	}
	return nil
}

func (s *Store) includedBalanceLocked(userID int64) core.Money {
	var cents int64
	for _, a := range s.accounts {
		if a.UserID == userID && a.IncludeInTotal {
			cents += a.Amount.Cents
		}
	}
	return core.Money{Cents: cents}
}

func (s *Store) IncludedBalance(_ context.Context, userID int64) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.includedBalanceLocked(userID), nil
}

// Ledger reads

func (s *Store) GetTransaction(_ context.Context, id, userID int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, userID int64, from, to time.Time) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.UserID != userID {
			continue
		}
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) SumTransactions(_ context.Context, userID int64, typ core.TransactionType, from, to time.Time) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cents int64
	for _, t := range s.transactions {
		if t.UserID != userID || t.Type != typ {
			continue
		}
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		cents += t.Amount.Cents
	}
	return core.Money{Cents: cents}, nil
}

// Statement export state

func (s *Store) PendingExport(_ context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for id, state := range s.exportState {
		if state != "pending" {
			continue
		}
		if t, ok := s.transactions[id]; ok {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkExported(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exportState[id]; ok {
		s.exportState[id] = "exported"
	}
	return nil
}

func (s *Store) MarkExportError(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exportState[id]; ok {
		s.exportState[id] = "error"
	}
	return nil
}
