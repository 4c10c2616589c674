package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"tenge/internal/core"
	"tenge/internal/currency"
	"tenge/internal/storage"
)

// LedgerEventPublisher receives a notification after a ledger write has
// committed. Publish failures must never fail the ledger operation.
type LedgerEventPublisher interface {
	PublishLedgerEvent(ctx context.Context, op string, transactionID, userID int64) error
}

// LedgerService is the transaction engine. It validates and converts
// incoming amounts, derives the account side-effects from the
// transaction type table, and hands the whole write to the store as one
// atomic unit. Edits and deletes reverse the recorded side-effect
// before (or together with) applying the new one.
type LedgerService struct {
	store     storage.Store
	converter *currency.Converter
	events    LedgerEventPublisher
}

func NewLedgerService(store storage.Store, converter *currency.Converter, events LedgerEventPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		converter: converter,
		events:    events,
	}
}

type CreateTransactionInput struct {
	Type    string
	FromID  int64
	ToID    int64
	Amount  decimal.Decimal // in the user's preferred currency
	Date    time.Time
	Comment string
	UserID  int64
}

type UpdateTransactionInput struct {
	ID      int64
	FromID  int64
	ToID    int64
	Amount  decimal.Decimal
	Date    time.Time
	Comment string
	UserID  int64
}

// TransactionView is the display projection of a transaction: canonical
// amounts re-converted to the user's preferred currency with its glyph.
type TransactionView struct {
	ID             int64     `json:"id"`
	Type           string    `json:"type"`
	FromID         int64     `json:"from_id"`
	FromKind       string    `json:"from_kind"`
	FromTitle      string    `json:"from_title,omitempty"`
	ToID           int64     `json:"to_id"`
	ToKind         string    `json:"to_kind"`
	ToTitle        string    `json:"to_title,omitempty"`
	Amount         string    `json:"amount"`
	Date           time.Time `json:"date"`
	Comment        string    `json:"comment"`
	Currency       string    `json:"currency"`
	CurrentBalance string    `json:"current_balance"`
}

func (s *LedgerService) Create(ctx context.Context, in CreateTransactionInput) (*Result, error) {
	typ := core.TransactionType(in.Type)
	if !typ.Valid() {
		return nil, core.InvalidInput("Invalid transaction type")
	}

	user, err := s.store.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, userErr(err)
	}

	amount, err := s.canonicalAmount(in.Amount, user.PreferredCurrency)
	if err != nil {
		return nil, err
	}

	from := core.EntityRef{Kind: typ.FromKind(), ID: in.FromID}
	to := core.EntityRef{Kind: typ.ToKind(), ID: in.ToID}
	if err := s.checkRefs(ctx, in.UserID, from, to); err != nil {
		return nil, err
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	t := core.Transaction{
		Type:     typ,
		From:     from,
		To:       to,
		Amount:   amount,
		Date:     date,
		Comment:  in.Comment,
		Currency: user.PreferredCurrency,
		UserID:   in.UserID,
	}

	recorded, err := s.store.RecordTransaction(ctx, t, typ.Deltas(amount, from.ID, to.ID))
	if err != nil {
		return nil, ledgerErr(err)
	}

	s.publish(ctx, "created", recorded.ID, recorded.UserID)

	view, err := s.project(recorded)
	if err != nil {
		return nil, err
	}
	return &Result{
		Status:  http.StatusCreated,
		Message: "Transaction created successfully",
		Data:    view,
	}, nil
}

func (s *LedgerService) Update(ctx context.Context, in UpdateTransactionInput) (*Result, error) {
	user, err := s.store.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, userErr(err)
	}

	existing, err := s.store.GetTransaction(ctx, in.ID, in.UserID)
	if err != nil {
		return nil, notFoundErr(err, "Transaction not found")
	}

	// The type is immutable once created; the edit keeps its sign
	// convention and its role kinds.
	typ := existing.Type

	amount, err := s.canonicalAmount(in.Amount, user.PreferredCurrency)
	if err != nil {
		return nil, err
	}

	from := core.EntityRef{Kind: typ.FromKind(), ID: in.FromID}
	to := core.EntityRef{Kind: typ.ToKind(), ID: in.ToID}
	if err := s.checkRefs(ctx, in.UserID, from, to); err != nil {
		return nil, err
	}

	var deltas []core.AccountDelta
	if from == existing.From && to == existing.To {
		// Same accounts: undo-old-apply-new collapses into a single
		// increment, so no intermediate balance is ever observable.
		diff := core.Money{Cents: amount.Cents - existing.Amount.Cents}
		deltas = typ.Deltas(diff, from.ID, to.ID)
	} else {
		// Rebased onto different entities: reverse the original
		// side-effect in full and apply the new one, still one atomic
		// store write.
		deltas = append(
			core.Negate(typ.Deltas(existing.Amount, existing.From.ID, existing.To.ID)),
			typ.Deltas(amount, from.ID, to.ID)...,
		)
	}

	updated := existing
	updated.From = from
	updated.To = to
	updated.Amount = amount
	updated.Comment = in.Comment
	if !in.Date.IsZero() {
		updated.Date = in.Date
	}

	updated, err = s.store.RewriteTransaction(ctx, updated, deltas)
	if err != nil {
		return nil, ledgerErr(err)
	}

	s.publish(ctx, "updated", updated.ID, updated.UserID)

	view, err := s.project(updated)
	if err != nil {
		return nil, err
	}
	return &Result{
		Status:  http.StatusOK,
		Message: "Transaction updated successfully",
		Data:    view,
	}, nil
}

func (s *LedgerService) Delete(ctx context.Context, id, userID int64) (*Result, error) {
	existing, err := s.store.GetTransaction(ctx, id, userID)
	if err != nil {
		return nil, notFoundErr(err, "Transaction not found")
	}

	reversal := core.Negate(existing.Type.Deltas(existing.Amount, existing.From.ID, existing.To.ID))
	if err := s.store.DeleteTransaction(ctx, id, userID, reversal); err != nil {
		return nil, ledgerErr(err)
	}

	s.publish(ctx, "deleted", id, userID)

	return &Result{
		Status:  http.StatusOK,
		Message: "Transaction deleted",
	}, nil
}

// List returns the user's transactions for one month, newest first,
// display-projected and labeled with the referenced entities' titles
// resolved at read time.
func (s *LedgerService) List(ctx context.Context, userID int64, year int, month time.Month) (*Result, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, userErr(err)
	}

	start, end := core.MonthRange(year, month)
	txs, err := s.store.ListTransactions(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	titles, err := s.resolveTitles(ctx, txs)
	if err != nil {
		return nil, err
	}

	views := make([]TransactionView, 0, len(txs))
	for _, t := range txs {
		view, err := s.project(t)
		if err != nil {
			return nil, err
		}
		view.FromTitle = titles[t.From]
		view.ToTitle = titles[t.To]
		views = append(views, view)
	}

	return &Result{Status: http.StatusOK, Data: views}, nil
}

// canonicalAmount converts a user-currency amount into canonical money,
// rejecting non-positive values before they can corrupt a balance.
func (s *LedgerService) canonicalAmount(amount decimal.Decimal, from core.Currency) (core.Money, error) {
	if !amount.IsPositive() {
		return core.Money{}, core.InvalidInput("Transaction amount must be positive")
	}
	m, err := s.converter.ToCanonical(amount, from)
	if err != nil {
		if errors.Is(err, core.ErrUnsupportedCurrency) {
			return core.Money{}, core.InvalidInput("Unsupported currency")
		}
		return core.Money{}, err
	}
	if !m.IsPositive() {
		return core.Money{}, core.InvalidInput("Transaction amount is too small")
	}
	return m, nil
}

func (s *LedgerService) checkRefs(ctx context.Context, userID int64, refs ...core.EntityRef) error {
	for _, ref := range refs {
		ok, err := s.store.EntityExists(ctx, ref, userID)
		if err != nil {
			return err
		}
		if !ok {
			return core.NotFound("%s %d not found", refLabel(ref.Kind), ref.ID)
		}
	}
	return nil
}

func refLabel(kind core.EntityKind) string {
	switch kind {
	case core.KindAccount:
		return "Account"
	case core.KindIncomeCategory:
		return "Income category"
	case core.KindExpenseCategory:
		return "Expense category"
	}
	return "Entity"
}

func (s *LedgerService) project(t core.Transaction) (TransactionView, error) {
	amount, err := s.converter.Format(t.Amount, t.Currency)
	if err != nil {
		return TransactionView{}, fmt.Errorf("format amount: %w", err)
	}
	balance, err := s.converter.Format(t.CurrentBalance, t.Currency)
	if err != nil {
		return TransactionView{}, fmt.Errorf("format balance: %w", err)
	}
	return TransactionView{
		ID:             t.ID,
		Type:           string(t.Type),
		FromID:         t.From.ID,
		FromKind:       string(t.From.Kind),
		ToID:           t.To.ID,
		ToKind:         string(t.To.Kind),
		Amount:         amount,
		Date:           t.Date,
		Comment:        t.Comment,
		Currency:       string(t.Currency),
		CurrentBalance: balance,
	}, nil
}

func (s *LedgerService) resolveTitles(ctx context.Context, txs []core.Transaction) (map[core.EntityRef]string, error) {
	byKind := make(map[core.EntityKind]map[int64]bool)
	for _, t := range txs {
		for _, ref := range []core.EntityRef{t.From, t.To} {
			if byKind[ref.Kind] == nil {
				byKind[ref.Kind] = make(map[int64]bool)
			}
			byKind[ref.Kind][ref.ID] = true
		}
	}

	titles := make(map[core.EntityRef]string)
	for kind, idSet := range byKind {
		ids := make([]int64, 0, len(idSet))
		for id := range idSet {
			ids = append(ids, id)
		}
		resolved, err := s.store.EntityTitles(ctx, kind, ids)
		if err != nil {
			return nil, err
		}
		for id, title := range resolved {
			titles[core.EntityRef{Kind: kind, ID: id}] = title
		}
	}
	return titles, nil
}

func (s *LedgerService) publish(ctx context.Context, op string, transactionID, userID int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, op, transactionID, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"operation", op,
			"transaction_id", transactionID,
			"error", err)
	}
}

func userErr(err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.NotFound("User not found")
	}
	return err
}

func notFoundErr(err error, msg string) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.NotFound("%s", msg)
	}
	return err
}

// ledgerErr maps storage failures from a ledger write. A not-found here
// means an account vanished between validation and the write; the store
// rolled the whole write back.
func ledgerErr(err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.NotFound("Account not found")
	}
	return err
}
