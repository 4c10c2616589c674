package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"tenge/internal/core"
	"tenge/internal/currency"
	"tenge/internal/storage"
)

// AccountService manages monetary accounts. Balances live in canonical
// currency; explicit edits touch only title and the include flag, the
// amount itself is moved exclusively by the ledger engine.
type AccountService struct {
	store     storage.Store
	converter *currency.Converter
}

func NewAccountService(store storage.Store, converter *currency.Converter) *AccountService {
	return &AccountService{store: store, converter: converter}
}

type AccountView struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Amount         string `json:"amount"`
	IncludeInTotal bool   `json:"include_in_total"`
}

type AccountListView struct {
	Total    string        `json:"total"`
	Currency string        `json:"currency"`
	Accounts []AccountView `json:"accounts"`
}

func (s *AccountService) Create(ctx context.Context, title string, amount decimal.Decimal, includeInTotal bool, userID int64) (*Result, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, userErr(err)
	}

	opening, err := s.converter.ToCanonical(amount, user.PreferredCurrency)
	if err != nil {
		if errors.Is(err, core.ErrUnsupportedCurrency) {
			return nil, core.InvalidInput("Unsupported currency")
		}
		return nil, err
	}

	account := core.Account{
		Title:          title,
		Amount:         opening,
		IncludeInTotal: includeInTotal,
		UserID:         userID,
	}
	if err := account.Validate(); err != nil {
		return nil, core.InvalidInput("%s", err.Error())
	}

	created, err := s.store.CreateAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	view, err := s.view(created, user.PreferredCurrency)
	if err != nil {
		return nil, err
	}
	return &Result{
		Status:  http.StatusOK,
		Message: "Account created successfully",
		Data:    view,
	}, nil
}

// List returns all accounts display-converted, plus the included-total
// converted once to the user's preferred currency.
func (s *AccountService) List(ctx context.Context, userID int64) (*Result, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, userErr(err)
	}

	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	var total core.Money
	views := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		if a.IncludeInTotal {
			total = total.Add(a.Amount)
		}
		view, err := s.view(a, user.PreferredCurrency)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	formattedTotal, err := s.converter.Format(total, user.PreferredCurrency)
	if err != nil {
		return nil, err
	}

	return &Result{
		Status: http.StatusOK,
		Data: AccountListView{
			Total:    formattedTotal,
			Currency: string(user.PreferredCurrency),
			Accounts: views,
		},
	}, nil
}

// Update edits an account's title and include flag. The balance is
// deliberately left alone: it is a running total owned by the ledger.
func (s *AccountService) Update(ctx context.Context, id int64, title string, includeInTotal bool, userID int64) (*Result, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, userErr(err)
	}

	account, err := s.store.GetAccount(ctx, id, userID)
	if err != nil {
		return nil, notFoundErr(err, "Account not found")
	}

	account.Title = title
	account.IncludeInTotal = includeInTotal
	if err := account.Validate(); err != nil {
		return nil, core.InvalidInput("%s", err.Error())
	}

	updated, err := s.store.UpdateAccount(ctx, account)
	if err != nil {
		return nil, notFoundErr(err, "Account not found")
	}

	view, err := s.view(updated, user.PreferredCurrency)
	if err != nil {
		return nil, err
	}
	return &Result{
		Status:  http.StatusOK,
		Message: "Account updated",
		Data:    view,
	}, nil
}

// Delete removes an account. Transactions referencing it keep their
// records; later reversals against it are tolerated and logged by the
// store.
func (s *AccountService) Delete(ctx context.Context, id, userID int64) (*Result, error) {
	if err := s.store.DeleteAccount(ctx, id, userID); err != nil {
		return nil, err
	}
	return &Result{
		Status:  http.StatusOK,
		Message: "Account deleted successfully",
	}, nil
}

func (s *AccountService) view(a core.Account, display core.Currency) (AccountView, error) {
	amount, err := s.converter.Format(a.Amount, display)
	if err != nil {
		return AccountView{}, err
	}
	return AccountView{
		ID:             a.ID,
		Title:          a.Title,
		Amount:         amount,
		IncludeInTotal: a.IncludeInTotal,
	}, nil
}
