package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tenge/internal/core"
	"tenge/internal/currency"
	"tenge/internal/storage"
)

// CategoryService manages budget categories and their monthly
// budget-vs-actual reports. Plans are stored in canonical currency and
// are never touched by ledger side-effects.
type CategoryService struct {
	store     storage.Store
	converter *currency.Converter
}

func NewCategoryService(store storage.Store, converter *currency.Converter) *CategoryService {
	return &CategoryService{store: store, converter: converter}
}

type CategoryView struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Plan  string `json:"plan"`
}

// CategoryReport compares the planned figure against the month's actual
// transaction total. Both sums are converted to display currency
// independently; canonical and display sums are never mixed.
type CategoryReport struct {
	Budget     string         `json:"budget"`
	Total      string         `json:"total"`
	Categories []CategoryView `json:"categories"`
}

func (s *CategoryService) CreateIncome(ctx context.Context, title string, plan decimal.Decimal, userID int64) (*Result, error) {
	user, planMoney, err := s.planAmount(ctx, title, plan, userID)
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateIncomeCategory(ctx, core.IncomeCategory{
		Title:         title,
		ReceivingPlan: planMoney,
		UserID:        userID,
	})
	if err != nil {
		return nil, err
	}
	view, err := s.categoryView(created.ID, created.Title, created.ReceivingPlan, user.PreferredCurrency)
	if err != nil {
		return nil, err
	}
	return &Result{Status: http.StatusOK, Message: "Income category created", Data: view}, nil
}

func (s *CategoryService) CreateExpense(ctx context.Context, title string, plan decimal.Decimal, userID int64) (*Result, error) {
	user, planMoney, err := s.planAmount(ctx, title, plan, userID)
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateExpenseCategory(ctx, core.ExpenseCategory{
		Title:        title,
		SpendingPlan: planMoney,
		UserID:       userID,
	})
	if err != nil {
		return nil, err
	}
	view, err := s.categoryView(created.ID, created.Title, created.SpendingPlan, user.PreferredCurrency)
	if err != nil {
		return nil, err
	}
	return &Result{Status: http.StatusOK, Message: "Expense category created", Data: view}, nil
}

// IncomeReport lists income categories with the current month's
// received total against the planned total.
func (s *CategoryService) IncomeReport(ctx context.Context, userID int64) (*Result, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, userErr(err)
	}

	categories, err := s.store.ListIncomeCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	var plan core.Money
	views := make([]CategoryView, 0, len(categories))
	for _, c := range categories {
		plan = plan.Add(c.ReceivingPlan)
		view, err := s.categoryView(c.ID, c.Title, c.ReceivingPlan, user.PreferredCurrency)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	report, err := s.report(ctx, userID, core.Income, plan, views, user.PreferredCurrency)
	if err != nil {
		return nil, err
	}
	return &Result{Status: http.StatusOK, Data: report}, nil
}

// ExpenseReport lists expense categories with the current month's spent
// total against the planned total.
func (s *CategoryService) ExpenseReport(ctx context.Context, userID int64) (*Result, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, userErr(err)
	}

	categories, err := s.store.ListExpenseCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	var plan core.Money
	views := make([]CategoryView, 0, len(categories))
	for _, c := range categories {
		plan = plan.Add(c.SpendingPlan)
		view, err := s.categoryView(c.ID, c.Title, c.SpendingPlan, user.PreferredCurrency)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	report, err := s.report(ctx, userID, core.Expense, plan, views, user.PreferredCurrency)
	if err != nil {
		return nil, err
	}
	return &Result{Status: http.StatusOK, Data: report}, nil
}

func (s *CategoryService) UpdateIncome(ctx context.Context, id int64, title string, plan decimal.Decimal, userID int64) (*Result, error) {
	user, planMoney, err := s.planAmount(ctx, title, plan, userID)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateIncomeCategory(ctx, core.IncomeCategory{
		ID:            id,
		Title:         title,
		ReceivingPlan: planMoney,
		UserID:        userID,
	})
	if err != nil {
		return nil, notFoundErr(err, "Income category not found")
	}
	view, err := s.categoryView(updated.ID, updated.Title, updated.ReceivingPlan, user.PreferredCurrency)
	if err != nil {
		return nil, err
	}
	return &Result{Status: http.StatusOK, Message: "Income category updated", Data: view}, nil
}

func (s *CategoryService) UpdateExpense(ctx context.Context, id int64, title string, plan decimal.Decimal, userID int64) (*Result, error) {
	user, planMoney, err := s.planAmount(ctx, title, plan, userID)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateExpenseCategory(ctx, core.ExpenseCategory{
		ID:           id,
		Title:        title,
		SpendingPlan: planMoney,
		UserID:       userID,
	})
	if err != nil {
		return nil, notFoundErr(err, "Expense category not found")
	}
	view, err := s.categoryView(updated.ID, updated.Title, updated.SpendingPlan, user.PreferredCurrency)
	if err != nil {
		return nil, err
	}
	return &Result{Status: http.StatusOK, Message: "Expense category updated", Data: view}, nil
}

func (s *CategoryService) DeleteIncome(ctx context.Context, id, userID int64) (*Result, error) {
	if err := s.store.DeleteIncomeCategory(ctx, id, userID); err != nil {
		return nil, err
	}
	return &Result{Status: http.StatusOK, Message: "Income category deleted"}, nil
}

func (s *CategoryService) DeleteExpense(ctx context.Context, id, userID int64) (*Result, error) {
	if err := s.store.DeleteExpenseCategory(ctx, id, userID); err != nil {
		return nil, err
	}
	return &Result{Status: http.StatusOK, Message: "Expense category deleted"}, nil
}

func (s *CategoryService) planAmount(ctx context.Context, title string, plan decimal.Decimal, userID int64) (core.User, core.Money, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return core.User{}, core.Money{}, userErr(err)
	}
	if strings.TrimSpace(title) == "" {
		return core.User{}, core.Money{}, core.InvalidInput("%s", core.ErrEmptyTitle.Error())
	}
	m, err := s.converter.ToCanonical(plan, user.PreferredCurrency)
	if err != nil {
		if errors.Is(err, core.ErrUnsupportedCurrency) {
			return core.User{}, core.Money{}, core.InvalidInput("Unsupported currency")
		}
		return core.User{}, core.Money{}, err
	}
	return user, m, nil
}

func (s *CategoryService) report(ctx context.Context, userID int64, typ core.TransactionType, plan core.Money, views []CategoryView, display core.Currency) (CategoryReport, error) {
	now := time.Now().UTC()
	start, end := core.MonthRange(now.Year(), now.Month())
	actual, err := s.store.SumTransactions(ctx, userID, typ, start, end)
	if err != nil {
		return CategoryReport{}, err
	}

	budget, err := s.converter.Format(plan, display)
	if err != nil {
		return CategoryReport{}, err
	}
	total, err := s.converter.Format(actual, display)
	if err != nil {
		return CategoryReport{}, err
	}

	return CategoryReport{Budget: budget, Total: total, Categories: views}, nil
}

func (s *CategoryService) categoryView(id int64, title string, plan core.Money, display core.Currency) (CategoryView, error) {
	formatted, err := s.converter.Format(plan, display)
	if err != nil {
		return CategoryView{}, err
	}
	return CategoryView{ID: id, Title: title, Plan: formatted}, nil
}
