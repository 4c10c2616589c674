package http

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"tenge/internal/services"
)

type categoryRequest struct {
	Title string          `json:"title"`
	Plan  decimal.Decimal `json:"plan"`
}

func (s *Server) handleCreateIncomeCategory(w http.ResponseWriter, r *http.Request) {
	s.createCategory(w, r, s.categories.CreateIncome)
}

func (s *Server) handleCreateExpenseCategory(w http.ResponseWriter, r *http.Request) {
	s.createCategory(w, r, s.categories.CreateExpense)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request, create func(context.Context, string, decimal.Decimal, int64) (*services.Result, error)) {
	var req categoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	userID := authedUser(r.Context())
	res, err := create(r.Context(), req.Title, req.Plan, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	writeResult(w, r, res)
}

func (s *Server) handleIncomeReport(w http.ResponseWriter, r *http.Request) {
	s.cachedReport(w, r, "income_report", s.categories.IncomeReport)
}

func (s *Server) handleExpenseReport(w http.ResponseWriter, r *http.Request) {
	s.cachedReport(w, r, "expense_report", s.categories.ExpenseReport)
}

func (s *Server) cachedReport(w http.ResponseWriter, r *http.Request, view string, report func(context.Context, int64) (*services.Result, error)) {
	userID := authedUser(r.Context())
	key := s.userKey(userID, view)

	if cached, ok := s.viewCache.Get(key); ok {
		writeResult(w, r, cached)
		return
	}

	res, err := report(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.viewCache.Set(key, res)
	writeResult(w, r, res)
}

func (s *Server) handleUpdateIncomeCategory(w http.ResponseWriter, r *http.Request) {
	s.updateCategory(w, r, s.categories.UpdateIncome)
}

func (s *Server) handleUpdateExpenseCategory(w http.ResponseWriter, r *http.Request) {
	s.updateCategory(w, r, s.categories.UpdateExpense)
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request, update func(context.Context, int64, string, decimal.Decimal, int64) (*services.Result, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req categoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	userID := authedUser(r.Context())
	res, err := update(r.Context(), id, req.Title, req.Plan, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	writeResult(w, r, res)
}

func (s *Server) handleDeleteIncomeCategory(w http.ResponseWriter, r *http.Request) {
	s.deleteCategory(w, r, s.categories.DeleteIncome)
}

func (s *Server) handleDeleteExpenseCategory(w http.ResponseWriter, r *http.Request) {
	s.deleteCategory(w, r, s.categories.DeleteExpense)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request, del func(context.Context, int64, int64) (*services.Result, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := authedUser(r.Context())
	res, err := del(r.Context(), id, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	writeResult(w, r, res)
}
