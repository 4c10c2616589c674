package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"tenge/internal/core"
	"tenge/internal/services"
)

type transactionRequest struct {
	Type    string          `json:"type,omitempty"`
	FromID  int64           `json:"from_id"`
	ToID    int64           `json:"to_id"`
	Amount  decimal.Decimal `json:"amount"`
	Date    string          `json:"date,omitempty"` // YYYY-MM-DD
	Comment string          `json:"comment,omitempty"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := authedUser(r.Context())
	res, err := s.ledger.Create(r.Context(), services.CreateTransactionInput{
		Type:    req.Type,
		FromID:  req.FromID,
		ToID:    req.ToID,
		Amount:  req.Amount,
		Date:    date,
		Comment: req.Comment,
		UserID:  userID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	writeResult(w, r, res)
}

// handleListTransactions returns one month of transactions; year and
// month query params default to the current month.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	year := now.Year()
	month := now.Month()

	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			writeError(w, r, core.InvalidInput("Invalid year parameter"))
			return
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeError(w, r, core.InvalidInput("Invalid month parameter"))
			return
		}
		month = time.Month(m)
	}

	res, err := s.ledger.List(r.Context(), authedUser(r.Context()), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, r, res)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req transactionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := authedUser(r.Context())
	res, err := s.ledger.Update(r.Context(), services.UpdateTransactionInput{
		ID:      id,
		FromID:  req.FromID,
		ToID:    req.ToID,
		Amount:  req.Amount,
		Date:    date,
		Comment: req.Comment,
		UserID:  userID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	writeResult(w, r, res)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := authedUser(r.Context())
	res, err := s.ledger.Delete(r.Context(), id, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	writeResult(w, r, res)
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	date, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, core.InvalidInput("Invalid date, expected YYYY-MM-DD")
	}
	return date, nil
}
