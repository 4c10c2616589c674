package http

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

type accountRequest struct {
	Title          string          `json:"title"`
	Amount         decimal.Decimal `json:"amount"`
	IncludeInTotal bool            `json:"include_in_total"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	userID := authedUser(r.Context())
	res, err := s.accounts.Create(r.Context(), req.Title, req.Amount, req.IncludeInTotal, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	writeResult(w, r, res)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID := authedUser(r.Context())
	key := s.userKey(userID, "accounts")

	if cached, ok := s.viewCache.Get(key); ok {
		writeResult(w, r, cached)
		return
	}

	res, err := s.accounts.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.viewCache.Set(key, res)
	writeResult(w, r, res)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req accountRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	userID := authedUser(r.Context())
	res, err := s.accounts.Update(r.Context(), id, req.Title, req.IncludeInTotal, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	writeResult(w, r, res)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := authedUser(r.Context())
	res, err := s.accounts.Delete(r.Context(), id, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	writeResult(w, r, res)
}

func (s *Server) userKey(userID int64, view string) string {
	return fmt.Sprintf("user:%d:%s", userID, view)
}

// invalidateUser drops every cached view belonging to one user. Called
// after any write that could change a formatted payload.
func (s *Server) invalidateUser(userID int64) {
	s.viewCache.DeletePrefix(fmt.Sprintf("user:%d:", userID))
}
