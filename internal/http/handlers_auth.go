package http

import "net/http"

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, r, res)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, r, res)
}

func (s *Server) handleChangeEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewEmail string `json:"new_email"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.users.ChangeEmail(r.Context(), authedUser(r.Context()), req.NewEmail)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, r, res)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.users.ChangePassword(r.Context(), authedUser(r.Context()), req.OldPassword, req.NewPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, r, res)
}

func (s *Server) handleChangeCurrency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Currency string `json:"currency"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	userID := authedUser(r.Context())
	res, err := s.users.ChangeCurrency(r.Context(), userID, req.Currency)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Display currency changed; every cached formatted view is stale.
	s.invalidateUser(userID)

	writeResult(w, r, res)
}
