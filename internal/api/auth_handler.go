package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/auth"
)

// RegisterRequest is the request body for account creation
type RegisterRequest struct {
	Username    string `json:"username"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email,omitempty"`
	Password    string `json:"password"`
	Code        string `json:"code"`
}

// LoginRequest is the request body for password login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SMSLoginRequest is the request body for verification-code login
type SMSLoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

// SendCodeRequest is the request body for requesting a verification code
type SendCodeRequest struct {
	PhoneNumber string `json:"phone_number,omitempty"`
	Email       string `json:"email,omitempty"`
}

// RefreshRequest is the request body for refreshing a session
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SessionResponse is the response body for successful authentication
type SessionResponse struct {
	User   *dreamlog.User  `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

func (s *Server) authRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", s.register)
	r.Post("/login", s.login)
	r.Post("/login/sms", s.loginWithSMS)
	r.Post("/code", s.sendCode)
	r.Post("/refresh", s.refresh)
	return r
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, pair, err := s.authenticator.Register(r.Context(), dreamlog.RegisterUserRequest{
		Username:    req.Username,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
	}, req.Password, req.Code)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, SessionResponse{User: user, Tokens: pair})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, pair, err := s.authenticator.LoginWithPassword(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, SessionResponse{User: user, Tokens: pair})
}

func (s *Server) loginWithSMS(w http.ResponseWriter, r *http.Request) {
	var req SMSLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, pair, err := s.authenticator.LoginWithSMSCode(r.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, SessionResponse{User: user, Tokens: pair})
}

func (s *Server) sendCode(w http.ResponseWriter, r *http.Request) {
	var req SendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var err error
	switch {
	case req.PhoneNumber != "":
		err = s.authenticator.Codes().SendSMSCode(r.Context(), req.PhoneNumber)
	case req.Email != "":
		err = s.authenticator.Codes().SendEmailCode(r.Context(), req.Email)
	default:
		http.Error(w, "phone_number or email is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "sent"})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pair, err := s.authenticator.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]*auth.TokenPair{"tokens": pair})
}
