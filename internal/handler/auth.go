// Package handler translates HTTP requests into service calls.
//
// Handlers decode the request, pull the caller from the context (set by the
// auth middleware), call one service method and encode the result. They hold
// no business rules.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/fieldfinder/internal/auth"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/service"
)

// AuthHandler serves /auth/*.
type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	UserID    string     `json:"userId"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      model.Role `json:"role"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

func newAuthResponse(res *service.AuthResult) AuthResponse {
	return AuthResponse{
		UserID:    res.User.ID,
		Email:     res.User.Email,
		Name:      res.User.Name,
		Role:      res.User.Role,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	}
}

// HandleSignup handles POST /auth/signup.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.svc.Signup(r.Context(), service.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAuthResponse(res))
}

// HandleLogin handles POST /auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(res))
}

// HandleLogout handles POST /auth/logout. The bearer token itself is revoked.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	if err := h.svc.Logout(r.Context(), caller); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /auth/me.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	user, err := h.svc.Me(r.Context(), caller)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
