package handler

import (
	"context"
	"net/http"

	"github.com/aidar/challenge-portal/internal/middleware"
	"github.com/aidar/challenge-portal/internal/service"
)

// LoginService вход и выход пользователя
type LoginService interface {
	Login(ctx context.Context, idToken string) (*service.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandler обрабатывает эндпоинты аутентификации
type AuthHandler struct {
	authService LoginService
}

// NewAuthHandler создает новый AuthHandler
func NewAuthHandler(authService LoginService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// LoginRequest представляет тело запроса на логин
type LoginRequest struct {
	IDToken string `json:"id_token"`
}

// Login обрабатывает POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.IDToken == "" {
		RespondWithError(w, r, http.StatusBadRequest, "BAD_REQUEST", "id_token is required")
		return
	}

	result, err := h.authService.Login(r.Context(), req.IDToken)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, result)
}

// Logout обрабатывает POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())

	if err := h.authService.Logout(r.Context(), session.ID); err != nil {
		HandleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
