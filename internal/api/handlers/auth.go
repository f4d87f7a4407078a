// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/queqiao-arr/queqiao/internal/api/middleware"
	"github.com/queqiao-arr/queqiao/internal/auth"
	"github.com/queqiao-arr/queqiao/internal/models"
)

type AuthHandler struct {
	authService *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest is the bootstrap registration request.
type RegisterRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Email    *string `json:"email,omitempty"`
}

// LoginRequest is a username/password login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func tokenResponse(token string) TokenResponse {
	return TokenResponse{AccessToken: token, TokenType: "bearer"}
}

// Register bootstraps the first account. It stays open only while the user
// table is empty.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.authService.BootstrapRegister(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrBootstrapClosed) {
			RespondError(w, http.StatusForbidden, "Registration is closed")
			return
		}
		log.Debug().Err(err).Msg("bootstrap registration rejected")
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	RespondData(w, http.StatusCreated, map[string]any{
		"user":  user,
		"token": tokenResponse(token),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			RespondError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		log.Error().Err(err).Msg("login failed")
		RespondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	RespondData(w, http.StatusOK, map[string]any{
		"user":  user,
		"token": tokenResponse(token),
	})
}

// Me returns the principal the bearer token resolved to.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	RespondData(w, http.StatusOK, middleware.UserFromContext(r.Context()))
}

// Refresh reissues a token for the current principal, restarting its TTL.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	token, err := h.authService.RefreshToken(user)
	if err != nil {
		log.Error().Err(err).Msg("token refresh failed")
		RespondError(w, http.StatusInternalServerError, "Failed to refresh token")
		return
	}

	RespondData(w, http.StatusOK, tokenResponse(token))
}

// Logout exists for client symmetry only: tokens are stateless and the
// server keeps no revocation list.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	RespondMessage(w, http.StatusOK, "Logged out")
}

func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	username, ok := ParseStringParam(w, r, "username", "username")
	if !ok {
		return
	}

	actor := middleware.UserFromContext(r.Context())

	if err := h.authService.DeleteUser(r.Context(), actor, username); err != nil {
		switch {
		case errors.Is(err, auth.ErrSelfDelete):
			RespondError(w, http.StatusBadRequest, "Cannot delete your own account")
		case errors.Is(err, auth.ErrAdminRequired):
			RespondError(w, http.StatusForbidden, "Administrator privileges required")
		case errors.Is(err, models.ErrUserNotFound):
			RespondError(w, http.StatusNotFound, "User not found")
		default:
			log.Error().Err(err).Str("username", username).Msg("failed to delete user")
			RespondError(w, http.StatusInternalServerError, "Failed to delete user")
		}
		return
	}

	RespondMessage(w, http.StatusOK, "User deleted")
}
