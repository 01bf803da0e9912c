// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package api

import (
	"net/http"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/auth"
)

// setTokenCookie stores the access token for browser clients next to the
// JSON body, which API clients use instead.
func (h *Handler) setTokenCookie(w http.ResponseWriter, tokens *auth.TokenResponse) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		MaxAge:   int(tokens.ExpiresIn),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// Register creates an account-owner and logs them in.
//
// @Summary Sign up
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Sign-up data"
// @Success 201 {object} models.APIResponse{data=auth.TokenResponse}
// @Failure 400 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req RegisterRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	tokens, err := h.auth.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Timezone:  req.Timezone,
		ServerURL: req.ServerURL,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	h.setTokenCookie(w, tokens)
	respondSuccess(w, http.StatusCreated, tokens, start)
}

// Login exchanges credentials for an access and refresh token.
//
// @Summary Log in
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} models.APIResponse{data=auth.TokenResponse}
// @Failure 401 {object} models.APIResponse
// @Failure 429 {object} models.APIResponse
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req LoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	tokens, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	h.setTokenCookie(w, tokens)
	respondSuccess(w, http.StatusOK, tokens, start)
}

// Refresh rotates the refresh token.
//
// @Summary Refresh tokens
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body RefreshRequest true "Refresh token"
// @Success 200 {object} models.APIResponse{data=auth.TokenResponse}
// @Failure 401 {object} models.APIResponse
// @Router /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req RefreshRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	tokens, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	h.setTokenCookie(w, tokens)
	respondSuccess(w, http.StatusOK, tokens, start)
}

// Logout revokes the refresh token and clears the cookie.
//
// @Summary Log out
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body RefreshRequest true "Refresh token"
// @Success 200 {object} models.APIResponse
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req RefreshRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		respondServiceError(w, r, err)
		return
	}

	h.clearTokenCookie(w)
	respondSuccess(w, http.StatusOK, map[string]bool{"loggedOut": true}, start)
}

// VerifyEmail consumes the token from the welcome mail.
//
// @Summary Verify email address
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body TokenRequest true "Verification token"
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse
// @Router /auth/verify-email [post]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req TokenRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.auth.VerifyEmail(r.Context(), req.Token); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]bool{"verified": true}, start)
}

// RequestPasswordReset mails a reset link. It answers the same way whether
// or not the address is registered.
//
// @Summary Request a password reset
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body PasswordResetRequest true "Email"
// @Success 200 {object} models.APIResponse
// @Router /auth/request-password-reset [post]
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req PasswordResetRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]bool{"requested": true}, start)
}

// ResetPassword sets a new password using the mailed token.
//
// @Summary Reset password
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body ResetPasswordRequest true "Token and new password"
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse
// @Router /auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req ResetPasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]bool{"reset": true}, start)
}

// Session returns the caller with their accounts.
//
// @Summary Current session
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=auth.SessionInfo}
// @Failure 401 {object} models.APIResponse
// @Router /auth/session [get]
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s, ok := subject(w, r)
	if !ok {
		return
	}

	info, err := h.auth.Session(r.Context(), s.UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, info, start)
}
