// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/database"
	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/models"
)

// Me returns the caller's profile.
//
// @Summary Current user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=models.User}
// @Router /users/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s, ok := subject(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetUserByID(r.Context(), s.UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, user, start)
}

// UpdateMe changes the caller's timezone and mail opt-ins.
//
// @Summary Update current user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateUserRequest true "Fields to change"
// @Success 200 {object} models.APIResponse{data=models.User}
// @Failure 400 {object} models.APIResponse
// @Router /users/me [patch]
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s, ok := subject(w, r)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	user, err := h.users.GetUserByID(r.Context(), s.UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if req.Timezone != nil {
		user.Timezone = *req.Timezone
	}
	if n := req.EmailNotifications; n != nil {
		if n.WeeklyStats != nil {
			user.EmailNotifications.WeeklyStats = *n.WeeklyStats
		}
		if n.News != nil {
			user.EmailNotifications.News = *n.News
		}
	}

	if err := h.users.UpdateUser(r.Context(), user); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, user, start)
}

// Unsubscribe turns off the weekly mail. The link in the mail carries the
// user ID and address, and both must match.
//
// @Summary Unsubscribe from weekly stats
// @Tags Users
// @Accept json
// @Produce json
// @Param body body UnsubscribeRequest true "User ID and email from the mail link"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /users/unsubscribe [post]
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req UnsubscribeRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	user, err := h.users.GetUserByID(r.Context(), req.UserID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		respondServiceError(w, r, err)
		return
	}
	if user == nil || !strings.EqualFold(user.Email, strings.TrimSpace(req.Email)) {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Unknown subscription", nil)
		return
	}

	if user.EmailNotifications.WeeklyStats {
		user.EmailNotifications.WeeklyStats = false
		if err := h.users.UpdateUser(r.Context(), user); err != nil {
			respondServiceError(w, r, err)
			return
		}
		logging.Ctx(r.Context()).Info().
			Str("user_id", user.ID).
			Msg("User unsubscribed from weekly stats")
	}
	respondSuccess(w, http.StatusOK, map[string]bool{"unsubscribed": true}, start)
}

// ListUsers returns every user. Admin only.
//
// @Summary List users
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=[]models.User}
// @Failure 403 {object} models.APIResponse
// @Router /users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	respondSuccess(w, http.StatusOK, users, start)
}
