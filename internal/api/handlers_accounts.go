// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/blazer82/analytodon-sub001/internal/accounts"
	"github.com/blazer82/analytodon-sub001/internal/models"
)

// ListAccounts returns the caller's accounts.
//
// @Summary List accounts
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=[]models.Account}
// @Router /accounts [get]
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s, ok := subject(w, r)
	if !ok {
		return
	}

	list, err := h.accounts.List(r.Context(), s)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Account{}
	}
	respondSuccess(w, http.StatusOK, list, start)
}

// CreateAccount adds an unconnected account on a Mastodon server.
//
// @Summary Create account
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateAccountRequest true "Server and timezone"
// @Success 201 {object} models.APIResponse{data=models.Account}
// @Failure 400 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Router /accounts [post]
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s, ok := subject(w, r)
	if !ok {
		return
	}
	var req CreateAccountRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	account, err := h.accounts.Create(r.Context(), s, accounts.CreateInput{
		ServerURL: req.ServerURL,
		Timezone:  req.Timezone,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, account, start)
}

// GetAccount returns one account.
//
// @Summary Get account
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param accountID path string true "Account ID"
// @Success 200 {object} models.APIResponse{data=models.Account}
// @Failure 404 {object} models.APIResponse
// @Router /accounts/{accountID} [get]
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	account, ok := h.loadAccount(w, r)
	if !ok {
		return
	}
	respondSuccess(w, http.StatusOK, account, start)
}

// UpdateAccount renames an account or changes its timezone.
//
// @Summary Update account
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountID path string true "Account ID"
// @Param body body UpdateAccountRequest true "Fields to change"
// @Success 200 {object} models.APIResponse{data=models.Account}
// @Router /accounts/{accountID} [patch]
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s, ok := subject(w, r)
	if !ok {
		return
	}
	var req UpdateAccountRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "accountID")
	account, err := h.accounts.Update(r.Context(), s, id, accounts.UpdateInput{
		Name:     req.Name,
		Timezone: req.Timezone,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	// The timezone moves every day boundary.
	h.invalidate(id)
	respondSuccess(w, http.StatusOK, account, start)
}

// DeleteAccount removes an account with its credentials and statistics.
//
// @Summary Delete account
// @Tags Accounts
// @Security BearerAuth
// @Param accountID path string true "Account ID"
// @Success 204
// @Router /accounts/{accountID} [delete]
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	s, ok := subject(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "accountID")
	if err := h.accounts.Delete(r.Context(), s, id); err != nil {
		respondServiceError(w, r, err)
		return
	}

	h.invalidate(id)
	w.WriteHeader(http.StatusNoContent)
}

// ConnectAccount starts the Mastodon OAuth flow.
//
// @Summary Start connecting an account
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param accountID path string true "Account ID"
// @Success 200 {object} models.APIResponse{data=accounts.ConnectResult}
// @Failure 502 {object} models.APIResponse
// @Router /accounts/{accountID}/connect [post]
func (h *Handler) ConnectAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s, ok := subject(w, r)
	if !ok {
		return
	}

	result, err := h.accounts.Connect(r.Context(), s, chi.URLParam(r, "accountID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, result, start)
}

// ConnectCallback completes the OAuth flow with the code Mastodon returned.
//
// @Summary Finish connecting an account
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ConnectCallbackRequest true "State token and code"
// @Success 200 {object} models.APIResponse{data=models.Account}
// @Failure 400 {object} models.APIResponse
// @Router /accounts/connect/callback [post]
func (h *Handler) ConnectCallback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s, ok := subject(w, r)
	if !ok {
		return
	}
	var req ConnectCallbackRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	account, err := h.accounts.ConnectCallback(r.Context(), s, req.Token, req.Code)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	h.invalidate(account.ID)
	respondSuccess(w, http.StatusOK, account, start)
}

// loadAccount resolves {accountID} for the caller. Other users' accounts
// are reported as forbidden by the accounts service.
func (h *Handler) loadAccount(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	s, ok := subject(w, r)
	if !ok {
		return nil, false
	}

	account, err := h.accounts.Get(r.Context(), s, chi.URLParam(r, "accountID"))
	if err != nil {
		respondServiceError(w, r, err)
		return nil, false
	}
	return account, true
}

func (h *Handler) invalidate(accountID string) {
	if h.cache != nil && accountID != "" {
		h.cache.InvalidateAccount(accountID)
	}
}
