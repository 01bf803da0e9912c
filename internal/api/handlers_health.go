// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/models"
)

const readinessTimeout = 2 * time.Second

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptimeSeconds"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// Health reports liveness.
//
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse{data=HealthStatus}
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, http.StatusOK, &HealthStatus{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}, start)
}

// HealthReady pings the database.
//
// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse{data=HealthStatus}
// @Failure 503 {object} models.APIResponse
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := &HealthStatus{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        map[string]string{"database": "ok"},
	}
	if h.db == nil {
		status.Checks["database"] = "not configured"
	} else if err := h.db.Ping(ctx); err != nil {
		status.Status = "unavailable"
		status.Checks["database"] = "unreachable"
		respondErrorDetails(w, http.StatusServiceUnavailable, &models.APIError{
			Code:    models.ErrCodeDatabase,
			Message: "Database is not reachable",
			Details: map[string]interface{}{"checks": status.Checks},
		}, err)
		return
	}

	respondSuccess(w, http.StatusOK, status, start)
}
