// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/blazer82/analytodon-sub001/internal/collector"
	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/models"
)

// JobAccepted is returned when a job was queued.
type JobAccepted struct {
	Job       string `json:"job"`
	AccountID string `json:"accountId,omitempty"`
}

// RunJob starts a collector job in the background. With ?account= only
// that account is processed.
//
// @Summary Trigger a job
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param job path string true "fetch-account-stats, fetch-toot-stats, send-weekly-stats or cleanup"
// @Param account query string false "Restrict to one account"
// @Success 202 {object} models.APIResponse{data=JobAccepted}
// @Failure 404 {object} models.APIResponse
// @Router /admin/jobs/{job} [post]
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	job, err := collector.ParseJob(chi.URLParam(r, "job"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	accountID := r.URL.Query().Get("account")
	if accountID != "" && job != collector.JobAccountStats && job != collector.JobTootStats {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "Job does not run per account", nil)
		return
	}

	// The job outlives the request but keeps its logging context.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		logger := logging.Ctx(ctx).With().Str("job", string(job)).Str("account_id", accountID).Logger()
		logger.Info().Msg("Job triggered via API")

		var err error
		if accountID != "" {
			err = h.jobs.RunForAccount(ctx, job, accountID)
		} else {
			err = h.jobs.Run(ctx, job)
		}
		if err != nil {
			logger.Error().Err(err).Msg("Triggered job failed")
			return
		}
		logger.Info().Msg("Triggered job finished")
	}()

	respondSuccess(w, http.StatusAccepted, &JobAccepted{Job: string(job), AccountID: accountID}, start)
}
