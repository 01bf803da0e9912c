// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/blazer82/analytodon-sub001/internal/cache"
	"github.com/blazer82/analytodon-sub001/internal/export"
	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/stats"
	"github.com/blazer82/analytodon-sub001/internal/timeframe"
)

// statsRequest is the resolved input shared by the stats endpoints.
type statsRequest struct {
	account   *models.Account
	timeframe timeframe.Timeframe
	limit     int
}

// parseStatsRequest loads the account and validates timeframe and limit.
func (h *Handler) parseStatsRequest(w http.ResponseWriter, r *http.Request) (*statsRequest, bool) {
	q := StatsQuery{
		Timeframe: r.URL.Query().Get("timeframe"),
		Limit:     getIntParam(r, "limit", stats.DefaultLimit),
	}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr, nil)
		return nil, false
	}
	tf, err := timeframe.Parse(q.Timeframe)
	if err != nil {
		respondServiceError(w, r, err)
		return nil, false
	}

	account, ok := h.loadAccount(w, r)
	if !ok {
		return nil, false
	}
	return &statsRequest{account: account, timeframe: tf, limit: stats.ClampLimit(q.Limit)}, true
}

func parseMetric(w http.ResponseWriter, r *http.Request) (stats.Metric, bool) {
	metric, err := stats.ParseMetric(chi.URLParam(r, "metric"))
	if err != nil {
		respondServiceError(w, r, err)
		return "", false
	}
	return metric, true
}

// cached serves a stats response from the per-account cache, computing
// and storing it on a miss. Ownership is checked before calling it.
func (h *Handler) cached(w http.ResponseWriter, r *http.Request, accountID string, compute func(context.Context) (interface{}, error)) {
	start := time.Now()

	var key string
	if h.cache != nil {
		key = cache.AccountKey(accountID, r.URL.Path, r.URL.RawQuery)
		if data, ok := h.cache.Get(key); ok {
			resp := successResponse(data, start)
			resp.Metadata.Cached = true
			respondJSON(w, http.StatusOK, resp)
			return
		}
	}

	data, err := compute(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if h.cache != nil {
		h.cache.SetWithTTL(key, data, DefaultCacheTTL)
	}
	respondSuccess(w, http.StatusOK, data, start)
}

// sendCSV renders into memory first so a failing query still gets a JSON
// error instead of a truncated file.
func sendCSV(w http.ResponseWriter, r *http.Request, filename string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		respondServiceError(w, r, err)
		return
	}

	startCSV(w, filename)
	if _, err := buf.WriteTo(w); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to write CSV export")
	}
}

// MetricKPI returns the KPI of a metric for the current week, month or year.
//
// @Summary Metric KPI
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Param accountID path string true "Account ID"
// @Param metric path string true "followers, replies, boosts or favorites"
// @Param period path string true "weekly, monthly or yearly"
// @Success 200 {object} models.APIResponse{data=kpi.KPI}
// @Failure 404 {object} models.APIResponse
// @Router /accounts/{accountID}/{metric}/{period} [get]
func (h *Handler) MetricKPI(w http.ResponseWriter, r *http.Request) {
	metric, ok := parseMetric(w, r)
	if !ok {
		return
	}
	period, err := timeframe.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	account, ok := h.loadAccount(w, r)
	if !ok {
		return
	}

	h.cached(w, r, account.ID, func(ctx context.Context) (interface{}, error) {
		return h.stats.KPI(ctx, account, metric, period)
	})
}

// MetricChart returns one point per day of the timeframe.
//
// @Summary Metric chart
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Param accountID path string true "Account ID"
// @Param metric path string true "followers, replies, boosts or favorites"
// @Param timeframe query string false "last7days, last30days, thismonth, lastmonth, thisyear or lastyear"
// @Success 200 {object} models.APIResponse{data=models.ChartResponse}
// @Router /accounts/{accountID}/{metric}/chart [get]
func (h *Handler) MetricChart(w http.ResponseWriter, r *http.Request) {
	metric, ok := parseMetric(w, r)
	if !ok {
		return
	}
	req, ok := h.parseStatsRequest(w, r)
	if !ok {
		return
	}

	h.cached(w, r, req.account.ID, func(ctx context.Context) (interface{}, error) {
		return h.stats.Chart(ctx, req.account, metric, req.timeframe)
	})
}

// MetricExport downloads the chart data as CSV.
//
// @Summary Metric CSV export
// @Tags Export
// @Produce text/csv
// @Security BearerAuth
// @Param accountID path string true "Account ID"
// @Param metric path string true "followers, replies, boosts or favorites"
// @Param timeframe query string false "Timeframe"
// @Success 200 {file} file
// @Router /accounts/{accountID}/{metric}/export [get]
func (h *Handler) MetricExport(w http.ResponseWriter, r *http.Request) {
	metric, ok := parseMetric(w, r)
	if !ok {
		return
	}
	req, ok := h.parseStatsRequest(w, r)
	if !ok {
		return
	}

	filename := export.Filename(accountLabel(req.account), string(metric), string(req.timeframe))
	sendCSV(w, r, filename, func(out io.Writer) error {
		return h.stats.ExportCSV(r.Context(), req.account, metric, req.timeframe, out)
	})
}

// TopToots returns the best toots of the timeframe.
//
// @Summary Top toots
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Param accountID path string true "Account ID"
// @Param timeframe query string false "Timeframe"
// @Param limit query int false "Toots per list (1-100)"
// @Success 200 {object} models.APIResponse{data=models.TopToots}
// @Router /accounts/{accountID}/toots/top [get]
func (h *Handler) TopToots(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseStatsRequest(w, r)
	if !ok {
		return
	}

	h.cached(w, r, req.account.ID, func(ctx context.Context) (interface{}, error) {
		return h.stats.TopToots(ctx, req.account, req.timeframe, req.limit)
	})
}

// ExportTopToots downloads the top toots as CSV.
//
// @Summary Top toots CSV export
// @Tags Export
// @Produce text/csv
// @Security BearerAuth
// @Param accountID path string true "Account ID"
// @Param timeframe query string false "Timeframe"
// @Success 200 {file} file
// @Router /accounts/{accountID}/toots/export [get]
func (h *Handler) ExportTopToots(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseStatsRequest(w, r)
	if !ok {
		return
	}

	filename := export.Filename(accountLabel(req.account), "toots", string(req.timeframe))
	sendCSV(w, r, filename, func(out io.Writer) error {
		return h.stats.ExportTopTootsCSV(r.Context(), req.account, req.timeframe, out)
	})
}

// hashtagList adapts the hashtag ranking methods of StatsService.
type hashtagList func(ctx context.Context, account *models.Account, tf timeframe.Timeframe, limit int) ([]models.HashtagStat, error)

func (h *Handler) serveHashtags(list hashtagList) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.parseStatsRequest(w, r)
		if !ok {
			return
		}

		h.cached(w, r, req.account.ID, func(ctx context.Context) (interface{}, error) {
			out, err := list(ctx, req.account, req.timeframe, req.limit)
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = []models.HashtagStat{}
			}
			return out, nil
		})
	}
}

// TopHashtags ranks hashtags by number of toots.
//
// @Summary Top hashtags
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Param accountID path string true "Account ID"
// @Param timeframe query string false "Timeframe"
// @Param limit query int false "Hashtags (1-100)"
// @Success 200 {object} models.APIResponse{data=[]models.HashtagStat}
// @Router /accounts/{accountID}/hashtags/top [get]
func (h *Handler) TopHashtags(w http.ResponseWriter, r *http.Request) {
	h.serveHashtags(h.stats.TopHashtags)(w, r)
}

// HashtagEngagement ranks hashtags by total engagement.
//
// @Summary Hashtag engagement
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Param accountID path string true "Account ID"
// @Param timeframe query string false "Timeframe"
// @Param limit query int false "Hashtags (1-100)"
// @Success 200 {object} models.APIResponse{data=[]models.HashtagStat}
// @Router /accounts/{accountID}/hashtags/engagement [get]
func (h *Handler) HashtagEngagement(w http.ResponseWriter, r *http.Request) {
	h.serveHashtags(h.stats.HashtagEngagement)(w, r)
}

// MostEffectiveHashtags ranks hashtags by average engagement per toot.
//
// @Summary Most effective hashtags
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Param accountID path string true "Account ID"
// @Param timeframe query string false "Timeframe"
// @Param limit query int false "Hashtags (1-100)"
// @Success 200 {object} models.APIResponse{data=[]models.HashtagStat}
// @Router /accounts/{accountID}/hashtags/most-effective [get]
func (h *Handler) MostEffectiveHashtags(w http.ResponseWriter, r *http.Request) {
	h.serveHashtags(h.stats.MostEffectiveHashtags)(w, r)
}

// HashtagsOverTime returns daily use of the top hashtags.
//
// @Summary Hashtags over time
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Param accountID path string true "Account ID"
// @Param timeframe query string false "Timeframe"
// @Param limit query int false "Hashtags (1-100)"
// @Success 200 {object} models.APIResponse{data=[]models.HashtagTimeseries}
// @Router /accounts/{accountID}/hashtags/over-time [get]
func (h *Handler) HashtagsOverTime(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseStatsRequest(w, r)
	if !ok {
		return
	}

	h.cached(w, r, req.account.ID, func(ctx context.Context) (interface{}, error) {
		out, err := h.stats.HashtagsOverTime(ctx, req.account, req.timeframe, req.limit)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = []models.HashtagTimeseries{}
		}
		return out, nil
	})
}

// ExportHashtags downloads the hashtag statistics as CSV.
//
// @Summary Hashtag CSV export
// @Tags Export
// @Produce text/csv
// @Security BearerAuth
// @Param accountID path string true "Account ID"
// @Param timeframe query string false "Timeframe"
// @Success 200 {file} file
// @Router /accounts/{accountID}/hashtags/export [get]
func (h *Handler) ExportHashtags(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseStatsRequest(w, r)
	if !ok {
		return
	}

	filename := export.Filename(accountLabel(req.account), "hashtags", string(req.timeframe))
	sendCSV(w, r, filename, func(out io.Writer) error {
		return h.stats.ExportHashtagsCSV(r.Context(), req.account, req.timeframe, out)
	})
}

// accountLabel names an account in export filenames.
func accountLabel(a *models.Account) string {
	switch {
	case a.AccountName != "":
		return a.AccountName
	case a.Name != "":
		return a.Name
	default:
		return a.ID
	}
}
