// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/accounts"
	"github.com/blazer82/analytodon-sub001/internal/auth"
	"github.com/blazer82/analytodon-sub001/internal/cache"
	"github.com/blazer82/analytodon-sub001/internal/collector"
	"github.com/blazer82/analytodon-sub001/internal/kpi"
	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/stats"
	"github.com/blazer82/analytodon-sub001/internal/timeframe"
)

// DefaultCacheTTL is how long stats responses are served from the cache.
const DefaultCacheTTL = 5 * time.Minute

// AuthService is implemented by *auth.Service.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.TokenResponse, error)
	Login(ctx context.Context, email, password string) (*auth.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	VerifyEmail(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	Session(ctx context.Context, userID string) (*auth.SessionInfo, error)
}

// AccountService is implemented by *accounts.Service.
type AccountService interface {
	List(ctx context.Context, subject *auth.AuthSubject) ([]models.Account, error)
	Create(ctx context.Context, subject *auth.AuthSubject, in accounts.CreateInput) (*models.Account, error)
	Get(ctx context.Context, subject *auth.AuthSubject, id string) (*models.Account, error)
	Update(ctx context.Context, subject *auth.AuthSubject, id string, in accounts.UpdateInput) (*models.Account, error)
	Delete(ctx context.Context, subject *auth.AuthSubject, id string) error
	Connect(ctx context.Context, subject *auth.AuthSubject, id string) (*accounts.ConnectResult, error)
	ConnectCallback(ctx context.Context, subject *auth.AuthSubject, token, code string) (*models.Account, error)
}

// StatsService is implemented by *stats.Service.
type StatsService interface {
	KPI(ctx context.Context, account *models.Account, metric stats.Metric, period timeframe.Period) (*kpi.KPI, error)
	Chart(ctx context.Context, account *models.Account, metric stats.Metric, tf timeframe.Timeframe) (*models.ChartResponse, error)
	ExportCSV(ctx context.Context, account *models.Account, metric stats.Metric, tf timeframe.Timeframe, w io.Writer) error
	TopToots(ctx context.Context, account *models.Account, tf timeframe.Timeframe, limit int) (*models.TopToots, error)
	ExportTopTootsCSV(ctx context.Context, account *models.Account, tf timeframe.Timeframe, w io.Writer) error
	TopHashtags(ctx context.Context, account *models.Account, tf timeframe.Timeframe, limit int) ([]models.HashtagStat, error)
	HashtagEngagement(ctx context.Context, account *models.Account, tf timeframe.Timeframe, limit int) ([]models.HashtagStat, error)
	MostEffectiveHashtags(ctx context.Context, account *models.Account, tf timeframe.Timeframe, limit int) ([]models.HashtagStat, error)
	HashtagsOverTime(ctx context.Context, account *models.Account, tf timeframe.Timeframe, limit int) ([]models.HashtagTimeseries, error)
	ExportHashtagsCSV(ctx context.Context, account *models.Account, tf timeframe.Timeframe, w io.Writer) error
}

// UserStore is the part of the database the user endpoints need.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// JobRunner is implemented by *collector.Collector.
type JobRunner interface {
	Run(ctx context.Context, job collector.Job) error
	RunForAccount(ctx context.Context, job collector.Job, accountID string) error
}

// HealthChecker reports whether a dependency can serve requests.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Services bundles the handler dependencies.
type Services struct {
	Auth     AuthService
	Accounts AccountService
	Stats    StatsService
	Users    UserStore
	Jobs     JobRunner
	DB       HealthChecker

	// Cache is optional. Without it every stats request hits the database.
	Cache *cache.Cache

	// SecureCookies marks the token cookie Secure.
	SecureCookies bool
	Version       string
}

// Handler holds the HTTP handlers.
type Handler struct {
	auth     AuthService
	accounts AccountService
	stats    StatsService
	users    UserStore
	jobs     JobRunner
	db       HealthChecker
	cache    *cache.Cache

	secureCookies bool
	version       string
	startTime     time.Time
}

// NewHandler wires the handlers to svc.
func NewHandler(svc Services) *Handler {
	version := svc.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		auth:          svc.Auth,
		accounts:      svc.Accounts,
		stats:         svc.Stats,
		users:         svc.Users,
		jobs:          svc.Jobs,
		db:            svc.DB,
		cache:         svc.Cache,
		secureCookies: svc.SecureCookies,
		version:       version,
		startTime:     time.Now(),
	}
}

// subject returns the authenticated caller or writes a 401.
func subject(w http.ResponseWriter, r *http.Request) (*auth.AuthSubject, bool) {
	s, ok := auth.GetAuthSubject(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Authentication required", nil)
		return nil, false
	}
	return s, true
}

// getIntParam returns the integer query parameter key, or defaultValue when
// it is missing or malformed.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}
