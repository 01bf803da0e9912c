// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/blazer82/analytodon-sub001/internal/accounts"
	"github.com/blazer82/analytodon-sub001/internal/auth"
	"github.com/blazer82/analytodon-sub001/internal/authz"
	"github.com/blazer82/analytodon-sub001/internal/cache"
	"github.com/blazer82/analytodon-sub001/internal/collector"
	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/database"
	"github.com/blazer82/analytodon-sub001/internal/kpi"
	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/stats"
	"github.com/blazer82/analytodon-sub001/internal/timeframe"
)

var (
	owner = models.User{ID: "u1", Email: "owner@example.com", Role: models.RoleAccountOwner, IsActive: true,
		Timezone: "Europe/Berlin", EmailNotifications: models.EmailNotifications{WeeklyStats: true}}
	stranger = models.User{ID: "u2", Email: "stranger@example.com", Role: models.RoleAccountOwner, IsActive: true,
		Timezone: "UTC"}
	admin = models.User{ID: "u3", Email: "admin@example.com", Role: models.RoleAdmin, IsActive: true,
		Timezone: "UTC"}
)

type fakeAuth struct{}

func (fakeAuth) tokens(u models.User) *auth.TokenResponse {
	return &auth.TokenResponse{AccessToken: "access-" + u.ID, RefreshToken: "refresh-" + u.ID, ExpiresIn: 900, User: &u}
}

func (f fakeAuth) Register(_ context.Context, in auth.RegisterInput) (*auth.TokenResponse, error) {
	if in.Email == owner.Email {
		return nil, auth.ErrEmailTaken
	}
	return f.tokens(models.User{ID: "new", Email: in.Email, Role: models.RoleAccountOwner, Timezone: in.Timezone}), nil
}

func (f fakeAuth) Login(_ context.Context, email, password string) (*auth.TokenResponse, error) {
	if email == owner.Email && password == "correct horse" {
		return f.tokens(owner), nil
	}
	return nil, auth.ErrInvalidCredentials
}

func (f fakeAuth) Refresh(_ context.Context, refreshToken string) (*auth.TokenResponse, error) {
	if refreshToken == "refresh-u1" {
		return f.tokens(owner), nil
	}
	return nil, auth.ErrInvalidToken
}

func (fakeAuth) Logout(context.Context, string) error { return nil }

func (fakeAuth) VerifyEmail(_ context.Context, token string) error {
	if token != "verify-me" {
		return auth.ErrInvalidToken
	}
	return nil
}

func (fakeAuth) RequestPasswordReset(context.Context, string) error { return nil }

func (fakeAuth) ResetPassword(_ context.Context, token, _ string) error {
	if token != "reset-me" {
		return auth.ErrInvalidToken
	}
	return nil
}

func (fakeAuth) Session(_ context.Context, userID string) (*auth.SessionInfo, error) {
	if userID != owner.ID {
		return nil, database.ErrNotFound
	}
	u := owner
	return &auth.SessionInfo{User: &u, Accounts: []models.Account{}}, nil
}

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: map[string]*models.Account{
		"a1": {ID: "a1", OwnerID: owner.ID, ServerURL: "https://mastodon.social", AccountName: "@owner@mastodon.social",
			Timezone: "Europe/Berlin", IsActive: true, SetupComplete: true},
		"a2": {ID: "a2", OwnerID: stranger.ID, ServerURL: "https://fosstodon.org", Timezone: "UTC"},
	}}
}

func (f *fakeAccounts) get(s *auth.AuthSubject, id string) (*models.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	if err := accounts.Authorize(s, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (f *fakeAccounts) List(_ context.Context, s *auth.AuthSubject) ([]models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Account
	for _, id := range []string{"a1", "a2"} {
		if a, ok := f.accounts[id]; ok && a.OwnerID == s.UserID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAccounts) Create(_ context.Context, s *auth.AuthSubject, in accounts.CreateInput) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &models.Account{ID: fmt.Sprintf("a%d", len(f.accounts)+1), OwnerID: s.UserID, ServerURL: in.ServerURL, Timezone: in.Timezone}
	f.accounts[a.ID] = a
	return a, nil
}

func (f *fakeAccounts) Get(_ context.Context, s *auth.AuthSubject, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, err := f.get(s, id)
	if err != nil {
		return nil, err
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) Update(_ context.Context, s *auth.AuthSubject, id string, in accounts.UpdateInput) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, err := f.get(s, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		a.Name = *in.Name
	}
	if in.Timezone != nil {
		a.Timezone = *in.Timezone
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) Delete(_ context.Context, s *auth.AuthSubject, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.get(s, id); err != nil {
		return err
	}
	delete(f.accounts, id)
	return nil
}

func (f *fakeAccounts) Connect(_ context.Context, s *auth.AuthSubject, id string) (*accounts.ConnectResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, err := f.get(s, id)
	if err != nil {
		return nil, err
	}
	return &accounts.ConnectResult{AccountID: a.ID, AuthorizeURL: a.ServerURL + "/oauth/authorize?state=tok"}, nil
}

func (f *fakeAccounts) ConnectCallback(_ context.Context, s *auth.AuthSubject, token, _ string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token != "tok" {
		return nil, accounts.ErrInvalidConnection
	}
	a, err := f.get(s, "a1")
	if err != nil {
		return nil, err
	}
	a.SetupComplete = true
	cp := *a
	return &cp, nil
}

// fakeStats counts calls so cache hits can be observed.
type fakeStats struct {
	calls   atomic.Int64
	failCSV bool
}

func (f *fakeStats) KPI(_ context.Context, _ *models.Account, _ stats.Metric, _ timeframe.Period) (*kpi.KPI, error) {
	f.calls.Add(1)
	current, previous := int64(12), int64(10)
	return &kpi.KPI{CurrentPeriod: &current, PreviousPeriod: &previous, CurrentPeriodProgress: 0.5}, nil
}

func (f *fakeStats) Chart(_ context.Context, _ *models.Account, _ stats.Metric, tf timeframe.Timeframe) (*models.ChartResponse, error) {
	f.calls.Add(1)
	day := time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)
	return &models.ChartResponse{
		Timeframe: string(tf),
		Data:      []models.DailyPoint{{Day: day, Value: 3}, {Day: day.AddDate(0, 0, 1), Value: 2}},
		Total:     5,
	}, nil
}

func (f *fakeStats) ExportCSV(_ context.Context, _ *models.Account, metric stats.Metric, _ timeframe.Timeframe, w io.Writer) error {
	f.calls.Add(1)
	if f.failCSV {
		return errors.New("query failed")
	}
	_, err := fmt.Fprintf(w, "Date,%s\n2026-03-17,3\n", metric.Label())
	return err
}

func (f *fakeStats) TopToots(context.Context, *models.Account, timeframe.Timeframe, int) (*models.TopToots, error) {
	f.calls.Add(1)
	return &models.TopToots{Top: []models.Toot{{URL: "https://mastodon.social/@owner/1", RepliesCount: 1}}}, nil
}

func (f *fakeStats) ExportTopTootsCSV(_ context.Context, _ *models.Account, _ timeframe.Timeframe, w io.Writer) error {
	f.calls.Add(1)
	_, err := io.WriteString(w, "Date,URL\n")
	return err
}

func (f *fakeStats) hashtags(limit int) []models.HashtagStat {
	f.calls.Add(1)
	out := []models.HashtagStat{{Hashtag: "golang", TootCount: 3}, {Hashtag: "fediverse", TootCount: 2}}
	if limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (f *fakeStats) TopHashtags(_ context.Context, _ *models.Account, _ timeframe.Timeframe, limit int) ([]models.HashtagStat, error) {
	return f.hashtags(limit), nil
}

func (f *fakeStats) HashtagEngagement(_ context.Context, _ *models.Account, _ timeframe.Timeframe, limit int) ([]models.HashtagStat, error) {
	return f.hashtags(limit), nil
}

func (f *fakeStats) MostEffectiveHashtags(context.Context, *models.Account, timeframe.Timeframe, int) ([]models.HashtagStat, error) {
	f.calls.Add(1)
	return nil, nil
}

func (f *fakeStats) HashtagsOverTime(context.Context, *models.Account, timeframe.Timeframe, int) ([]models.HashtagTimeseries, error) {
	f.calls.Add(1)
	return []models.HashtagTimeseries{{Hashtag: "golang"}}, nil
}

func (f *fakeStats) ExportHashtagsCSV(_ context.Context, _ *models.Account, _ timeframe.Timeframe, w io.Writer) error {
	f.calls.Add(1)
	_, err := io.WriteString(w, "Hashtag,Toots\n")
	return err
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUsers() *fakeUsers {
	f := &fakeUsers{users: map[string]*models.User{}}
	for _, u := range []models.User{owner, stranger, admin} {
		cp := u
		f.users[u.ID] = &cp
	}
	return f
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) ListUsers(context.Context) ([]models.User, error) {
	return []models.User{owner, stranger, admin}, nil
}

type jobRun struct {
	job       collector.Job
	accountID string
}

type fakeJobs struct {
	runs chan jobRun
}

func (f *fakeJobs) Run(_ context.Context, job collector.Job) error {
	f.runs <- jobRun{job: job}
	return nil
}

func (f *fakeJobs) RunForAccount(_ context.Context, job collector.Job, accountID string) error {
	f.runs <- jobRun{job: job, accountID: accountID}
	return nil
}

type fakeDB struct {
	err error
}

func (f *fakeDB) Ping(context.Context) error { return f.err }

// testEnv is a router wired to fakes with the real token and policy
// middleware.
type testEnv struct {
	router   http.Handler
	jwt      *auth.JWTManager
	accounts *fakeAccounts
	stats    *fakeStats
	users    *fakeUsers
	jobs     *fakeJobs
	db       *fakeDB
	cache    *cache.Cache
}

func newTestEnv(t *testing.T, rateLimit bool) *testEnv {
	t.Helper()

	jwtManager, err := auth.NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "k9Qv2mX7pL4sT8wZ1rB6nH3cF5dJ0aYe",
		AccessTokenTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	enforcer, err := authz.NewEnforcer(&config.AuthzConfig{CacheTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(enforcer.Close)

	c := cache.New(time.Minute)
	t.Cleanup(c.Close)

	env := &testEnv{
		jwt:      jwtManager,
		accounts: newFakeAccounts(),
		stats:    &fakeStats{},
		users:    newFakeUsers(),
		jobs:     &fakeJobs{runs: make(chan jobRun, 4)},
		db:       &fakeDB{},
		cache:    c,
	}
	handler := NewHandler(Services{
		Auth:     fakeAuth{},
		Accounts: env.accounts,
		Stats:    env.stats,
		Users:    env.users,
		Jobs:     env.jobs,
		DB:       env.db,
		Cache:    c,
		Version:  "test",
	})

	mwConfig := DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = []string{"https://app.example.com"}
	mwConfig.RateLimitDisabled = !rateLimit
	env.router = NewRouter(handler, auth.NewMiddleware(jwtManager), authz.NewMiddleware(enforcer), NewChiMiddleware(mwConfig)).SetupChi()
	return env
}

func (e *testEnv) token(t *testing.T, u models.User) string {
	t.Helper()
	tok, err := e.jwt.GenerateToken(&u)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return tok
}

// do sends a request as user. A zero user sends no token.
func (e *testEnv) do(t *testing.T, method, path, body string, user models.User) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user.ID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, user))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v\n%s", err, rec.Body.String())
	}
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) envelope {
	t.Helper()
	env := decodeEnvelope(t, rec)
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v\n%s", err, rec.Body.String())
	}
	return env
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d\n%s", rec.Code, status, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Status != "error" || env.Error == nil || env.Error.Code != code {
		t.Errorf("error = %+v, want code %s", env.Error, code)
	}
}

func newAuthedRequest(t *testing.T, e *testEnv, method, path string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+e.token(t, owner))
	return req
}

func serve(e *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
