// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package accounts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/blazer82/analytodon-sub001/internal/auth"
	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/database"
	"github.com/blazer82/analytodon-sub001/internal/events"
	"github.com/blazer82/analytodon-sub001/internal/mastodon"
	"github.com/blazer82/analytodon-sub001/internal/models"
)

var fixedNow = time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	creds    map[string]*models.AccountCredentials
	now      func() time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[string]*models.Account),
		creds:    make(map[string]*models.AccountCredentials),
		now:      func() time.Time { return fixedNow },
	}
}

func (f *fakeStore) CreateAccount(_ context.Context, a *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.CreatedAt = f.now()
	a.UpdatedAt = f.now()
	c := *a
	f.accounts[a.ID] = &c
	return nil
}

func (f *fakeStore) GetAccount(_ context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (f *fakeStore) GetAccountByConnectionToken(_ context.Context, token string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if token != "" && a.ConnectionToken == token {
			c := *a
			return &c, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) ListAccountsByOwner(_ context.Context, ownerID string) ([]models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Account
	for _, a := range f.accounts {
		if a.OwnerID == ownerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) CountAccountsByOwner(ctx context.Context, ownerID string) (int, error) {
	list, err := f.ListAccountsByOwner(ctx, ownerID)
	return len(list), err
}

func (f *fakeStore) UpdateAccount(_ context.Context, a *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[a.ID]; !ok {
		return database.ErrNotFound
	}
	a.UpdatedAt = f.now()
	c := *a
	f.accounts[a.ID] = &c
	return nil
}

func (f *fakeStore) SetAccountConnected(ctx context.Context, a *models.Account) error {
	a.IsActive = true
	a.ConnectionToken = ""
	a.ConnectionTokenIssuedAt = nil
	return f.UpdateAccount(ctx, a)
}

func (f *fakeStore) DeleteAccount(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.accounts, id)
	delete(f.creds, id)
	return nil
}

func (f *fakeStore) SaveCredentials(_ context.Context, c *models.AccountCredentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cc := *c
	f.creds[c.AccountID] = &cc
	return nil
}

func (f *fakeStore) GetCredentials(_ context.Context, accountID string) (*models.AccountCredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creds[accountID]
	if !ok {
		return nil, database.ErrNotFound
	}
	cc := *c
	return &cc, nil
}

type fakeMastodon struct {
	registered   []string
	exchangeCode string
	profile      *mastodon.Account
	verifyErr    error
}

func (f *fakeMastodon) RegisterApp(_ context.Context, server, _, redirectURI string, _ []string, _ string) (*mastodon.App, error) {
	f.registered = append(f.registered, server+" "+redirectURI)
	return &mastodon.App{ClientID: "cid", ClientSecret: "csecret"}, nil
}

func (f *fakeMastodon) AuthorizeURL(server, clientID, _ string, _ []string, state string) string {
	return server + "/oauth/authorize?client_id=" + clientID + "&state=" + state
}

func (f *fakeMastodon) ExchangeCode(_ context.Context, _, clientID, clientSecret, _, code string) (*mastodon.Token, error) {
	if code != f.exchangeCode || clientID != "cid" || clientSecret != "csecret" {
		return nil, &mastodon.APIError{StatusCode: 400, Body: "invalid_grant"}
	}
	return &mastodon.Token{AccessToken: "access-token", Scope: "read:accounts read:statuses"}, nil
}

func (f *fakeMastodon) VerifyCredentials(_ context.Context, _, token string) (*mastodon.Account, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if token != "access-token" {
		return nil, mastodon.ErrUnauthorized
	}
	return f.profile, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	last   interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.last = payload
	return nil
}

type fixture struct {
	svc    *Service
	store  *fakeStore
	client *fakeMastodon
	pub    *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		Server:   config.ServerConfig{PublicURL: "https://app.analytodon.com/"},
		Mastodon: config.MastodonConfig{AppName: "Analytodon", Scopes: []string{"read:accounts", "read:statuses"}},
		Accounts: config.AccountsConfig{MaxPerUser: 2},
	}
	f := &fixture{
		store: newFakeStore(),
		client: &fakeMastodon{
			exchangeCode: "good-code",
			profile: &mastodon.Account{
				ID:          "109",
				Username:    "alice",
				DisplayName: "Alice",
				URL:         "https://mastodon.social/@alice",
				Avatar:      "https://files/a.png",
			},
		},
		pub: &recordingPublisher{},
	}
	f.svc = NewService(f.store, f.client, f.pub, cfg)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

var (
	alice = &auth.AuthSubject{UserID: "u-alice", Role: models.RoleAccountOwner}
	bob   = &auth.AuthSubject{UserID: "u-bob", Role: models.RoleAccountOwner}
	admin = &auth.AuthSubject{UserID: "u-admin", Role: models.RoleAdmin}
)

func TestAuthorize(t *testing.T) {
	t.Parallel()

	a := &models.Account{ID: "a1", OwnerID: "u-alice"}
	tests := []struct {
		name    string
		subject *auth.AuthSubject
		account *models.Account
		want    error
	}{
		{"owner", alice, a, nil},
		{"admin", admin, a, nil},
		{"other user", bob, a, ErrForbidden},
		{"anonymous", nil, a, ErrForbidden},
		{"missing account", alice, nil, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := Authorize(tt.subject, tt.account); !errors.Is(err, tt.want) {
				t.Errorf("Authorize() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, alice, CreateInput{ServerURL: "Mastodon.Social/", Timezone: ""})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.ServerURL != "https://mastodon.social" || a.Timezone != "UTC" || a.OwnerID != "u-alice" {
		t.Errorf("Create() = %+v", a)
	}
	if a.IsActive || a.SetupComplete {
		t.Error("new account must start inactive and without setup")
	}

	if _, err := f.svc.Create(ctx, alice, CreateInput{ServerURL: "fosstodon.org", Timezone: "Not/AZone"}); !errors.Is(err, ErrInvalidTimezone) {
		t.Errorf("Create(bad tz) error = %v, want ErrInvalidTimezone", err)
	}
	if _, err := f.svc.Create(ctx, alice, CreateInput{ServerURL: "ftp://x"}); !errors.Is(err, mastodon.ErrInvalidServerURL) {
		t.Errorf("Create(bad server) error = %v, want ErrInvalidServerURL", err)
	}
}

func TestCreate_AccountLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Create(ctx, alice, CreateInput{ServerURL: "mastodon.social"}); err != nil {
			t.Fatalf("Create() #%d error = %v", i, err)
		}
	}
	if _, err := f.svc.Create(ctx, alice, CreateInput{ServerURL: "mastodon.social"}); !errors.Is(err, ErrAccountLimit) {
		t.Errorf("third Create() error = %v, want ErrAccountLimit", err)
	}
	if _, err := f.svc.Create(ctx, bob, CreateInput{ServerURL: "mastodon.social"}); err != nil {
		t.Errorf("limit must be per user, got %v", err)
	}
}

func TestGetUpdateDelete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, alice, CreateInput{ServerURL: "mastodon.social"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := f.svc.Get(ctx, bob, a.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Get(bob) error = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Get(ctx, alice, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.Get(ctx, admin, a.ID); err != nil {
		t.Errorf("Get(admin) error = %v", err)
	}

	name := "  Work  "
	updated, err := f.svc.Update(ctx, alice, a.ID, UpdateInput{Name: &name})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "Work" {
		t.Errorf("Name = %q, want trimmed", updated.Name)
	}
	bad := "Mars/Olympus"
	if _, err := f.svc.Update(ctx, alice, a.ID, UpdateInput{Timezone: &bad}); !errors.Is(err, ErrInvalidTimezone) {
		t.Errorf("Update(bad tz) error = %v", err)
	}

	if err := f.svc.Delete(ctx, bob, a.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete(bob) error = %v, want ErrForbidden", err)
	}
	if err := f.svc.Delete(ctx, alice, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := f.svc.Get(ctx, alice, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
}

func TestList_EmptyIsNotNil(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	list, err := f.svc.List(context.Background(), bob)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("List() = %#v, want empty slice", list)
	}
}

func TestConnectFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, alice, CreateInput{ServerURL: "mastodon.social"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	res, err := f.svc.Connect(ctx, alice, a.ID)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if diff := cmp.Diff([]string{"https://mastodon.social https://app.analytodon.com/accounts/connect/callback"}, f.client.registered); diff != "" {
		t.Errorf("RegisterApp calls mismatch (-want +got):\n%s", diff)
	}

	pending, _ := f.store.GetAccount(ctx, a.ID)
	if pending.ConnectionToken == "" {
		t.Fatal("Connect() must store a connection token")
	}
	wantURL := "https://mastodon.social/oauth/authorize?client_id=cid&state=" + pending.ConnectionToken
	if res.AuthorizeURL != wantURL {
		t.Errorf("AuthorizeURL = %q, want %q", res.AuthorizeURL, wantURL)
	}

	if _, err := f.svc.ConnectCallback(ctx, bob, pending.ConnectionToken, "good-code"); !errors.Is(err, ErrForbidden) {
		t.Errorf("ConnectCallback(bob) error = %v, want ErrForbidden", err)
	}

	connected, err := f.svc.ConnectCallback(ctx, alice, pending.ConnectionToken, "good-code")
	if err != nil {
		t.Fatalf("ConnectCallback() error = %v", err)
	}
	if !connected.IsActive || connected.ConnectionToken != "" {
		t.Errorf("account not activated: %+v", connected)
	}
	if connected.AccountName != "@alice@mastodon.social" || connected.Name != "Alice" || connected.MastodonAccountID != "109" {
		t.Errorf("profile not applied: %+v", connected)
	}
	if diff := cmp.Diff([]string{"read:accounts", "read:statuses"}, connected.RequestedScope); diff != "" {
		t.Errorf("RequestedScope mismatch (-want +got):\n%s", diff)
	}

	creds, _ := f.store.GetCredentials(ctx, a.ID)
	if creds.AccessToken != "access-token" {
		t.Errorf("AccessToken = %q", creds.AccessToken)
	}

	if diff := cmp.Diff([]string{events.TopicAccountConnected}, f.pub.topics); diff != "" {
		t.Errorf("published topics mismatch (-want +got):\n%s", diff)
	}
	if got, ok := f.pub.last.(events.AccountConnected); !ok || got.AccountID != a.ID || got.OwnerID != "u-alice" {
		t.Errorf("payload = %#v", f.pub.last)
	}

	if _, err := f.svc.ConnectCallback(ctx, alice, pending.ConnectionToken, "good-code"); !errors.Is(err, ErrInvalidConnection) {
		t.Errorf("reused token error = %v, want ErrInvalidConnection", err)
	}
}

func TestConnectCallback_Failures(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a, _ := f.svc.Create(ctx, alice, CreateInput{ServerURL: "mastodon.social"})
	if _, err := f.svc.Connect(ctx, alice, a.ID); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	pending, _ := f.store.GetAccount(ctx, a.ID)

	if _, err := f.svc.ConnectCallback(ctx, alice, "unknown", "good-code"); !errors.Is(err, ErrInvalidConnection) {
		t.Errorf("unknown token error = %v", err)
	}

	var apiErr *mastodon.APIError
	if _, err := f.svc.ConnectCallback(ctx, alice, pending.ConnectionToken, "bad-code"); !errors.As(err, &apiErr) {
		t.Errorf("bad code error = %v, want APIError", err)
	}

	f.svc.now = func() time.Time { return fixedNow.Add(ConnectionTokenTTL + time.Minute) }
	if _, err := f.svc.ConnectCallback(ctx, alice, pending.ConnectionToken, "good-code"); !errors.Is(err, ErrInvalidConnection) {
		t.Errorf("expired token error = %v, want ErrInvalidConnection", err)
	}
	if len(f.pub.topics) != 0 {
		t.Errorf("no event expected on failure, got %v", f.pub.topics)
	}
}

func TestConnect_KeepsExistingAccessToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a, _ := f.svc.Create(ctx, alice, CreateInput{ServerURL: "mastodon.social"})
	_ = f.store.SaveCredentials(ctx, &models.AccountCredentials{AccountID: a.ID, ClientID: "old", ClientSecret: "old", AccessToken: "live"})

	if _, err := f.svc.Connect(ctx, alice, a.ID); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	creds, _ := f.store.GetCredentials(ctx, a.ID)
	want := &models.AccountCredentials{AccountID: a.ID, ClientID: "cid", ClientSecret: "csecret", AccessToken: "live"}
	if diff := cmp.Diff(want, creds); diff != "" {
		t.Errorf("credentials mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectCallback_TokenAgeIgnoresLaterEdits(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a, _ := f.svc.Create(ctx, alice, CreateInput{ServerURL: "mastodon.social"})
	if _, err := f.svc.Connect(ctx, alice, a.ID); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	pending, _ := f.store.GetAccount(ctx, a.ID)
	if pending.ConnectionTokenIssuedAt == nil || !pending.ConnectionTokenIssuedAt.Equal(fixedNow) {
		t.Fatalf("ConnectionTokenIssuedAt = %v, want %v", pending.ConnectionTokenIssuedAt, fixedNow)
	}

	// A rename shortly before expiry bumps UpdatedAt but not the token age.
	f.store.now = func() time.Time { return fixedNow.Add(ConnectionTokenTTL - time.Minute) }
	name := "Work"
	if _, err := f.svc.Update(ctx, alice, a.ID, UpdateInput{Name: &name}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	f.svc.now = func() time.Time { return fixedNow.Add(ConnectionTokenTTL + time.Minute) }
	if _, err := f.svc.ConnectCallback(ctx, alice, pending.ConnectionToken, "good-code"); !errors.Is(err, ErrInvalidConnection) {
		t.Errorf("ConnectCallback() after edit error = %v, want ErrInvalidConnection", err)
	}
}

func TestStaleConnection(t *testing.T) {
	t.Parallel()

	issued := fixedNow
	tests := []struct {
		name string
		a    models.Account
		now  time.Time
		want bool
	}{
		{"no pending connect", models.Account{}, fixedNow.Add(48 * time.Hour), false},
		{"fresh token", models.Account{ConnectionToken: "t", ConnectionTokenIssuedAt: &issued}, fixedNow.Add(time.Minute), false},
		{"expired token", models.Account{ConnectionToken: "t", ConnectionTokenIssuedAt: &issued}, fixedNow.Add(2 * time.Hour), true},
		{"token without issue time", models.Account{ConnectionToken: "t", UpdatedAt: fixedNow}, fixedNow, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := staleConnection(&tt.a, tt.now, ConnectionTokenTTL); got != tt.want {
				t.Errorf("staleConnection() = %v, want %v", got, tt.want)
			}
		})
	}
}
