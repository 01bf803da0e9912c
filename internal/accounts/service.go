// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// Package accounts manages the Mastodon accounts a user tracks: creation,
// the OAuth connect flow and the ownership guard every account route uses.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blazer82/analytodon-sub001/internal/auth"
	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/database"
	"github.com/blazer82/analytodon-sub001/internal/events"
	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/mastodon"
	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/timeframe"
)

var (
	ErrAccountLimit      = errors.New("account limit reached")
	ErrForbidden         = errors.New("account belongs to another user")
	ErrNotFound          = errors.New("account not found")
	ErrInvalidTimezone   = errors.New("invalid timezone")
	ErrInvalidConnection = errors.New("invalid or expired connection token")
)

// CallbackPath is the dashboard route Mastodon redirects back to.
const CallbackPath = "/accounts/connect/callback"

// ConnectionTokenTTL bounds the time between Connect and ConnectCallback.
const ConnectionTokenTTL = time.Hour

// Store is the slice of the database the account flows need.
type Store interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByConnectionToken(ctx context.Context, token string) (*models.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]models.Account, error)
	CountAccountsByOwner(ctx context.Context, ownerID string) (int, error)
	UpdateAccount(ctx context.Context, a *models.Account) error
	SetAccountConnected(ctx context.Context, a *models.Account) error
	DeleteAccount(ctx context.Context, id string) error
	SaveCredentials(ctx context.Context, c *models.AccountCredentials) error
	GetCredentials(ctx context.Context, accountID string) (*models.AccountCredentials, error)
}

// MastodonClient is the part of mastodon.Client the connect flow uses.
type MastodonClient interface {
	RegisterApp(ctx context.Context, server, appName, redirectURI string, scopes []string, website string) (*mastodon.App, error)
	AuthorizeURL(server, clientID, redirectURI string, scopes []string, state string) string
	ExchangeCode(ctx context.Context, server, clientID, clientSecret, redirectURI, code string) (*mastodon.Token, error)
	VerifyCredentials(ctx context.Context, server, token string) (*mastodon.Account, error)
}

// Service implements the account flows.
type Service struct {
	store       Store
	client      MastodonClient
	publisher   events.Publisher
	mastodon    config.MastodonConfig
	maxPerUser  int
	redirectURI string
	now         func() time.Time
}

// NewService wires the account flows.
func NewService(store Store, client MastodonClient, publisher events.Publisher, cfg *config.Config) *Service {
	return &Service{
		store:       store,
		client:      client,
		publisher:   publisher,
		mastodon:    cfg.Mastodon,
		maxPerUser:  cfg.Accounts.MaxPerUser,
		redirectURI: strings.TrimRight(cfg.Server.PublicURL, "/") + CallbackPath,
		now:         time.Now,
	}
}

// CreateInput is a new account request.
type CreateInput struct {
	ServerURL string
	Timezone  string
}

// UpdateInput changes user-editable fields. Nil fields are left alone.
type UpdateInput struct {
	Name     *string
	Timezone *string
}

// ConnectResult tells the dashboard where to send the user.
type ConnectResult struct {
	AccountID    string `json:"accountId"`
	AuthorizeURL string `json:"authorizeUrl"`
}

// Authorize lets the owner and admins through.
func Authorize(subject *auth.AuthSubject, a *models.Account) error {
	if a == nil {
		return ErrNotFound
	}
	if subject == nil {
		return ErrForbidden
	}
	if subject.IsAdmin() || subject.UserID == a.OwnerID {
		return nil
	}
	return ErrForbidden
}

// List returns the caller's accounts, oldest first.
func (s *Service) List(ctx context.Context, subject *auth.AuthSubject) ([]models.Account, error) {
	accounts, err := s.store.ListAccountsByOwner(ctx, subject.UserID)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	return accounts, nil
}

// Create adds an unconnected account for the caller.
func (s *Service) Create(ctx context.Context, subject *auth.AuthSubject, in CreateInput) (*models.Account, error) {
	server, err := mastodon.NormalizeServerURL(in.ServerURL)
	if err != nil {
		return nil, err
	}
	tz := in.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if !timeframe.ValidLocation(tz) {
		return nil, ErrInvalidTimezone
	}

	if s.maxPerUser > 0 && !subject.IsAdmin() {
		n, err := s.store.CountAccountsByOwner(ctx, subject.UserID)
		if err != nil {
			return nil, err
		}
		if n >= s.maxPerUser {
			return nil, ErrAccountLimit
		}
	}

	a := &models.Account{
		ID:        uuid.NewString(),
		OwnerID:   subject.UserID,
		ServerURL: server,
		Timezone:  tz,
	}
	if err := s.store.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().
		Str("account_id", a.ID).
		Str("server", server).
		Msg("Account created")
	return a, nil
}

// Get loads an account the caller may see.
func (s *Service) Get(ctx context.Context, subject *auth.AuthSubject, id string) (*models.Account, error) {
	a, err := s.store.GetAccount(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := Authorize(subject, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Update changes name or timezone.
func (s *Service) Update(ctx context.Context, subject *auth.AuthSubject, id string, in UpdateInput) (*models.Account, error) {
	a, err := s.Get(ctx, subject, id)
	if err != nil {
		return nil, err
	}
	if in.Timezone != nil {
		if !timeframe.ValidLocation(*in.Timezone) {
			return nil, ErrInvalidTimezone
		}
		a.Timezone = *in.Timezone
	}
	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if err := s.store.UpdateAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes the account and everything collected for it.
func (s *Service) Delete(ctx context.Context, subject *auth.AuthSubject, id string) error {
	if _, err := s.Get(ctx, subject, id); err != nil {
		return err
	}
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	logging.Ctx(ctx).Info().Str("account_id", id).Msg("Account deleted")
	return nil
}

// Connect registers an OAuth app on the account's instance and returns the
// URL the user must visit. The connection token travels as OAuth state.
func (s *Service) Connect(ctx context.Context, subject *auth.AuthSubject, id string) (*ConnectResult, error) {
	a, err := s.Get(ctx, subject, id)
	if err != nil {
		return nil, err
	}

	app, err := s.client.RegisterApp(ctx, a.ServerURL, s.mastodon.AppName, s.redirectURI, s.mastodon.Scopes, s.mastodon.Website)
	if err != nil {
		return nil, fmt.Errorf("register app on %s: %w", a.ServerURL, err)
	}

	creds := &models.AccountCredentials{
		AccountID:    a.ID,
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
	}
	// A reconnect keeps collecting with the old token until the callback.
	if existing, err := s.store.GetCredentials(ctx, a.ID); err == nil {
		creds.AccessToken = existing.AccessToken
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if err := s.store.SaveCredentials(ctx, creds); err != nil {
		return nil, err
	}

	issuedAt := s.now().UTC()
	a.ConnectionToken = uuid.NewString()
	a.ConnectionTokenIssuedAt = &issuedAt
	a.RequestedScope = append([]string(nil), s.mastodon.Scopes...)
	if err := s.store.UpdateAccount(ctx, a); err != nil {
		return nil, err
	}

	return &ConnectResult{
		AccountID:    a.ID,
		AuthorizeURL: s.client.AuthorizeURL(a.ServerURL, app.ClientID, s.redirectURI, s.mastodon.Scopes, a.ConnectionToken),
	}, nil
}

// ConnectCallback finishes the OAuth flow started by Connect.
func (s *Service) ConnectCallback(ctx context.Context, subject *auth.AuthSubject, token, code string) (*models.Account, error) {
	a, err := s.store.GetAccountByConnectionToken(ctx, token)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidConnection
	}
	if err != nil {
		return nil, err
	}
	if err := Authorize(subject, a); err != nil {
		return nil, err
	}
	if staleConnection(a, s.now(), ConnectionTokenTTL) {
		return nil, ErrInvalidConnection
	}

	creds, err := s.store.GetCredentials(ctx, a.ID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidConnection
	}
	if err != nil {
		return nil, err
	}

	tok, err := s.client.ExchangeCode(ctx, a.ServerURL, creds.ClientID, creds.ClientSecret, s.redirectURI, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	profile, err := s.client.VerifyCredentials(ctx, a.ServerURL, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	applyProfile(a, profile)
	if scopes := tok.Scopes(); len(scopes) > 0 {
		a.RequestedScope = scopes
	}

	creds.AccessToken = tok.AccessToken
	if err := s.store.SaveCredentials(ctx, creds); err != nil {
		return nil, err
	}
	if err := s.store.SetAccountConnected(ctx, a); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("account_id", a.ID).
		Str("account_name", a.AccountName).
		Msg("Account connected")

	if s.publisher != nil {
		err := s.publisher.Publish(ctx, events.TopicAccountConnected, events.AccountConnected{
			AccountID: a.ID,
			OwnerID:   a.OwnerID,
		})
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("account_id", a.ID).Msg("Failed to publish account.connected")
		}
	}
	return a, nil
}

// applyProfile copies the verified Mastodon profile onto the account.
func applyProfile(a *models.Account, p *mastodon.Account) {
	a.MastodonAccountID = p.ID
	a.Username = p.Username
	a.Name = p.DisplayName
	if a.Name == "" {
		a.Name = p.Username
	}
	a.AccountURL = p.URL
	a.AvatarURL = p.Avatar
	a.AccountName = accountHandle(p.Username, a.ServerURL)
}

// accountHandle is the fully qualified @user@host handle.
func accountHandle(username, server string) string {
	host := server
	if u, err := url.Parse(server); err == nil && u.Host != "" {
		host = u.Host
	}
	return "@" + username + "@" + host
}

// staleConnection reports whether a pending connect is older than maxAge.
// A token without an issue time predates the column and counts as stale.
func staleConnection(a *models.Account, now time.Time, maxAge time.Duration) bool {
	if a.ConnectionToken == "" {
		return false
	}
	if a.ConnectionTokenIssuedAt == nil {
		return true
	}
	return now.Sub(*a.ConnectionTokenIssuedAt) > maxAge
}
