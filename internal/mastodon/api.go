// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package mastodon

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// App is the result of registering an OAuth application.
type App struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Token is an OAuth access token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	CreatedAt   int64  `json:"created_at"`
}

// Scopes splits the space separated scope string.
func (t *Token) Scopes() []string {
	return strings.Fields(t.Scope)
}

// Account is the subset of a Mastodon account entity Analytodon stores.
type Account struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Acct           string `json:"acct"`
	DisplayName    string `json:"display_name"`
	URL            string `json:"url"`
	Avatar         string `json:"avatar"`
	FollowersCount int64  `json:"followers_count"`
	FollowingCount int64  `json:"following_count"`
	StatusesCount  int64  `json:"statuses_count"`
}

// RegisterApp creates an OAuth application on server.
func (c *Client) RegisterApp(ctx context.Context, server, appName, redirectURI string, scopes []string, website string) (*App, error) {
	form := url.Values{}
	form.Set("client_name", appName)
	form.Set("redirect_uris", redirectURI)
	form.Set("scopes", strings.Join(scopes, " "))
	if website != "" {
		form.Set("website", website)
	}

	var app App
	err := c.do(ctx, &request{
		endpoint: "apps",
		method:   http.MethodPost,
		server:   server,
		path:     "/api/v1/apps",
		form:     form,
	}, &app)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// AuthorizeURL is where the user grants access. state comes back on the
// redirect unchanged.
func (c *Client) AuthorizeURL(server, clientID, redirectURI string, scopes []string, state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", strings.Join(scopes, " "))
	if state != "" {
		q.Set("state", state)
	}
	return strings.TrimRight(server, "/") + "/oauth/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, server, clientID, clientSecret, redirectURI, code string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("redirect_uri", redirectURI)

	var tok Token
	err := c.do(ctx, &request{
		endpoint: "oauth_token",
		method:   http.MethodPost,
		server:   server,
		path:     "/oauth/token",
		form:     form,
	}, &tok)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// VerifyCredentials returns the account the token belongs to, including
// its current counters.
func (c *Client) VerifyCredentials(ctx context.Context, server, token string) (*Account, error) {
	var acct Account
	err := c.do(ctx, &request{
		endpoint: "verify_credentials",
		method:   http.MethodGet,
		server:   server,
		path:     "/api/v1/accounts/verify_credentials",
		token:    token,
	}, &acct)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}
