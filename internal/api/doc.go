// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

/*
Package api serves the Analytodon REST API on a chi router.

Every route lives under /api/v1 and answers with the models.APIResponse
envelope:

	{"status":"success","data":{...},"metadata":{"timestamp":"...","query_time_ms":3}}
	{"status":"error","data":null,"metadata":{...},"error":{"code":"NOT_FOUND","message":"..."}}

CSV exports are the exception and stream text/csv with a Content-Disposition
attachment header.

# Route groups

  - /health: liveness and readiness, public.
  - /auth: registration, login, token refresh and the mail token flows.
    Login is limited to 5 attempts per 5 minutes per IP.
  - /users: profile and notification settings. /users/unsubscribe is public
    and only needs the user ID and email from the weekly mail link.
  - /accounts: Mastodon account CRUD and the OAuth connect flow.
  - /accounts/{accountID}/{metric}/...: KPIs, charts, top toots, hashtags
    and CSV exports. JSON responses are cached per account for 5 minutes
    and dropped when the collector refreshes the account.
  - /admin/jobs/{job}: runs a collector job in the background.

Authenticated groups run auth.Middleware.Authenticate followed by the casbin
policy check in authz.Middleware.Authorize. Ownership of an account is
checked again in the accounts service, so a route that slips past the policy
still cannot read another user's data.
*/
package api
