// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// @title Analytodon API
// @version 1.0
// @description Analytics for Mastodon accounts: followers, boosts, favorites,
// @description replies, top posts and hashtags, with KPIs and CSV exports.
// @description
// @description ## Authentication
// @description
// @description Send the access token from `/auth/login` as `Authorization: Bearer <token>`
// @description or let the browser send the `token` cookie. Access tokens are short lived;
// @description rotate them with `/auth/refresh`.
// @description
// @description ## Error Responses
// @description
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {"code": "NOT_FOUND", "message": "Account not found"},
// @description   "metadata": {"timestamp": "2026-03-17T12:34:56Z"}
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/blazer82/analytodon/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:3000
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description "Bearer " followed by the access token.
//
// @tag.name Health
// @tag.name Auth
// @tag.description Registration, login and token rotation
// @tag.name Users
// @tag.name Accounts
// @tag.description Mastodon accounts and the OAuth connection flow
// @tag.name Stats
// @tag.description KPIs, charts, top posts and hashtags per account
// @tag.name Export
// @tag.name Admin
package main
