// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// Package apidocs registers the OpenAPI 2.0 document served at
// /swagger/doc.json. Regenerate it from the handler annotations with:
//
//	swag init -g cmd/server/docs.go -o internal/apidocs --packageName apidocs
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "GitHub Repository",
            "url": "https://github.com/blazer82/analytodon/issues"
        },
        "license": {
            "name": "AGPL-3.0-or-later",
            "url": "https://www.gnu.org/licenses/agpl-3.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {"tags": ["Health"], "summary": "Liveness probe", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/health/ready": {
            "get": {"tags": ["Health"], "summary": "Readiness probe", "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/auth/register": {
            "post": {"tags": ["Auth"], "summary": "Sign up", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.RegisterRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/auth/login": {
            "post": {"tags": ["Auth"], "summary": "Log in", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/auth/refresh": {
            "post": {"tags": ["Auth"], "summary": "Refresh tokens", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.RefreshRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/auth/logout": {
            "post": {"tags": ["Auth"], "summary": "Log out", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.RefreshRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/auth/verify-email": {
            "post": {"tags": ["Auth"], "summary": "Verify email address", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.TokenRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/auth/request-password-reset": {
            "post": {"tags": ["Auth"], "summary": "Request a password reset", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.PasswordResetRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/auth/reset-password": {
            "post": {"tags": ["Auth"], "summary": "Reset password", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.ResetPasswordRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/auth/session": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Current session", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/users": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "List users", "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/users/me": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Users"], "summary": "Current user", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["Users"], "summary": "Update current user", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.UpdateUserRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/users/unsubscribe": {
            "post": {"tags": ["Users"], "summary": "Unsubscribe from weekly stats", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.UnsubscribeRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/accounts": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Accounts"], "summary": "List accounts", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Accounts"], "summary": "Create account", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.CreateAccountRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/accounts/connect/callback": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Accounts"], "summary": "Finish connecting an account", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.ConnectCallbackRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/accounts/{accountID}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Accounts"], "summary": "Get account", "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/accountID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["Accounts"], "summary": "Update account", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/accountID"}, {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.UpdateAccountRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Accounts"], "summary": "Delete account",
                "parameters": [{"$ref": "#/parameters/accountID"}],
                "responses": {"204": {"description": "No Content"}}}
        },
        "/accounts/{accountID}/connect": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Accounts"], "summary": "Start connecting an account", "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/accountID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/accounts/{accountID}/{metric}/{period}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Stats"], "summary": "Metric KPI", "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/accountID"}, {"$ref": "#/parameters/metric"},
                    {"type": "string", "enum": ["weekly", "monthly", "yearly"], "name": "period", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/accounts/{accountID}/{metric}/chart": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Stats"], "summary": "Metric chart", "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/accountID"}, {"$ref": "#/parameters/metric"}, {"$ref": "#/parameters/timeframe"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/accounts/{accountID}/{metric}/export": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Export"], "summary": "Metric CSV export", "produces": ["text/csv"],
                "parameters": [{"$ref": "#/parameters/accountID"}, {"$ref": "#/parameters/metric"}, {"$ref": "#/parameters/timeframe"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}}
        },
        "/accounts/{accountID}/toots/top": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Stats"], "summary": "Top toots", "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/accountID"}, {"$ref": "#/parameters/timeframe"}, {"$ref": "#/parameters/limit"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/accounts/{accountID}/toots/export": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Export"], "summary": "Top toots CSV export", "produces": ["text/csv"],
                "parameters": [{"$ref": "#/parameters/accountID"}, {"$ref": "#/parameters/timeframe"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}}
        },
        "/accounts/{accountID}/hashtags/top": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Stats"], "summary": "Top hashtags", "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/accountID"}, {"$ref": "#/parameters/timeframe"}, {"$ref": "#/parameters/limit"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/accounts/{accountID}/hashtags/over-time": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Stats"], "summary": "Hashtags over time", "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/accountID"}, {"$ref": "#/parameters/timeframe"}, {"$ref": "#/parameters/limit"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/accounts/{accountID}/hashtags/engagement": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Stats"], "summary": "Hashtag engagement", "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/accountID"}, {"$ref": "#/parameters/timeframe"}, {"$ref": "#/parameters/limit"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/accounts/{accountID}/hashtags/most-effective": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Stats"], "summary": "Most effective hashtags", "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/accountID"}, {"$ref": "#/parameters/timeframe"}, {"$ref": "#/parameters/limit"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/accounts/{accountID}/hashtags/export": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Export"], "summary": "Hashtag CSV export", "produces": ["text/csv"],
                "parameters": [{"$ref": "#/parameters/accountID"}, {"$ref": "#/parameters/timeframe"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}}
        },
        "/admin/jobs/{job}": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "Trigger a job", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "enum": ["fetch-account-stats", "fetch-toot-stats", "send-weekly-stats", "cleanup"], "name": "job", "in": "path", "required": true},
                    {"type": "string", "description": "Restrict to one account", "name": "account", "in": "query"}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        }
    },
    "parameters": {
        "accountID": {"type": "string", "description": "Account ID", "name": "accountID", "in": "path", "required": true},
        "metric": {"type": "string", "enum": ["followers", "replies", "boosts", "favorites"], "name": "metric", "in": "path", "required": true},
        "timeframe": {"type": "string", "enum": ["last7days", "last30days", "thismonth", "lastmonth", "thisyear", "lastyear"], "name": "timeframe", "in": "query"},
        "limit": {"type": "integer", "minimum": 1, "maximum": 100, "name": "limit", "in": "query"}
    },
    "definitions": {
        "models.APIResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["success", "error"]},
                "data": {},
                "metadata": {"$ref": "#/definitions/models.Metadata"},
                "error": {"$ref": "#/definitions/models.APIError"}
            }
        },
        "models.Metadata": {
            "type": "object",
            "properties": {
                "timestamp": {"type": "string", "format": "date-time"},
                "query_time_ms": {"type": "integer"},
                "cached": {"type": "boolean"}
            }
        },
        "models.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "object", "additionalProperties": true}
            }
        },
        "api.RegisterRequest": {
            "type": "object", "required": ["email", "password", "timezone"],
            "properties": {
                "email": {"type": "string", "maxLength": 254},
                "password": {"type": "string", "minLength": 8, "maxLength": 128},
                "timezone": {"type": "string"},
                "serverURL": {"type": "string", "maxLength": 255}
            }
        },
        "api.LoginRequest": {
            "type": "object", "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "api.RefreshRequest": {
            "type": "object", "required": ["refreshToken"],
            "properties": {"refreshToken": {"type": "string"}}
        },
        "api.TokenRequest": {
            "type": "object", "required": ["token"],
            "properties": {"token": {"type": "string"}}
        },
        "api.PasswordResetRequest": {
            "type": "object", "required": ["email"],
            "properties": {"email": {"type": "string"}}
        },
        "api.ResetPasswordRequest": {
            "type": "object", "required": ["token", "password"],
            "properties": {"token": {"type": "string"}, "password": {"type": "string", "minLength": 8, "maxLength": 128}}
        },
        "api.UpdateUserRequest": {
            "type": "object",
            "properties": {
                "timezone": {"type": "string"},
                "emailNotifications": {
                    "type": "object",
                    "properties": {"weeklyStats": {"type": "boolean"}, "news": {"type": "boolean"}}
                }
            }
        },
        "api.UnsubscribeRequest": {
            "type": "object", "required": ["userId", "email"],
            "properties": {"userId": {"type": "string"}, "email": {"type": "string"}}
        },
        "api.CreateAccountRequest": {
            "type": "object", "required": ["serverURL", "timezone"],
            "properties": {"serverURL": {"type": "string"}, "timezone": {"type": "string"}}
        },
        "api.UpdateAccountRequest": {
            "type": "object",
            "properties": {"name": {"type": "string", "maxLength": 100}, "timezone": {"type": "string"}}
        },
        "api.ConnectCallbackRequest": {
            "type": "object", "required": ["token", "code"],
            "properties": {"token": {"type": "string"}, "code": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Access token from /auth/login, sent as \"Bearer <token>\" or in the token cookie.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds the exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Analytodon API",
	Description:      "Engagement statistics for Mastodon accounts: followers, replies, boosts, favorites, hashtags and top toots.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
