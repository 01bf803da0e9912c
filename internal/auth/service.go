// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// Package auth handles dashboard logins: registration, access and refresh
// tokens, email verification and password resets.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/database"
	"github.com/blazer82/analytodon-sub001/internal/events"
	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/timeframe"
)

var (
	ErrEmailTaken         = errors.New("email address is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user is inactive")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidTimezone    = errors.New("invalid timezone")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// MinPasswordLength is enforced on registration and reset.
const MinPasswordLength = 8

// UserStore is the slice of the database the auth flows need.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetEmailVerified(ctx context.Context, id string, verified bool) error
	SetPassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]models.Account, error)
}

// Service implements the auth flows.
type Service struct {
	users     UserStore
	tokens    TokenStore
	jwt       *JWTManager
	publisher events.Publisher
	audit     *logging.SecurityLogger
	cfg       config.SecurityConfig
	now       func() time.Time
}

// NewService wires the auth flows.
func NewService(users UserStore, tokens TokenStore, jwt *JWTManager, publisher events.Publisher, cfg *config.SecurityConfig) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		jwt:       jwt,
		publisher: publisher,
		audit:     logging.NewSecurityLogger(),
		cfg:       *cfg,
		now:       time.Now,
	}
}

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Email     string
	Password  string
	Timezone  string
	ServerURL string
}

// TokenResponse is returned by Login, Register and Refresh.
type TokenResponse struct {
	AccessToken  string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         *models.User `json:"user"`
}

// SessionInfo is the current user with their accounts.
type SessionInfo struct {
	User     *models.User     `json:"user"`
	Accounts []models.Account `json:"accounts"`
}

// Register creates an account-owner and mails the verification link.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if len(in.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	tz := in.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if !timeframe.ValidLocation(tz) {
		return nil, ErrInvalidTimezone
	}

	hash, err := HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:                 uuid.NewString(),
		Email:              email,
		PasswordHash:       hash,
		Role:               models.RoleAccountOwner,
		IsActive:           true,
		Timezone:           tz,
		ServerURLOnSignUp:  in.ServerURL,
		EmailNotifications: models.EmailNotifications{WeeklyStats: true, News: true},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	verification, err := s.issue(ctx, PurposeEmailVerification, user.ID, s.cfg.VerificationTTL)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TopicWelcome, events.WelcomeMail{
		UserID:            user.ID,
		Email:             user.Email,
		VerificationToken: verification,
	})

	logging.Ctx(ctx).Info().Str("user_id", user.ID).Msg("User registered")
	return s.tokenResponse(ctx, user)
}

// Login checks the password and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		burnPasswordCheck(password)
		s.audit.LogLogin(ctx, "", email, false, "unknown email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !CheckPassword(user.PasswordHash, password) {
		s.audit.LogLogin(ctx, user.ID, email, false, "wrong password")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.audit.LogLogin(ctx, user.ID, email, false, "inactive")
		return nil, ErrUserInactive
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	user.DeletionNoticeSentAt = nil

	s.audit.LogLogin(ctx, user.ID, email, true, "")
	return s.tokenResponse(ctx, user)
}

// Refresh rotates refreshToken: it is revoked and a new pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	userID, err := s.tokens.Take(ctx, PurposeRefresh, refreshToken)
	if errors.Is(err, ErrTokenNotFound) {
		s.audit.LogRefresh(ctx, "", false)
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	s.audit.LogRefresh(ctx, user.ID, true)
	return s.tokenResponse(ctx, user)
}

// Logout revokes refreshToken. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.tokens.Delete(ctx, PurposeRefresh, refreshToken)
}

// VerifyEmail consumes a verification token.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.consume(ctx, PurposeEmailVerification, token)
	if err != nil {
		return err
	}
	if err := s.users.SetEmailVerified(ctx, userID, true); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	logging.Ctx(ctx).Info().Str("user_id", userID).Msg("Email verified")
	return nil
}

// RequestPasswordReset mails a reset token. Unknown addresses succeed
// silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.issue(ctx, PurposePasswordReset, user.ID, s.cfg.PasswordResetTTL)
	if err != nil {
		return err
	}
	s.publish(ctx, events.TopicPasswordReset, events.PasswordResetMail{
		UserID:     user.ID,
		Email:      user.Email,
		ResetToken: token,
	})
	return nil
}

// ResetPassword sets a new password and revokes every refresh token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	userID, err := s.consume(ctx, PurposePasswordReset, token)
	if err != nil {
		return err
	}

	hash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, userID, hash); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if _, err := s.tokens.DeleteUser(ctx, PurposeRefresh, userID); err != nil {
		return err
	}

	s.audit.LogPasswordReset(ctx, userID)
	return nil
}

// Session returns the user and their accounts.
func (s *Service) Session(ctx context.Context, userID string) (*SessionInfo, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.users.ListAccountsByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	return &SessionInfo{User: user, Accounts: accounts}, nil
}

func (s *Service) tokenResponse(ctx context.Context, user *models.User) (*TokenResponse, error) {
	access, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issue(ctx, PurposeRefresh, user.ID, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwt.TTL() / time.Second),
		User:         user,
	}, nil
}

func (s *Service) issue(ctx context.Context, purpose Purpose, userID string, ttl time.Duration) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	if err := s.tokens.Put(ctx, purpose, token, userID, ttl); err != nil {
		return "", fmt.Errorf("failed to store %s token: %w", purpose, err)
	}
	return token, nil
}

// consume returns the owner of a one-time token and revokes it.
func (s *Service) consume(ctx context.Context, purpose Purpose, token string) (string, error) {
	userID, err := s.tokens.Take(ctx, purpose, token)
	if errors.Is(err, ErrTokenNotFound) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// publish logs instead of failing: mails are best effort.
func (s *Service) publish(ctx context.Context, topic string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("Failed to publish event")
	}
}
