// Package auth registers users, checks their passwords and issues and
// verifies bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/azure/brand-mentions-api/internal/apperr"
	"github.com/azure/brand-mentions-api/internal/config"
	"github.com/azure/brand-mentions-api/internal/models"
	"github.com/azure/brand-mentions-api/internal/store"
	"github.com/azure/brand-mentions-api/internal/validation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput is a new account. Notifications default to enabled.
type RegisterInput struct {
	Username             string  `json:"username" validate:"required,min=3,max=64,alphanum"`
	Email                string  `json:"email" validate:"required,email,max=255"`
	Phone                *string `json:"phone,omitempty" validate:"omitempty,min=5,max=32"`
	Password             string  `json:"password" validate:"required,min=8,max=72"`
	NotificationsEnabled *bool   `json:"notifications_enabled,omitempty"`
}

// LoginInput identifies a user by username or email.
type LoginInput struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Token is an issued access token
type Token struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

// Service handles accounts and tokens
type Service struct {
	store  *store.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates a new auth service
func NewService(s *store.Store, cfg *config.Config) *Service {
	return &Service{
		store:  s,
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.JWTTTL,
		now:    time.Now,
	}
}

// Register creates an account. A taken username, email or phone is a
// conflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		in.Phone = &phone
		if phone == "" {
			in.Phone = nil
		}
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:             in.Username,
		Email:                in.Email,
		Phone:                in.Phone,
		PasswordHash:         string(hash),
		NotificationsEnabled: true,
	}
	if in.NotificationsEnabled != nil {
		user.NotificationsEnabled = *in.NotificationsEnabled
	}

	if err := s.store.Users.Create(ctx, nil, user); err != nil {
		return nil, err
	}

	logrus.WithField("user_id", user.ID).Info("Registered user")
	return user, nil
}

// Login checks the password and issues an access token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Token, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.store.Users.GetByLogin(ctx, nil, strings.TrimSpace(in.Login))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("invalid credentials", nil)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperr.Unauthorized("invalid credentials", err)
	}

	return s.Issue(user)
}

// Issue signs an HS256 token whose subject is the user id.
func (s *Service) Issue(user *models.User) (*Token, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.UTC(),
		User:        user,
	}, nil
}

// Verify checks a token's signature and expiry and returns its user id.
func (s *Service) Verify(tokenString string) (uuid.UUID, error) {
	if tokenString == "" {
		return uuid.Nil, apperr.Unauthorized("missing bearer token", nil)
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, apperr.Unauthorized("token expired", err)
		}
		return uuid.Nil, apperr.Unauthorized("invalid token", err)
	}
	if !token.Valid {
		return uuid.Nil, apperr.Unauthorized("invalid token", nil)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, apperr.Unauthorized("invalid token", err)
	}
	return userID, nil
}

// Me returns the user's account.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.store.Users.GetByID(ctx, nil, userID)
}

// SetNotifications turns match notifications on or off for the user.
func (s *Service) SetNotifications(ctx context.Context, userID uuid.UUID, enabled bool) (*models.User, error) {
	if err := s.store.Users.SetNotifications(ctx, nil, userID, enabled); err != nil {
		return nil, err
	}
	return s.store.Users.GetByID(ctx, nil, userID)
}
