// Package auth issues and verifies the bearer tokens guarding the admin API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"million-words-server/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminSubject = "admin"
	tokenIssuer  = "million-words-server"
)

// AdminClaims are carried by admin tokens.
type AdminClaims struct {
	jwt.RegisteredClaims
}

// AdminService checks the admin password and signs tokens.
type AdminService struct {
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

// NewAdminService creates the service. passwordHash is a bcrypt hash; an empty
// hash disables admin authentication entirely.
func NewAdminService(passwordHash, secret string, ttl time.Duration, logger *zap.Logger) *AdminService {
	return &AdminService{
		passwordHash: []byte(passwordHash),
		secret:       []byte(secret),
		ttl:          ttl,
		now:          time.Now,
		logger:       logger.Named("AdminAuth"),
	}
}

// Enabled reports whether admin routes require a token.
func (s *AdminService) Enabled() bool {
	return len(s.passwordHash) > 0
}

// Login compares the password against the configured hash and returns a
// signed token with its expiry.
func (s *AdminService) Login(password string) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, models.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		s.logger.Warn("Admin login rejected")
		return "", time.Time{}, models.ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   adminSubject,
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign admin token: %w", err)
	}
	s.logger.Info("Admin token issued", zap.String("tokenID", claims.ID), zap.Time("expiresAt", expiresAt))
	return signed, expiresAt, nil
}

// Verify validates a token produced by Login.
func (s *AdminService) Verify(tokenString string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(tokenIssuer), jwt.WithSubject(adminSubject))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		s.logger.Debug("Admin token rejected", zap.Error(err))
		return nil, models.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}
