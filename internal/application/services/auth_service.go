package services

import (
	"crypto/subtle"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/carebridge/clinconsult/pkg/config"
	"github.com/carebridge/clinconsult/pkg/errors"
)

// AuthService issues and verifies the demo bearer tokens that gate the API.
// Credentials come from configuration; this is prototype auth, not an
// identity system.
type AuthService struct {
	secret   []byte
	tokenTTL time.Duration
	users    map[string]string
}

// Token is an issued bearer token with its expiry.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewAuthService creates an auth service from config.
func NewAuthService(cfg *config.AuthConfig) *AuthService {
	return &AuthService{
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: cfg.TokenTTL,
		users:    cfg.Users,
	}
}

// Login checks credentials and issues a signed JWT.
func (s *AuthService) Login(username, password string) (*Token, error) {
	expected := s.users[username]
	if subtle.ConstantTimeCompare([]byte(password), []byte(expected)) != 1 || expected == "" {
		return nil, errors.NewUnauthorizedError("invalid credentials")
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, errors.NewInternalError("failed to sign token", err)
	}

	return &Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// Verify validates a bearer token and returns its subject.
func (s *AuthService) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NewUnauthorizedError("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.NewUnauthorizedError("invalid or expired token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.NewUnauthorizedError("token has no subject")
	}
	return claims.Subject, nil
}
