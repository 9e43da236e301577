package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/clinconsult/pkg/config"
)

func newTestAuthService(ttl time.Duration) *AuthService {
	return NewAuthService(&config.AuthConfig{
		JWTSecret: "test-secret",
		TokenTTL:  ttl,
		Users:     map[string]string{"alice": "secret"},
	})
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	service := newTestAuthService(time.Hour)

	token, err := service.Login("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	subject, err := service.Verify(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestLogin_WrongPassword(t *testing.T) {
	service := newTestAuthService(time.Hour)

	_, err := service.Login("alice", "wrong")
	require.Error(t, err)
}

func TestLogin_UnknownUser(t *testing.T) {
	service := newTestAuthService(time.Hour)

	_, err := service.Login("mallory", "secret")
	require.Error(t, err)
}

func TestVerify_ExpiredToken(t *testing.T) {
	service := newTestAuthService(-time.Minute)

	token, err := service.Login("alice", "secret")
	require.NoError(t, err)

	_, err = service.Verify(token.AccessToken)
	require.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	service := newTestAuthService(time.Hour)

	_, err := service.Verify("not-a-token")
	require.Error(t, err)
}

func TestVerify_DifferentSecret(t *testing.T) {
	issuer := newTestAuthService(time.Hour)
	verifier := NewAuthService(&config.AuthConfig{
		JWTSecret: "other-secret",
		TokenTTL:  time.Hour,
		Users:     map[string]string{"alice": "secret"},
	})

	token, err := issuer.Login("alice", "secret")
	require.NoError(t, err)

	_, err = verifier.Verify(token.AccessToken)
	require.Error(t, err)
}
