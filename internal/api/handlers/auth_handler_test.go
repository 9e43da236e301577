package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/clinconsult/internal/application/services"
	"github.com/carebridge/clinconsult/pkg/config"
)

func newAuthHandler() *AuthHandler {
	return NewAuthHandler(services.NewAuthService(&config.AuthConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
		Users:     map[string]string{"demo": "demo"},
	}))
}

func TestLogin_Success(t *testing.T) {
	handler := newAuthHandler()

	recorder := httptest.NewRecorder()
	handler.Login(recorder, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username": "demo", "password": "demo"}`)))

	require.Equal(t, http.StatusOK, recorder.Code)

	var token services.Token
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &token))
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
}

func TestLogin_BadCredentials(t *testing.T) {
	handler := newAuthHandler()

	recorder := httptest.NewRecorder()
	handler.Login(recorder, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username": "demo", "password": "nope"}`)))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestLogin_MissingFields(t *testing.T) {
	handler := newAuthHandler()

	recorder := httptest.NewRecorder()
	handler.Login(recorder, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username": "demo"}`)))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
