package auth

import (
	"testing"

	"github.com/noneedcode-dev/fiscalist-api/config"
	"github.com/noneedcode-dev/fiscalist-api/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokenService(secret string) *TokenService {
	return NewTokenService(&config.Config{
		JWT: config.JWTConfig{
			SecretKey:      secret,
			AccessTokenTTL: 60,
		},
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	ts := testTokenService("test-secret")

	clientID := uuid.New()
	user := &models.User{
		ID:       uuid.New(),
		ClientID: &clientID,
		Email:    "user@example.com",
		Role:     "client_user",
	}

	token, err := ts.GenerateAccessToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.Role, claims.Role)
	require.NotNil(t, claims.ClientID)
	assert.Equal(t, clientID, *claims.ClientID)
	assert.Equal(t, "fiscalist-api", claims.Issuer)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	ts := testTokenService("secret-a")
	user := &models.User{ID: uuid.New(), Email: "user@example.com", Role: "advisor"}

	token, err := ts.GenerateAccessToken(user)
	require.NoError(t, err)

	other := testTokenService("secret-b")
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	ts := testTokenService("test-secret")
	_, err := ts.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestStaffTokenHasNoClientID(t *testing.T) {
	ts := testTokenService("test-secret")
	user := &models.User{ID: uuid.New(), Email: "staff@example.com", Role: "advisor"}

	token, err := ts.GenerateAccessToken(user)
	require.NoError(t, err)

	claims, err := ts.ValidateToken(token)
	require.NoError(t, err)
	assert.Nil(t, claims.ClientID)
}

func TestExtractTokenFromHeader(t *testing.T) {
	ts := testTokenService("test-secret")

	token, err := ts.ExtractTokenFromHeader("Bearer abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	token, err = ts.ExtractTokenFromHeader("bearer abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	_, err = ts.ExtractTokenFromHeader("abc123")
	assert.Error(t, err)

	_, err = ts.ExtractTokenFromHeader("Bearer ")
	assert.Error(t, err)

	_, err = ts.ExtractTokenFromHeader("Basic abc123")
	assert.Error(t, err)
}
