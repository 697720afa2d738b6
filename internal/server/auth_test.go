package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gravitas-games/gridinv/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "test-login"

func newTestValidator(t *testing.T) (*JWTValidator, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "jwt_public.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))

	cfg := &config.Config{JWT: config.JWTConfig{
		Enabled:             true,
		Issuer:              testIssuer,
		PublicKeyFile:       path,
		PublicKeyRefreshHrs: 24,
	}}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	v, err := NewJWTValidator(ctx, cfg, nil)
	require.NoError(t, err)
	return v, key
}

func signToken(t *testing.T, key *ecdsa.PrivateKey, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() Claims {
	return Claims{
		UserID:     42,
		Username:   "alice",
		Email:      "alice@example.com",
		AuthMethod: "password",
		Activated:  1700000000,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestValidateToken(t *testing.T) {
	v, key := newTestValidator(t)

	player, err := v.ValidateToken(signToken(t, key, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "42", player.ID)
	assert.Equal(t, "alice", player.Username)
	assert.True(t, player.IsActive())
	assert.False(t, player.Guest)
	assert.Equal(t, "42", player.InventoryOwner())
}

func TestValidateTokenRejects(t *testing.T) {
	v, key := newTestValidator(t)
	otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "someone-else"

	banned := validClaims()
	banned.Activated = -1

	inactive := validClaims()
	inactive.Activated = 0

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong issuer", signToken(t, key, wrongIssuer)},
		{"banned", signToken(t, key, banned)},
		{"not activated", signToken(t, key, inactive)},
		{"expired", signToken(t, key, expired)},
		{"foreign key", signToken(t, otherKey, validClaims())},
		{"hmac", hmac},
		{"garbage", "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateToken(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestNewJWTValidatorNeedsKey(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Enabled: true, PublicKeyFile: filepath.Join(t.TempDir(), "missing.pem")}}
	_, err := NewJWTValidator(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Sec-WebSocket-Protocol", "access_token, abc")
	assert.Equal(t, "abc", extractTokenFromHeader(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer def")
	assert.Equal(t, "def", extractTokenFromHeader(r))

	r = httptest.NewRequest("GET", "/ws?token=ghi", nil)
	assert.Equal(t, "ghi", extractTokenFromHeader(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Sec-WebSocket-Protocol", "chat")
	assert.Empty(t, extractTokenFromHeader(r))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a , ,b ", ","))
	assert.Nil(t, splitAndTrim("  ", ","))
}
