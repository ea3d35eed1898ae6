package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret-key-32-bytes-ok"

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)

	token, expiresAt, err := svc.GenerateToken("tourist-1", "tourist")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "tourist-1", claims.Subject)
	assert.Equal(t, "tourist", claims.Role)
	assert.WithinDuration(t, expiresAt, claims.ExpiryTime(), time.Second)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := NewJWTService(testSecret, -time.Minute)

	token, _, err := svc.GenerateToken("tourist-1", "tourist")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestWrongKeyRejected(t *testing.T) {
	minter := NewJWTService(testSecret, time.Hour)
	verifier := NewJWTService("a-completely-different-signing-key", time.Hour)

	token, _, err := minter.GenerateToken("tourist-1", "tourist")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)

	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)

	_, err = svc.ValidateToken("")
	assert.Error(t, err)
}
