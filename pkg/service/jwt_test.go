package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "dispatch-system/pkg/errors"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", time.Hour, 24*time.Hour)

	access, refresh, err := svc.GenerateTokens("disp-1", "dispatcher")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, "disp-1", claims.ActorID)
	assert.Equal(t, "dispatcher", claims.Role)
	assert.False(t, claims.IsRefreshToken)

	claims, err = svc.ValidateToken(refresh)
	require.NoError(t, err)
	assert.True(t, claims.IsRefreshToken)
}

func TestJWTService_Expired(t *testing.T) {
	svc := &jwtService{SecretKey: "secret", AccessTokenExp: time.Minute, RefreshTokenExp: time.Minute,
		now: func() time.Time { return time.Now().Add(-time.Hour) }}

	access, _, err := svc.GenerateTokens("tech-1", "technician")
	require.NoError(t, err)

	_, err = svc.ValidateToken(access)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestJWTService_WrongSecret(t *testing.T) {
	access, _, err := NewJWTService("a", time.Hour, time.Hour).GenerateTokens("x", "admin")
	require.NoError(t, err)

	_, err = NewJWTService("b", time.Hour, time.Hour).ValidateToken(access)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}
