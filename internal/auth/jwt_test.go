package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/access"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	actor := access.Actor{ID: uuid.New(), Role: access.RoleRescuer}

	token, err := GenerateToken(testSecret, actor, time.Hour)
	require.NoError(t, err)

	parsed, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, actor, parsed)
}

func TestParseToken_Rejects(t *testing.T) {
	actor := access.Actor{ID: uuid.New(), Role: access.RoleAdmin}

	expired, err := GenerateToken(testSecret, actor, -time.Minute)
	require.NoError(t, err)

	foreign, err := GenerateToken("other-secret", actor, time.Hour)
	require.NoError(t, err)

	badRole, err := GenerateToken(testSecret, access.Actor{ID: uuid.New(), Role: "superuser"}, time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             string(access.RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{Subject: actor.ID.String()},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: string(access.RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := map[string]string{
		"expired":      expired,
		"wrong secret": foreign,
		"unknown role": badRole,
		"no expiry":    noExpiry,
		"bad subject":  badSubject,
		"garbage":      "not.a.token",
		"empty":        "",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(testSecret, token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
