package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Owner@Example.COM", want: "Owner@example.com"},
		{in: "  vet@Clinic.io ", want: "vet@clinic.io"},
		{in: "odd@name@Host.ORG", want: "odd@name@host.org"},
		{in: "no-at-sign", want: "no-at-sign"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEmail(tt.in))
		})
	}
}

func TestHashTokenIsStable(t *testing.T) {
	token, err := GenerateRandomToken(32)
	require.NoError(t, err)
	assert.Equal(t, HashToken(token), HashToken(token))
	assert.NotEqual(t, token, HashToken(token))
}

func TestMakeRandomPassword(t *testing.T) {
	pw, err := MakeRandomPassword(16)
	require.NoError(t, err)
	assert.Len(t, pw, 16)
	for _, r := range pw {
		assert.True(t, strings.ContainsRune(randomPasswordChars, r))
	}

	pw, err = MakeRandomPassword(0)
	require.NoError(t, err)
	assert.Len(t, pw, 10)
}

func TestJWTManagerRoundTrip(t *testing.T) {
	m := JWTManager{Secret: []byte("secret"), Issuer: "pets", AccessTokenTTL: time.Minute}
	token, ttl, err := m.IssueAccessToken(AccessSubject{
		UserID:      "u-1",
		PhoneNumber: "+15551234567",
		UserType:    "vet_doctor",
		IsStaff:     true,
		SessionID:   "s-1",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	claims, err := m.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "+15551234567", claims.PhoneNumber)
	assert.True(t, claims.IsStaff)
	assert.False(t, claims.IsSuperuser)
	assert.Equal(t, "s-1", claims.SessionID)

	other := JWTManager{Secret: []byte("different"), Issuer: "pets"}
	_, err = other.ParseAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := JWTManager{Secret: []byte("secret"), Issuer: "someone-else"}
	_, err = wrongIssuer.ParseAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
