package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindowDays(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 30, false},
		{"7", 7, false},
		{"30d", 30, false},
		{" 90D ", 90, false},
		{"14", 0, true},
		{"week", 0, true},
		{"-7", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindowDays(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJWT_RoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateJWT("user-42", "owner@example.com", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID)
	assert.Equal(t, "owner@example.com", claims.Email)
}

func TestValidateJWT_Rejects(t *testing.T) {
	secret := []byte("test-secret")

	expired, err := GenerateJWT("user-42", "", secret, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateJWT(expired, secret)
	assert.Error(t, err, "expired")

	good, err := GenerateJWT("user-42", "", secret, time.Hour)
	require.NoError(t, err)
	_, err = ValidateJWT(good, []byte("other-secret"))
	assert.Error(t, err, "wrong secret")

	_, err = ValidateJWT(good, nil)
	assert.Error(t, err, "empty secret")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-42"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidateJWT(unsigned, secret)
	assert.Error(t, err, "alg none")

	_, err = ValidateJWT("not.a.token", secret)
	assert.Error(t, err)
}
