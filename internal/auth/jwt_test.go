package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tokens := NewTokens("secret", time.Minute, time.Hour)

	pair, err := tokens.Issue(7)
	require.NoError(t, err)

	claims, err := tokens.Parse(pair.Access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.NotEmpty(t, claims.ID)

	_, err = tokens.Parse(pair.Access, RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "access token used as refresh")

	_, err = tokens.Parse(pair.Refresh, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh token used as access")
}

func TestRefresh(t *testing.T) {
	tokens := NewTokens("secret", time.Minute, time.Hour)
	pair, err := tokens.Issue(3)
	require.NoError(t, err)

	access, err := tokens.Access(pair.Refresh)
	require.NoError(t, err)
	claims, err := tokens.Parse(access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.UserID)

	_, err = tokens.Access(pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejects(t *testing.T) {
	tokens := NewTokens("secret", time.Minute, time.Hour)
	pair, err := tokens.Issue(1)
	require.NoError(t, err)

	other := NewTokens("other", time.Minute, time.Hour)
	_, err = other.Parse(pair.Access, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tokens.Parse(pair.Access, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1, TokenType: AccessToken}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tokens.Parse(none, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "alg none")

	_, err = tokens.Parse("garbage", AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
