package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	digest, err := h.Hash("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", digest)
	assert.True(t, strings.HasPrefix(digest, "$2a$"))

	assert.True(t, h.Verify(digest, "s3cret!"))
	assert.False(t, h.Verify(digest, "s3cret?"))
	assert.False(t, h.Verify("not-a-digest", "s3cret!"))
}

func TestHasher_SaltsEachDigest(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHasher_RejectsOverlongSecret(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	_, err := h.Hash(strings.Repeat("x", MaxPasswordBytes+1))
	assert.Error(t, err)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "grievanceportal")

	token, err := tm.GenerateToken(7, "sess-1", true, time.Hour)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID())
	assert.True(t, claims.Remember)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager("secret", "grievanceportal")

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewTokenManager("other", "grievanceportal").GenerateToken(7, "s", false, time.Hour)
		require.NoError(t, err)
		_, err = tm.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := NewTokenManager("secret", "someone-else").GenerateToken(7, "s", false, time.Hour)
		require.NoError(t, err)
		_, err = tm.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		old := NewTokenManager("secret", "grievanceportal")
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := old.GenerateToken(7, "s", false, time.Hour)
		require.NoError(t, err)
		_, err = tm.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := Claims{UserID: 7, RegisteredClaims: jwt.RegisteredClaims{ID: "s", Issuer: "grievanceportal"}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = tm.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("missing ids", func(t *testing.T) {
		_, err := tm.GenerateToken(0, "s", false, time.Hour)
		assert.Error(t, err)
		_, err = tm.GenerateToken(7, "", false, time.Hour)
		assert.Error(t, err)
	})
}
