package accounts_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accounts "github.com/eanavi/go-accounts"
)

func TestSessionTokens(t *testing.T) {
	ts := accounts.NewTokenService([]byte("test-signing-secret"), time.Hour, "accounts-test", testLogger{})

	t.Run("issued token verifies and carries the user id", func(t *testing.T) {
		signed, err := ts.IssueSession("68b1f2c4a1b2c3d4e5f60718")
		require.NoError(t, err)
		require.NotEmpty(t, signed)

		claims, err := ts.VerifySession(signed)
		require.NoError(t, err)

		assert.Equal(t, "68b1f2c4a1b2c3d4e5f60718", claims.UserID())
		assert.Equal(t, "accounts-test", claims.Issuer)
		assert.NotEmpty(t, claims.ID, "session tokens should carry a jti")
	})

	t.Run("tokens embed issue and expiry times", func(t *testing.T) {
		before := time.Now().Add(-2 * time.Second)

		signed, err := ts.IssueSession("abc")
		require.NoError(t, err)

		claims, err := ts.VerifySession(signed)
		require.NoError(t, err)

		require.NotNil(t, claims.IssuedAt)
		require.NotNil(t, claims.ExpiresAt)
		assert.True(t, claims.IssuedAt.After(before))
		assert.WithinDuration(t, claims.IssuedAt.Add(time.Hour), claims.ExpiresAt.Time, 2*time.Second)
	})

	t.Run("expired token is rejected as expired", func(t *testing.T) {
		expired := accounts.NewTokenService([]byte("test-signing-secret"), -time.Minute, "accounts-test", testLogger{})

		signed, err := expired.IssueSession("abc")
		require.NoError(t, err)

		claims, err := expired.VerifySession(signed)
		require.Error(t, err)
		assert.Nil(t, claims)
		assert.True(t, accounts.IsTokenExpiredError(err))
		assert.False(t, accounts.IsMalformedError(err))
	})

	t.Run("tampered token is rejected as malformed", func(t *testing.T) {
		signed, err := ts.IssueSession("abc")
		require.NoError(t, err)

		claims, err := ts.VerifySession(signed + "x")
		require.Error(t, err)
		assert.Nil(t, claims)
		assert.True(t, accounts.IsMalformedError(err))
	})

	t.Run("token signed with a different key is rejected", func(t *testing.T) {
		other := accounts.NewTokenService([]byte("some-other-secret"), time.Hour, "accounts-test", testLogger{})

		signed, err := other.IssueSession("abc")
		require.NoError(t, err)

		claims, err := ts.VerifySession(signed)
		require.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("token from a different issuer is rejected", func(t *testing.T) {
		other := accounts.NewTokenService([]byte("test-signing-secret"), time.Hour, "someone-else", testLogger{})

		signed, err := other.IssueSession("abc")
		require.NoError(t, err)

		_, err = ts.VerifySession(signed)
		require.Error(t, err)
	})
}

func TestResetTokens(t *testing.T) {
	ts := accounts.NewTokenService([]byte("test-signing-secret"), time.Hour, "accounts-test", testLogger{})

	t.Run("issue returns plaintext, matching hash and expiry", func(t *testing.T) {
		plaintext, hash, expires, err := ts.IssueResetToken()
		require.NoError(t, err)

		assert.Len(t, plaintext, 64, "32 random bytes, hex encoded")
		assert.Equal(t, ts.HashResetToken(plaintext), hash)
		assert.NotEqual(t, plaintext, hash, "plaintext must never be stored")
		assert.WithinDuration(t, time.Now().Add(accounts.ResetTokenTTL), expires, 2*time.Second)
	})

	t.Run("each issued token is unique", func(t *testing.T) {
		first, _, _, err := ts.IssueResetToken()
		require.NoError(t, err)
		second, _, _, err := ts.IssueResetToken()
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("hashing is deterministic", func(t *testing.T) {
		assert.Equal(t, ts.HashResetToken("abc123"), ts.HashResetToken("abc123"))
		assert.NotEqual(t, ts.HashResetToken("abc123"), ts.HashResetToken("abc124"))
	})
}
