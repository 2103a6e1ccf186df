package auth_test

import (
	"testing"
	"time"

	"github.com/greatwhitesecurity/opshub/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions(t *testing.T) {
	hash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)

	t.Run("login with the right password issues a verifiable token", func(t *testing.T) {
		sessions, err := auth.NewSessions("secret", hash, time.Hour)
		require.NoError(t, err)

		session, err := sessions.Login("operator", "hunter2")
		require.NoError(t, err)
		assert.NotEmpty(t, session.Token)
		assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)

		claims, err := sessions.Verify(session.Token)
		require.NoError(t, err)
		assert.Equal(t, "operator", claims.Subject)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		sessions, err := auth.NewSessions("secret", hash, time.Hour)
		require.NoError(t, err)

		_, err = sessions.Login("operator", "nope")

		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("empty password hash disables login", func(t *testing.T) {
		sessions, err := auth.NewSessions("secret", "", time.Hour)
		require.NoError(t, err)

		_, err = sessions.Login("operator", "")

		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		issuer, _ := auth.NewSessions("one", hash, time.Hour)
		verifier, _ := auth.NewSessions("two", hash, time.Hour)

		session, err := issuer.Issue("operator")
		require.NoError(t, err)

		_, err = verifier.Verify(session.Token)

		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		sessions, _ := auth.NewSessions("secret", hash, -time.Minute)

		session, err := sessions.Issue("operator")
		require.NoError(t, err)

		_, err = sessions.Verify(session.Token)

		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("generated secret still round-trips", func(t *testing.T) {
		sessions, err := auth.NewSessions("", hash, time.Hour)
		require.NoError(t, err)

		session, err := sessions.Issue("operator")
		require.NoError(t, err)

		_, err = sessions.Verify(session.Token)
		require.NoError(t, err)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		sessions, _ := auth.NewSessions("secret", hash, time.Hour)

		_, err := sessions.Verify("not-a-jwt")

		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
