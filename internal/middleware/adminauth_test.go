package middleware_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/greatwhitesecurity/opshub/internal/auth"
	"github.com/greatwhitesecurity/opshub/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireSession(t *testing.T) {
	sessions, err := auth.NewSessions("test-secret", "", time.Hour)
	require.NoError(t, err)

	protected := func() *mockHumaContext {
		ctx := newMockHumaContext()
		ctx.operation = &huma.Operation{
			Path:     "/api/shortlinks/stats",
			Metadata: map[string]any{auth.MetadataKey: true},
		}

		return ctx
	}

	run := func(ctx *mockHumaContext) bool {
		called := false

		middleware.RequireSession(newTestAPI(), sessions)(ctx, func(huma.Context) { called = true })

		return called
	}

	t.Run("passes operations without the auth marker", func(t *testing.T) {
		assert.True(t, run(newMockHumaContext()))
	})

	t.Run("rejects protected operations without a token", func(t *testing.T) {
		ctx := protected()

		assert.False(t, run(ctx))
		assert.Equal(t, http.StatusUnauthorized, ctx.statusCode)
		assert.Equal(t, "Bearer", ctx.respHeader["WWW-Authenticate"])
	})

	t.Run("rejects an invalid token", func(t *testing.T) {
		ctx := protected()
		ctx.headers["Authorization"] = "Bearer garbage"

		assert.False(t, run(ctx))
		assert.Equal(t, http.StatusUnauthorized, ctx.statusCode)
	})

	t.Run("accepts a valid session", func(t *testing.T) {
		session, err := sessions.Issue("operator")
		require.NoError(t, err)

		ctx := protected()
		ctx.headers["Authorization"] = "Bearer " + session.Token

		assert.True(t, run(ctx))
	})
}
