package middleware

import (
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/greatwhitesecurity/opshub/internal/auth"
)

// SessionVerifier validates operator session tokens.
type SessionVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireSession rejects requests to operations marked with auth.MetadataKey
// unless they carry a valid Bearer session token.
func RequireSession(api huma.API, sessions SessionVerifier) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op == nil || op.Metadata == nil {
			next(ctx)

			return
		}

		if required, _ := op.Metadata[auth.MetadataKey].(bool); !required {
			next(ctx)

			return
		}

		token, ok := strings.CutPrefix(ctx.Header("Authorization"), "Bearer ")
		if !ok || token == "" {
			ctx.SetHeader("WWW-Authenticate", "Bearer")
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "missing bearer token")

			return
		}

		if _, err := sessions.Verify(token); err != nil {
			ctx.SetHeader("WWW-Authenticate", `Bearer error="invalid_token"`)
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid session", err)

			return
		}

		next(ctx)
	}
}
