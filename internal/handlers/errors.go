package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/greatwhitesecurity/opshub/internal/upstream"
)

// upstreamError maps a collaborator failure to an admin-facing API error.
func upstreamError(msg string, err error) error {
	var failure *upstream.Failure

	switch {
	case errors.Is(err, upstream.ErrNotConfigured):
		return huma.Error503ServiceUnavailable(msg + ": service not configured")
	case errors.Is(err, upstream.ErrTimeout):
		return huma.Error504GatewayTimeout(msg)
	case errors.As(err, &failure):
		return huma.Error502BadGateway(msg + ": " + failure.Service + " returned an error")
	default:
		return huma.Error500InternalServerError(msg)
	}
}
