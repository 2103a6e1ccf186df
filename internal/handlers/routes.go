package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/greatwhitesecurity/opshub/internal/auth"
	"github.com/greatwhitesecurity/opshub/internal/ratelimit"
)

// Handlers groups every operation handler.
type Handlers struct {
	Links        *LinkHandler
	Availability *AvailabilityHandler
	Payments     *PaymentHandler
	Assets       *AssetHandler
	Sessions     *SessionHandler
	SMSWebhook   *SMSWebhookHandler
}

func publicMeta() map[string]any {
	return ratelimit.Metadata(ratelimit.EndpointConfig{Scope: ratelimit.ScopePublic})
}

func adminMeta() map[string]any {
	meta := ratelimit.Metadata(ratelimit.EndpointConfig{Scope: ratelimit.ScopeAdmin})
	meta[auth.MetadataKey] = true

	return meta
}

var bearerAuth = []map[string][]string{{"bearer": {}}}

// RegisterRoutes registers every operation. The catch-all /{code} redirect is
// registered last so it never shadows another single-segment route.
func RegisterRoutes(api huma.API, h Handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "create-session",
		Method:      http.MethodPost,
		Path:        "/api/admin/session",
		Summary:     "Log in as operator",
		Tags:        []string{"Admin"},
		Metadata: ratelimit.Metadata(ratelimit.EndpointConfig{
			Limits: []ratelimit.LimitConfig{
				{Window: time.Minute, Max: 5},
				{Window: time.Hour, Max: 30},
			},
		}),
	}, h.Sessions.CreateSession)

	huma.Register(api, huma.Operation{
		OperationID:   "create-short-link",
		Method:        http.MethodPost,
		Path:          "/api/shortlinks",
		Summary:       "Create short link",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusCreated,
		Security:      bearerAuth,
		Metadata:      adminMeta(),
	}, h.Links.CreateShortLink)

	huma.Register(api, huma.Operation{
		OperationID: "short-link-stats",
		Method:      http.MethodGet,
		Path:        "/api/shortlinks/stats",
		Summary:     "List short links",
		Description: "Returns the total number of live links and the newest ones first.",
		Tags:        []string{"Links"},
		Security:    bearerAuth,
		Metadata:    adminMeta(),
	}, h.Links.Stats)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-short-link",
		Method:        http.MethodDelete,
		Path:          "/api/shortlinks/{code}",
		Summary:       "Delete short link",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearerAuth,
		Metadata:      adminMeta(),
	}, h.Links.DeleteShortLink)

	huma.Register(api, huma.Operation{
		OperationID: "short-link-qr",
		Method:      http.MethodGet,
		Path:        "/api/shortlinks/{code}/qr",
		Summary:     "Short link QR code",
		Tags:        []string{"Links"},
		Security:    bearerAuth,
		Metadata:    adminMeta(),
	}, h.Links.QRCode)

	huma.Register(api, huma.Operation{
		OperationID: "dispatch-availability-checks",
		Method:      http.MethodPost,
		Path:        "/api/availability/checks",
		Summary:     "Ask technicians for availability",
		Tags:        []string{"Availability"},
		Security:    bearerAuth,
		Metadata:    adminMeta(),
	}, h.Availability.DispatchChecks)

	huma.Register(api, huma.Operation{
		OperationID: "create-checkout",
		Method:      http.MethodPost,
		Path:        "/api/payments/checkout",
		Summary:     "Create payment link",
		Tags:        []string{"Payments"},
		Security:    bearerAuth,
		Metadata:    adminMeta(),
	}, h.Payments.Checkout)

	huma.Register(api, huma.Operation{
		OperationID: "upload-asset",
		Method:      http.MethodPost,
		Path:        "/api/assets",
		Summary:     "Upload asset",
		Tags:        []string{"Assets"},
		Security:    bearerAuth,
		Metadata:    adminMeta(),
	}, h.Assets.Upload)

	huma.Register(api, huma.Operation{
		OperationID: "sms-webhook",
		Method:      http.MethodPost,
		Path:        "/webhooks/sms",
		Summary:     "Inbound SMS",
		Tags:        []string{"Webhooks"},
		Metadata:    ratelimit.Metadata(ratelimit.EndpointConfig{Scope: ratelimit.ScopeWebhook}),
	}, h.SMSWebhook.Receive)

	huma.Register(api, huma.Operation{
		OperationID: "respond-yes",
		Method:      http.MethodGet,
		Path:        "/ty/{code}",
		Summary:     "Technician is available",
		Tags:        []string{"Availability"},
		Metadata:    publicMeta(),
	}, h.Availability.RespondYes)

	huma.Register(api, huma.Operation{
		OperationID: "respond-no",
		Method:      http.MethodGet,
		Path:        "/tn/{code}",
		Summary:     "Technician is not available",
		Tags:        []string{"Availability"},
		Metadata:    publicMeta(),
	}, h.Availability.RespondNo)

	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Follow short link",
		Tags:        []string{"Links"},
		Metadata:    publicMeta(),
	}, h.Links.Redirect)
}
