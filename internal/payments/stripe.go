package payments

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/greatwhitesecurity/opshub/internal/upstream"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// ErrInvalidAmount is returned for non-positive amounts.
var ErrInvalidAmount = errors.New("amount must be positive")

// StripeConfig holds Stripe Checkout settings.
type StripeConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
	BaseURL    string // defaults to the public API
	Timeout    time.Duration
}

// Stripe creates Checkout sessions through the Stripe SDK.
type Stripe struct {
	cfg    StripeConfig
	api    *client.API
	client *upstream.Client
}

// NewStripe creates a Stripe gateway. Retries are driven by upstream.Client;
// every attempt of one checkout reuses its idempotency key.
func NewStripe(cfg StripeConfig, opts ...upstream.Option) *Stripe {
	c := upstream.NewClient("stripe", cfg.Timeout, opts...)

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        c.HTTPClient(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	return &Stripe{cfg: cfg, api: api, client: c}
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*Session, error) {
	if s.cfg.SecretKey == "" {
		return nil, upstream.ErrNotConfigured
	}

	if params.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	currency := params.Currency
	if currency == "" {
		currency = "usd"
	}

	idempotencyKey := uuid.NewString()

	var out *stripe.CheckoutSession

	err := s.client.Call(ctx, func(ctx context.Context) error {
		req := &stripe.CheckoutSessionParams{
			Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
			SuccessURL: stripe.String(s.cfg.SuccessURL),
			CancelURL:  stripe.String(s.cfg.CancelURL),
			LineItems: []*stripe.CheckoutSessionLineItemParams{{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(params.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(params.Description),
					},
				},
			}},
		}
		req.Context = ctx
		req.SetIdempotencyKey(idempotencyKey)
		req.AddMetadata("entity_id", params.EntityID)

		var err error

		out, err = s.api.CheckoutSessions.New(req)

		return stripeFailure(err)
	})
	if err != nil {
		return nil, err
	}

	return &Session{ID: out.ID, URL: out.URL}, nil
}

func stripeFailure(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		status := stripeErr.HTTPStatusCode
		if status == 0 {
			status = http.StatusBadGateway
		}

		return &upstream.Failure{Service: "stripe", Status: status, Message: stripeErr.Msg}
	}

	return err
}
