package notify

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/greatwhitesecurity/opshub/internal/upstream"
	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioConfig holds Twilio account credentials.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	Timeout    time.Duration
}

// Twilio sends SMS through the Twilio Messages API.
type Twilio struct {
	from   string
	rest   *twilio.RestClient
	client *upstream.Client
}

// NewTwilio creates a Twilio notifier. Only throttled sends are retried: a
// 5xx may arrive after Twilio accepted the message.
func NewTwilio(cfg TwilioConfig, opts ...upstream.Option) *Twilio {
	opts = append([]upstream.Option{upstream.WithRetryPolicy(upstream.RetryThrottled)}, opts...)
	client := upstream.NewClient("twilio", cfg.Timeout, opts...)

	// The SDK takes no context, so the http.Client timeout bounds each attempt.
	hc := *client.HTTPClient()
	hc.Timeout = client.Timeout()

	base := &twclient.Client{
		Credentials: twclient.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  &hc,
	}
	base.SetAccountSid(cfg.AccountSID)

	return &Twilio{
		from:   cfg.From,
		rest:   twilio.NewRestClientWithParams(twilio.ClientParams{Client: base}),
		client: client,
	}
}

func (t *Twilio) Send(ctx context.Context, to, body string) (*Delivery, error) {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	var msg *openapi.ApiV2010Message

	err := t.client.Call(ctx, func(context.Context) error {
		var err error

		msg, err = t.rest.Api.CreateMessage(params)

		return twilioFailure(err)
	})
	if err != nil {
		return nil, err
	}

	delivery := &Delivery{}
	if msg.Sid != nil {
		delivery.ID = *msg.Sid
	}

	if msg.Status != nil {
		delivery.Status = *msg.Status
	}

	return delivery, nil
}

func twilioFailure(err error) error {
	var restErr *twclient.TwilioRestError
	if errors.As(err, &restErr) {
		status := restErr.Status
		if status == 0 {
			status = http.StatusBadGateway
		}

		return &upstream.Failure{Service: "twilio", Status: status, Message: restErr.Message}
	}

	return err
}

// ValidateSignature checks an X-Twilio-Signature header against the full
// webhook URL and the posted form parameters.
func ValidateSignature(authToken, fullURL string, params url.Values, signature string) bool {
	fields := make(map[string]string, len(params))
	for k := range params {
		fields[k] = params.Get(k)
	}

	validator := twclient.NewRequestValidator(authToken)

	return validator.Validate(fullURL, fields, signature)
}
