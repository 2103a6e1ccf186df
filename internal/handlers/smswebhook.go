package handlers

import (
	"context"
	"errors"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/greatwhitesecurity/opshub/internal/availability"
	"github.com/greatwhitesecurity/opshub/internal/notify"
	"github.com/greatwhitesecurity/opshub/internal/phone"
	"github.com/greatwhitesecurity/opshub/internal/records"
	"go.uber.org/zap"
)

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// SMSWebhookHandler receives inbound text messages and records yes/no
// replies to availability checks.
type SMSWebhookHandler struct {
	replies    *availability.Replies
	authToken  string
	webhookURL string
	logger     *zap.Logger
}

// NewSMSWebhookHandler creates the webhook handler. Signatures are checked
// against webhookURL when authToken is set.
func NewSMSWebhookHandler(replies *availability.Replies, authToken, webhookURL string, logger *zap.Logger) *SMSWebhookHandler {
	return &SMSWebhookHandler{
		replies:    replies,
		authToken:  authToken,
		webhookURL: webhookURL,
		logger:     logger,
	}
}

// Receive always answers with an empty TwiML document once the request is
// authenticated; reply problems are logged rather than bounced to the sender.
func (h *SMSWebhookHandler) Receive(ctx context.Context, req *SMSWebhookRequest) (*SMSWebhookResponse, error) {
	params, err := url.ParseQuery(string(req.RawBody))
	if err != nil {
		return nil, huma.Error400BadRequest("malformed form body")
	}

	if h.authToken != "" && !notify.ValidateSignature(h.authToken, h.webhookURL, params, req.Signature) {
		h.logger.Warn("rejected sms webhook with invalid signature",
			zap.String("client_ip", RequestMetaFromContext(ctx).ClientIP))

		return nil, huma.Error403Forbidden("invalid signature")
	}

	from := params.Get("From")

	outcome, err := h.replies.Handle(ctx, from, params.Get("Body"))

	switch {
	case err == nil:
		h.logger.Info("recorded sms availability reply",
			zap.String("entity_id", outcome.Entity.ID),
			zap.String("responder_id", outcome.Responder.ID),
			zap.String("answer", string(outcome.Answer)),
		)
	case errors.Is(err, availability.ErrNotAnAnswer):
		h.logger.Info("ignored sms that is not a yes/no answer", zap.String("from", from))
	case errors.Is(err, records.ErrResponderNotFound), errors.Is(err, availability.ErrNoOpenCheck),
		errors.Is(err, phone.ErrInvalid):
		h.logger.Warn("sms reply could not be attributed", zap.String("from", from), zap.Error(err))
	default:
		h.logger.Error("failed to record sms reply", zap.String("from", from), zap.Error(err))
	}

	return &SMSWebhookResponse{ContentType: "text/xml", Body: []byte(emptyTwiML)}, nil
}
