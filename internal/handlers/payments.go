package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/greatwhitesecurity/opshub/internal/payments"
	"go.uber.org/zap"
)

// PaymentHandler creates checkout sessions and short links customers can
// receive by SMS.
type PaymentHandler struct {
	gateway payments.Gateway
	links   *LinkHandler
	logger  *zap.Logger
}

func NewPaymentHandler(gateway payments.Gateway, links *LinkHandler, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{gateway: gateway, links: links, logger: logger}
}

func (h *PaymentHandler) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	session, err := h.gateway.CreateCheckoutSession(ctx, payments.CheckoutParams{
		EntityID:    req.Body.EntityID,
		Description: req.Body.Description,
		AmountCents: req.Body.AmountCents,
		Currency:    req.Body.Currency,
	})
	if err != nil {
		if errors.Is(err, payments.ErrInvalidAmount) {
			return nil, huma.Error400BadRequest(err.Error())
		}

		h.logger.Error("failed to create checkout session", zap.String("entity_id", req.Body.EntityID), zap.Error(err))

		return nil, upstreamError("failed to create checkout session", err)
	}

	link, err := h.links.create(ctx, session.URL, req.Body.EntityID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to create payment link")
	}

	resp := &CheckoutResponse{}
	resp.Body.SessionID = session.ID
	resp.Body.CheckoutURL = session.URL
	resp.Body.Code = string(link.Code)
	resp.Body.ShortURL = h.links.shortURL(link.Code)

	return resp, nil
}
