// Package payments creates hosted checkout sessions.
package payments

import "context"

// CheckoutParams describes a one-off payment for an engagement.
type CheckoutParams struct {
	EntityID    string
	Description string
	AmountCents int64
	Currency    string
}

// Session is a created checkout session.
type Session struct {
	ID  string
	URL string
}

// Gateway creates checkout sessions.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*Session, error)
}
