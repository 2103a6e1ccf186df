package notify

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled spaces outbound messages to stay under the provider's send rate.
type Throttled struct {
	next    Notifier
	limiter *rate.Limiter
}

// NewThrottled wraps next with a token bucket of perSecond messages and the given burst.
func NewThrottled(next Notifier, perSecond float64, burst int) *Throttled {
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (t *Throttled) Send(ctx context.Context, to, body string) (*Delivery, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for send slot: %w", err)
	}

	return t.next.Send(ctx, to, body)
}
