// Package notify sends and receives SMS messages.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Delivery describes an accepted outbound message.
type Delivery struct {
	ID     string
	Status string
}

// Notifier sends a text message to a phone number.
type Notifier interface {
	Send(ctx context.Context, to, body string) (*Delivery, error)
}

// LogNotifier writes messages to the log instead of sending them. Used when no SMS provider is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, to, body string) (*Delivery, error) {
	n.logger.Info("sms not sent, no provider configured",
		zap.String("to", to),
		zap.String("body", body),
	)

	return &Delivery{Status: "logged"}, nil
}
