// Package audit persists domain events for later inspection.
package audit

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/greatwhitesecurity/opshub/internal/events"
	"github.com/greatwhitesecurity/opshub/internal/messaging"
	"go.uber.org/zap"
)

// Store persists audit events.
type Store interface {
	SaveLinkCreated(ctx context.Context, event *events.LinkCreated) error
	SaveLinkResolved(ctx context.Context, event *events.LinkResolved) error
	SaveAvailabilityResponded(ctx context.Context, event *events.AvailabilityResponded) error
}

// Consumers returns one consumer per audited topic, all writing to store.
func Consumers(subscriber message.Subscriber, store Store, logger *zap.Logger) []messaging.Runnable {
	return []messaging.Runnable{
		messaging.NewConsumer[events.LinkCreated](subscriber, events.TopicLinkCreated, store.SaveLinkCreated, logger),
		messaging.NewConsumer[events.LinkResolved](subscriber, events.TopicLinkResolved, store.SaveLinkResolved, logger),
		messaging.NewConsumer[events.AvailabilityResponded](
			subscriber, events.TopicAvailabilityResponded, store.SaveAvailabilityResponded, logger),
	}
}
