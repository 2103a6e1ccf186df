package audit

import (
	"context"

	"github.com/greatwhitesecurity/opshub/internal/events"
	"go.uber.org/zap"
)

// LogStore writes audit events to the log only.
type LogStore struct {
	logger *zap.Logger
}

// NewLogStore creates a log-only audit store.
func NewLogStore(logger *zap.Logger) *LogStore {
	return &LogStore{logger: logger}
}

func (s *LogStore) SaveLinkCreated(_ context.Context, event *events.LinkCreated) error {
	s.logger.Info("link created",
		zap.String("code", event.Code),
		zap.String("entity_id", event.EntityID),
		zap.Time("created_at", event.CreatedAt),
	)

	return nil
}

func (s *LogStore) SaveLinkResolved(_ context.Context, event *events.LinkResolved) error {
	s.logger.Info("link resolved",
		zap.String("code", event.Code),
		zap.Time("resolved_at", event.ResolvedAt),
		zap.String("referrer", event.Referrer),
	)

	return nil
}

func (s *LogStore) SaveAvailabilityResponded(_ context.Context, event *events.AvailabilityResponded) error {
	s.logger.Info("availability response",
		zap.String("entity_id", event.EntityID),
		zap.String("responder_id", event.ResponderID),
		zap.String("answer", event.Answer),
		zap.String("source", event.Source),
	)

	return nil
}
