package store

import (
	"context"
	"encoding/json"

	"github.com/greatwhitesecurity/opshub/internal/audit"
	"github.com/greatwhitesecurity/opshub/internal/events"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditPostgresStore writes audit events to the audit_events table.
type AuditPostgresStore struct {
	pool *pgxpool.Pool
}

// NewAuditPostgresStore creates a PostgreSQL audit store.
func NewAuditPostgresStore(pool *pgxpool.Pool) *AuditPostgresStore {
	return &AuditPostgresStore{pool: pool}
}

func (s *AuditPostgresStore) SaveLinkCreated(ctx context.Context, event *events.LinkCreated) error {
	return s.insert(ctx, events.TopicLinkCreated, event.Code, event)
}

func (s *AuditPostgresStore) SaveLinkResolved(ctx context.Context, event *events.LinkResolved) error {
	return s.insert(ctx, events.TopicLinkResolved, event.Code, event)
}

func (s *AuditPostgresStore) SaveAvailabilityResponded(ctx context.Context, event *events.AvailabilityResponded) error {
	return s.insert(ctx, events.TopicAvailabilityResponded, event.EntityID, event)
}

func (s *AuditPostgresStore) insert(ctx context.Context, topic, subject string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_events (topic, subject, payload) VALUES ($1, $2, $3)`,
		topic, subject, payload,
	)

	return err
}

// Compile-time check.
var _ audit.Store = (*AuditPostgresStore)(nil)
