package store

import (
	"context"
	"errors"
	"time"

	"github.com/greatwhitesecurity/opshub/internal/availability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AvailabilityPostgresStore is a PostgreSQL availability.Repository.
type AvailabilityPostgresStore struct {
	pool *pgxpool.Pool
}

// NewAvailabilityPostgresStore creates a PostgreSQL-backed availability code store.
func NewAvailabilityPostgresStore(pool *pgxpool.Pool) *AvailabilityPostgresStore {
	return &AvailabilityPostgresStore{pool: pool}
}

func (p *AvailabilityPostgresStore) Save(ctx context.Context, pairing *availability.Pairing) error {
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO availability_codes (code, entity_id, responder_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO NOTHING
	`, string(pairing.Code), pairing.EntityID, pairing.ResponderID, pairing.CreatedAt)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return availability.ErrCodeTaken
	}

	return nil
}

func (p *AvailabilityPostgresStore) GetByCode(ctx context.Context, code availability.Code) (*availability.Pairing, error) {
	return p.scanOne(ctx, `
		SELECT code, entity_id, responder_id, created_at
		FROM availability_codes
		WHERE code = $1
	`, string(code))
}

func (p *AvailabilityPostgresStore) FindByPair(
	ctx context.Context, entityID, responderID string,
) (*availability.Pairing, error) {
	return p.scanOne(ctx, `
		SELECT code, entity_id, responder_id, created_at
		FROM availability_codes
		WHERE entity_id = $1 AND responder_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, entityID, responderID)
}

func (p *AvailabilityPostgresStore) Delete(ctx context.Context, code availability.Code) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM availability_codes WHERE code = $1`, string(code))

	return err
}

func (p *AvailabilityPostgresStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM availability_codes WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}

	return int(tag.RowsAffected()), nil
}

func (p *AvailabilityPostgresStore) scanOne(ctx context.Context, query string, args ...any) (*availability.Pairing, error) {
	var pairing availability.Pairing

	err := p.pool.QueryRow(ctx, query, args...).Scan(
		&pairing.Code,
		&pairing.EntityID,
		&pairing.ResponderID,
		&pairing.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, availability.ErrNotFound
		}

		return nil, err
	}

	return &pairing, nil
}

// CheckPostgresLog is a PostgreSQL availability.CheckLog.
type CheckPostgresLog struct {
	pool *pgxpool.Pool
}

// NewCheckPostgresLog creates a PostgreSQL-backed outbound check log.
func NewCheckPostgresLog(pool *pgxpool.Pool) *CheckPostgresLog {
	return &CheckPostgresLog{pool: pool}
}

func (l *CheckPostgresLog) Record(ctx context.Context, check *availability.Check) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO availability_checks (id, entity_id, responder_id, code, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`, check.ID, check.EntityID, check.ResponderID, string(check.Code), check.SentAt)

	return err
}

func (l *CheckPostgresLog) Latest(ctx context.Context, responderID string) (*availability.Check, error) {
	var check availability.Check

	err := l.pool.QueryRow(ctx, `
		SELECT id, entity_id, responder_id, code, sent_at
		FROM availability_checks
		WHERE responder_id = $1
		ORDER BY sent_at DESC
		LIMIT 1
	`, responderID).Scan(&check.ID, &check.EntityID, &check.ResponderID, &check.Code, &check.SentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, availability.ErrNoOpenCheck
		}

		return nil, err
	}

	return &check, nil
}

func (l *CheckPostgresLog) DeleteSentBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := l.pool.Exec(ctx, `DELETE FROM availability_checks WHERE sent_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}

	return int(tag.RowsAffected()), nil
}

// Compile-time checks.
var (
	_ availability.Repository = (*AvailabilityPostgresStore)(nil)
	_ availability.CheckLog   = (*CheckPostgresLog)(nil)
)
