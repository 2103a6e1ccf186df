package store

import (
	"context"
	"errors"
	"time"

	"github.com/greatwhitesecurity/opshub/internal/shortlink"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a PostgreSQL implementation of shortlink.Repository.
// Links survive restarts and deploys.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed link store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Save(ctx context.Context, link *shortlink.Link) error {
	query := `
		INSERT INTO short_links (code, target, entity_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO NOTHING
	`

	tag, err := p.pool.Exec(ctx, query,
		string(link.Code),
		link.Target,
		link.EntityID,
		link.CreatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return shortlink.ErrCodeTaken
	}

	return nil
}

func (p *PostgresStore) GetByCode(ctx context.Context, code shortlink.Code) (*shortlink.Link, error) {
	query := `
		SELECT code, target, entity_id, created_at
		FROM short_links
		WHERE code = $1
	`

	var link shortlink.Link

	err := p.pool.QueryRow(ctx, query, string(code)).Scan(
		&link.Code,
		&link.Target,
		&link.EntityID,
		&link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortlink.ErrNotFound
		}

		return nil, err
	}

	return &link, nil
}

func (p *PostgresStore) Delete(ctx context.Context, code shortlink.Code) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM short_links WHERE code = $1`, string(code))

	return err
}

func (p *PostgresStore) List(ctx context.Context) ([]*shortlink.Link, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT code, target, entity_id, created_at
		FROM short_links
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*shortlink.Link, error) {
		var link shortlink.Link
		err := row.Scan(&link.Code, &link.Target, &link.EntityID, &link.CreatedAt)

		return &link, err
	})
}

func (p *PostgresStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM short_links WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}

	return int(tag.RowsAffected()), nil
}

// Compile-time check.
var _ shortlink.Repository = (*PostgresStore)(nil)
