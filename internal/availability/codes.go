package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/greatwhitesecurity/opshub/internal/shortlink"
)

// Codes issues and resolves availability codes.
type Codes struct {
	repo         Repository
	checks       CheckLog
	generateCode shortlink.CodeGenerator
	retention    time.Duration
	now          func() time.Time
}

// Option configures Codes.
type Option func(*Codes)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Codes) { c.now = now }
}

// NewCodes creates the availability code service.
func NewCodes(
	repo Repository,
	checks CheckLog,
	generator shortlink.CodeGenerator,
	retention time.Duration,
	opts ...Option,
) *Codes {
	c := &Codes{
		repo:         repo,
		checks:       checks,
		generateCode: generator,
		retention:    retention,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Issue returns the live code for the pair, creating one if none exists.
func (c *Codes) Issue(ctx context.Context, entityID, responderID string) (*Pairing, error) {
	existing, err := c.repo.FindByPair(ctx, entityID, responderID)
	if err == nil && !c.expired(existing) {
		return existing, nil
	}

	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	for range shortlink.MaxAttempts {
		pairing := &Pairing{
			Code:        Code(c.generateCode()),
			EntityID:    entityID,
			ResponderID: responderID,
			CreatedAt:   c.now(),
		}

		err := c.repo.Save(ctx, pairing)
		if err == nil {
			return pairing, nil
		}

		if !errors.Is(err, ErrCodeTaken) {
			return nil, fmt.Errorf("saving availability code: %w", err)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrCodeSpaceExhausted, shortlink.MaxAttempts)
}

// Lookup resolves a live code.
func (c *Codes) Lookup(ctx context.Context, code Code) (*Pairing, error) {
	pairing, err := c.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if c.expired(pairing) {
		return nil, ErrNotFound
	}

	return pairing, nil
}

// Sweep deletes codes and outbound checks older than the retention window.
func (c *Codes) Sweep(ctx context.Context) (int, error) {
	cutoff := c.now().Add(-c.retention)

	n, err := c.repo.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return n, err
	}

	m, err := c.checks.DeleteSentBefore(ctx, cutoff)

	return n + m, err
}

func (c *Codes) expired(p *Pairing) bool {
	return c.retention > 0 && c.now().Sub(p.CreatedAt) > c.retention
}
