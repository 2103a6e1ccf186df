package shortlink

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Service owns link creation, resolution and expiry.
type Service struct {
	repo         Repository
	generateCode CodeGenerator
	retention    time.Duration
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a link service. Links older than retention are treated as gone.
func NewService(repo Repository, generator CodeGenerator, retention time.Duration, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		generateCode: generator,
		retention:    retention,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Retention returns the configured retention window.
func (s *Service) Retention() time.Duration {
	return s.retention
}

// Create stores a new link for target and returns it.
func (s *Service) Create(ctx context.Context, target, entityID string) (*Link, error) {
	for range MaxAttempts {
		link := &Link{
			Code:      Code(s.generateCode()),
			Target:    target,
			EntityID:  entityID,
			CreatedAt: s.now(),
		}

		err := s.repo.Save(ctx, link)
		if err == nil {
			return link, nil
		}

		if !errors.Is(err, ErrCodeTaken) {
			return nil, fmt.Errorf("saving short link: %w", err)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrCodeSpaceExhausted, MaxAttempts)
}

// Resolve returns the live link for code. It never extends a link's lifetime.
func (s *Service) Resolve(ctx context.Context, code Code) (*Link, error) {
	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if s.expired(link) {
		return nil, ErrNotFound
	}

	return link, nil
}

// Remove deletes a link; removing an absent code is a no-op.
func (s *Service) Remove(ctx context.Context, code Code) error {
	return s.repo.Delete(ctx, code)
}

// Stats is an operational snapshot of the link table.
type Stats struct {
	TotalLinks int
	Links      []*Link
}

// Stats lists links newest first. A limit of zero or less lists all of them.
func (s *Service) Stats(ctx context.Context, limit int) (*Stats, error) {
	links, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})

	stats := &Stats{TotalLinks: len(links), Links: links}
	if limit > 0 && limit < len(links) {
		stats.Links = links[:limit]
	}

	return stats, nil
}

// Sweep deletes links older than the retention window.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	return s.repo.DeleteCreatedBefore(ctx, s.now().Add(-s.retention))
}

func (s *Service) expired(link *Link) bool {
	return s.retention > 0 && s.now().Sub(link.CreatedAt) > s.retention
}
