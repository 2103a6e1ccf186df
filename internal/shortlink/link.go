package shortlink

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a code is unknown, removed or expired.
	ErrNotFound = errors.New("short link not found")
	// ErrCodeTaken is returned by a Repository when the code is already live.
	ErrCodeTaken = errors.New("short code already in use")
	// ErrCodeSpaceExhausted is returned when no free code was found within the attempt budget.
	ErrCodeSpaceExhausted = errors.New("short code space exhausted")
)

// Code represents a short link code.
type Code string

// Link maps a code to an external URL or an internal path.
// Links are immutable once saved.
type Link struct {
	Code      Code
	Target    string
	EntityID  string // audit only, never used for resolution
	CreatedAt time.Time
}

// Repository stores links keyed by code.
type Repository interface {
	// Save inserts the link, returning ErrCodeTaken if the code is live.
	Save(ctx context.Context, link *Link) error
	GetByCode(ctx context.Context, code Code) (*Link, error)
	// Delete removes the link. Deleting an absent code is not an error.
	Delete(ctx context.Context, code Code) error
	List(ctx context.Context) ([]*Link, error)
	// DeleteCreatedBefore removes every link created before cutoff and reports how many.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
