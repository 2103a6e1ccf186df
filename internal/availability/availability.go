// Package availability asks technicians whether they can take an engagement
// and records their answers.
package availability

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned for unknown, removed or expired availability codes.
	ErrNotFound = errors.New("availability code not found")
	// ErrCodeTaken is returned by a Repository when the code is already live.
	ErrCodeTaken = errors.New("availability code already in use")
	// ErrCodeSpaceExhausted is returned when no free code was found within the attempt budget.
	ErrCodeSpaceExhausted = errors.New("availability code space exhausted")
	// ErrNoOpenCheck is returned when a responder has never been sent a check.
	ErrNoOpenCheck = errors.New("no availability check sent to responder")
	// ErrNotAnAnswer is returned for SMS replies other than yes or no.
	ErrNotAnAnswer = errors.New("message is not a yes/no answer")
)

// Code is a lowercase alphanumeric availability code.
type Code string

// Answer is a technician's reply.
type Answer string

const (
	Yes Answer = "YES"
	No  Answer = "NO"
)

// ParseAnswer accepts "yes" or "no" in any case, surrounded by whitespace.
func ParseAnswer(s string) (Answer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return Yes, nil
	case "no":
		return No, nil
	default:
		return "", ErrNotAnAnswer
	}
}

// Source identifies how an answer arrived.
type Source string

const (
	SourceLink     Source = "link"
	SourceSMSReply Source = "sms_reply"
)

// Pairing binds a code to an (entity, responder) pair. Pairings are immutable.
type Pairing struct {
	Code        Code
	EntityID    string
	ResponderID string
	CreatedAt   time.Time
}

// Repository stores pairings keyed by code.
type Repository interface {
	// Save inserts the pairing, returning ErrCodeTaken if the code is live.
	Save(ctx context.Context, pairing *Pairing) error
	GetByCode(ctx context.Context, code Code) (*Pairing, error)
	// FindByPair returns the newest live pairing for entity and responder.
	FindByPair(ctx context.Context, entityID, responderID string) (*Pairing, error)
	Delete(ctx context.Context, code Code) error
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Check is an outbound availability request sent to a responder.
type Check struct {
	ID          string
	EntityID    string
	ResponderID string
	Code        Code
	SentAt      time.Time
}

// CheckLog remembers outbound checks so SMS replies can be attributed.
type CheckLog interface {
	Record(ctx context.Context, check *Check) error
	// Latest returns the most recent check sent to responder, or ErrNoOpenCheck.
	Latest(ctx context.Context, responderID string) (*Check, error)
	DeleteSentBefore(ctx context.Context, cutoff time.Time) (int, error)
}
