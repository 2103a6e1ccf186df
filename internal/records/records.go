// Package records defines the system-of-record contract for engagements and
// technicians.
package records

import (
	"context"
	"errors"
)

var (
	ErrEntityNotFound    = errors.New("entity not found")
	ErrResponderNotFound = errors.New("responder not found")
)

// StatusAvailabilityCheck is stamped on an entity whenever a responder answers.
const StatusAvailabilityCheck = "Availability Check In Progress"

// Entity is the engagement being staffed.
type Entity struct {
	ID                    string
	Name                  string
	Status                string
	ResponseLog           string
	AvailableResponderIDs []string
}

// Responder is a technician that can be asked for availability.
type Responder struct {
	ID    string
	Name  string
	Phone string
}

// EntityUpdate carries the fields the availability flow writes. Nil fields are left untouched.
type EntityUpdate struct {
	Status                *string
	ResponseLog           *string
	AvailableResponderIDs []string // nil leaves the list untouched; empty clears it
}

// Store is the system of record.
type Store interface {
	GetEntity(ctx context.Context, id string) (*Entity, error)
	UpdateEntity(ctx context.Context, id string, update EntityUpdate) (*Entity, error)
	GetResponder(ctx context.Context, id string) (*Responder, error)
	// FindResponderByPhone matches an E.164 phone number.
	FindResponderByPhone(ctx context.Context, phone string) (*Responder, error)
}
