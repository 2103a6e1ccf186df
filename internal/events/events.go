// Package events defines the domain events published on the message bus.
package events

import "time"

const (
	TopicLinkCreated           = "link.created"
	TopicLinkResolved          = "link.resolved"
	TopicAvailabilityResponded = "availability.responded"
)

// LinkCreated is emitted when a short link is created.
type LinkCreated struct {
	Code      string    `json:"code"`
	Target    string    `json:"target"`
	EntityID  string    `json:"entityId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ClientIP  string    `json:"clientIp,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// LinkResolved is emitted when a short link redirect is served.
type LinkResolved struct {
	Code       string    `json:"code"`
	ResolvedAt time.Time `json:"resolvedAt"`
	ClientIP   string    `json:"clientIp,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	Referrer   string    `json:"referrer,omitempty"`
}

// AvailabilityResponded is emitted after a technician's answer is recorded.
type AvailabilityResponded struct {
	EntityID    string    `json:"entityId"`
	ResponderID string    `json:"responderId"`
	Answer      string    `json:"answer"`
	Source      string    `json:"source"`
	RespondedAt time.Time `json:"respondedAt"`
}
