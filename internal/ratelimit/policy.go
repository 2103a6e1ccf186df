package ratelimit

import "time"

// LimitConfig caps the number of requests a client may make within Window.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// Policy maps each scope to the limits enforced for it. A request must stay
// under every limit of every scope it resolves to.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// DefaultPolicy returns the limits used by the server.
//
// Technicians tap availability links from their phones, often more than once,
// so the public scope is generous. Admin calls trigger outbound SMS and
// third-party requests and are kept tight.
func DefaultPolicy() *Policy {
	return &Policy{
		Limits: map[Scope][]LimitConfig{
			ScopeGlobal: {
				{Window: time.Minute, Max: 300},
			},
			ScopeRead: {
				{Window: time.Minute, Max: 120},
			},
			ScopeWrite: {
				{Window: time.Minute, Max: 30},
				{Window: time.Hour, Max: 500},
			},
			ScopePublic: {
				{Window: time.Minute, Max: 60},
			},
			ScopeAdmin: {
				{Window: time.Minute, Max: 20},
				{Window: 24 * time.Hour, Max: 2000},
			},
			ScopeWebhook: {
				{Window: time.Minute, Max: 120},
			},
		},
	}
}
