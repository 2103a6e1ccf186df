package availability

import (
	"context"
	"fmt"

	"github.com/greatwhitesecurity/opshub/internal/phone"
	"github.com/greatwhitesecurity/opshub/internal/records"
)

// Replies attributes inbound yes/no text messages to availability checks.
type Replies struct {
	records  records.Store
	checks   CheckLog
	recorder *Recorder
}

// NewReplies creates the SMS reply handler.
func NewReplies(store records.Store, checks CheckLog, recorder *Recorder) *Replies {
	return &Replies{records: store, checks: checks, recorder: recorder}
}

// Handle records a yes/no reply from the given sender.
//
// The reply is attributed to the most recent check sent to the technician, so
// a technician with two open checks answers the newer one. That is a known
// limitation; codes in the /ty/ and /tn/ links are unambiguous.
func (r *Replies) Handle(ctx context.Context, from, body string) (*Outcome, error) {
	answer, err := ParseAnswer(body)
	if err != nil {
		return nil, err
	}

	sender, err := phone.Normalize(from)
	if err != nil {
		return nil, fmt.Errorf("sender %q: %w", from, err)
	}

	responder, err := r.records.FindResponderByPhone(ctx, sender)
	if err != nil {
		return nil, err
	}

	check, err := r.checks.Latest(ctx, responder.ID)
	if err != nil {
		return nil, err
	}

	return r.recorder.Record(ctx, check.EntityID, responder.ID, answer, SourceSMSReply)
}
