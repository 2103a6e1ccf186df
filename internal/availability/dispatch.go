package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/greatwhitesecurity/opshub/internal/notify"
	"github.com/greatwhitesecurity/opshub/internal/phone"
	"github.com/greatwhitesecurity/opshub/internal/records"
	"go.uber.org/zap"
)

// DispatchResult reports the outcome for one responder.
type DispatchResult struct {
	ResponderID string
	Code        Code
	Err         error
}

// Dispatcher sends availability checks to technicians.
type Dispatcher struct {
	codes    *Codes
	checks   CheckLog
	records  records.Store
	notifier notify.Notifier
	baseURL  string
	logger   *zap.Logger
	now      func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherClock overrides the time stamped on outbound checks.
func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher. Links in messages are built from baseURL.
func NewDispatcher(
	codes *Codes,
	checks CheckLog,
	store records.Store,
	notifier notify.Notifier,
	baseURL string,
	logger *zap.Logger,
	opts ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		codes:    codes,
		checks:   checks,
		records:  store,
		notifier: notifier,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch asks each responder whether they can take the entity. A failure for
// one responder is reported in its result and does not stop the others.
func (d *Dispatcher) Dispatch(ctx context.Context, entityID string, responderIDs []string) ([]DispatchResult, error) {
	entity, err := d.records.GetEntity(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("loading entity %s: %w", entityID, err)
	}

	results := make([]DispatchResult, 0, len(responderIDs))

	for _, responderID := range responderIDs {
		code, err := d.dispatchOne(ctx, entity, responderID)
		if err != nil {
			d.logger.Error("availability check not sent",
				zap.String("entity_id", entity.ID),
				zap.String("responder_id", responderID),
				zap.Error(err),
			)
		}

		results = append(results, DispatchResult{ResponderID: responderID, Code: code, Err: err})
	}

	return results, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, entity *records.Entity, responderID string) (Code, error) {
	responder, err := d.records.GetResponder(ctx, responderID)
	if err != nil {
		return "", err
	}

	to, err := phone.Normalize(responder.Phone)
	if err != nil {
		return "", fmt.Errorf("responder %s phone %q: %w", responder.ID, responder.Phone, err)
	}

	pairing, err := d.codes.Issue(ctx, entity.ID, responder.ID)
	if err != nil {
		return "", err
	}

	if _, err := d.notifier.Send(ctx, to, d.message(entity, responder, pairing.Code)); err != nil {
		return pairing.Code, fmt.Errorf("sending availability check: %w", err)
	}

	check := &Check{
		ID:          uuid.NewString(),
		EntityID:    entity.ID,
		ResponderID: responder.ID,
		Code:        pairing.Code,
		SentAt:      d.now(),
	}
	if err := d.checks.Record(ctx, check); err != nil {
		return pairing.Code, fmt.Errorf("recording availability check: %w", err)
	}

	return pairing.Code, nil
}

func (d *Dispatcher) message(entity *records.Entity, responder *records.Responder, code Code) string {
	return fmt.Sprintf(
		"Hi %s, Great White Security has a job: %s. Are you available?\nYES: %s/ty/%s\nNO: %s/tn/%s\nOr reply YES or NO.",
		responder.Name, entityLabel(entity), d.baseURL, code, d.baseURL, code,
	)
}
