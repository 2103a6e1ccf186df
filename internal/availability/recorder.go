package availability

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/greatwhitesecurity/opshub/internal/events"
	"github.com/greatwhitesecurity/opshub/internal/keylock"
	"github.com/greatwhitesecurity/opshub/internal/messaging"
	"github.com/greatwhitesecurity/opshub/internal/notify"
	"github.com/greatwhitesecurity/opshub/internal/records"
	"go.uber.org/zap"
)

// LogTimeLayout formats the timestamp of each response log line.
const LogTimeLayout = "1/2/2006, 3:04:05 PM"

// Outcome is the result of a recorded response.
type Outcome struct {
	Entity    *records.Entity
	Responder *records.Responder
	Answer    Answer
}

// Recorder applies technician answers to the system of record.
type Recorder struct {
	records    records.Store
	notifier   notify.Notifier
	adminPhone string
	locks      *keylock.Map
	publish    messaging.Publish[events.AvailabilityResponded]
	logger     *zap.Logger
	location   *time.Location
	now        func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderClock overrides the time source.
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// WithLocation sets the zone used for log line timestamps.
func WithLocation(loc *time.Location) RecorderOption {
	return func(r *Recorder) { r.location = loc }
}

// NewRecorder creates a response recorder. Operator summaries go to adminPhone.
func NewRecorder(
	store records.Store,
	notifier notify.Notifier,
	adminPhone string,
	publish messaging.Publish[events.AvailabilityResponded],
	logger *zap.Logger,
	opts ...RecorderOption,
) *Recorder {
	r := &Recorder{
		records:    store,
		notifier:   notifier,
		adminPhone: adminPhone,
		locks:      keylock.New(),
		publish:    publish,
		logger:     logger,
		location:   time.UTC,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Record appends the answer to the entity's response log and updates its
// available responder list. Updates to one entity are serialized within the
// process. The operator notification is best effort.
func (r *Recorder) Record(
	ctx context.Context,
	entityID, responderID string,
	answer Answer,
	source Source,
) (*Outcome, error) {
	unlock := r.locks.Lock(entityID)
	defer unlock()

	entity, err := r.records.GetEntity(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("loading entity %s: %w", entityID, err)
	}

	responder, err := r.records.GetResponder(ctx, responderID)
	if err != nil {
		return nil, fmt.Errorf("loading responder %s: %w", responderID, err)
	}

	respondedAt := r.now()
	line := fmt.Sprintf("%s - %s (%s)", responder.Name, answer, respondedAt.In(r.location).Format(LogTimeLayout))

	responseLog := line
	if entity.ResponseLog != "" {
		responseLog = entity.ResponseLog + "\n" + line
	}

	available := slices.Clone(entity.AvailableResponderIDs)
	if available == nil {
		available = []string{}
	}

	switch {
	case answer == Yes:
		if !slices.Contains(available, responder.ID) {
			available = append(available, responder.ID)
		}
	case answer == No && source == SourceSMSReply:
		// NOTE: only the SMS reply path withdraws a previous YES. A NO clicked
		// through /tn/ leaves the list alone. Both behaviors are intentional
		// until the product owner decides whether to unify them.
		available = slices.DeleteFunc(available, func(id string) bool { return id == responder.ID })
	}

	status := records.StatusAvailabilityCheck

	updated, err := r.records.UpdateEntity(ctx, entity.ID, records.EntityUpdate{
		Status:                &status,
		ResponseLog:           &responseLog,
		AvailableResponderIDs: available,
	})
	if err != nil {
		return nil, fmt.Errorf("updating entity %s: %w", entity.ID, err)
	}

	r.notifyOperator(ctx, updated, responder, answer)

	event := &events.AvailabilityResponded{
		EntityID:    entity.ID,
		ResponderID: responder.ID,
		Answer:      string(answer),
		Source:      string(source),
		RespondedAt: respondedAt,
	}
	if err := r.publish(ctx, event); err != nil {
		r.logger.Error("failed to publish availability event",
			zap.String("entity_id", entity.ID),
			zap.Error(err),
		)
	}

	return &Outcome{Entity: updated, Responder: responder, Answer: answer}, nil
}

func (r *Recorder) notifyOperator(ctx context.Context, entity *records.Entity, responder *records.Responder, answer Answer) {
	if r.adminPhone == "" {
		r.logger.Warn("no operator phone configured, skipping availability notification",
			zap.String("entity_id", entity.ID))

		return
	}

	body := fmt.Sprintf("%s answered %s for %s.", responder.Name, answer, entityLabel(entity))

	if _, err := r.notifier.Send(ctx, r.adminPhone, body); err != nil {
		r.logger.Error("failed to notify operator of availability response",
			zap.String("entity_id", entity.ID),
			zap.String("responder_id", responder.ID),
			zap.Error(err),
		)
	}
}

func entityLabel(e *records.Entity) string {
	if e.Name != "" {
		return e.Name
	}

	return e.ID
}
