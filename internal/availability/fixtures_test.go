package availability_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/greatwhitesecurity/opshub/internal/availability"
	"github.com/greatwhitesecurity/opshub/internal/events"
	"github.com/greatwhitesecurity/opshub/internal/notify"
	"github.com/greatwhitesecurity/opshub/internal/records"
	"github.com/greatwhitesecurity/opshub/internal/shortlink"
	"github.com/greatwhitesecurity/opshub/internal/store"
	"go.uber.org/zap"
)

const (
	adminPhone = "+15550000000"
	baseURL    = "https://gws.example"
	retention  = 30 * 24 * time.Hour
)

type sentMessage struct {
	To   string
	Body string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[string]error
}

func (n *recordingNotifier) Send(_ context.Context, to, body string) (*notify.Delivery, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.fail[to]; err != nil {
		return nil, err
	}

	n.sent = append(n.sent, sentMessage{To: to, Body: body})

	return &notify.Delivery{ID: "SM123", Status: "queued"}, nil
}

func (n *recordingNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]sentMessage(nil), n.sent...)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type fixture struct {
	records    *store.RecordsMemoryStore
	pairings   *store.AvailabilityMemoryStore
	checks     *store.CheckMemoryLog
	notifier   *recordingNotifier
	clock      *clock
	published  []events.AvailabilityResponded
	codes      *availability.Codes
	recorder   *availability.Recorder
	dispatcher *availability.Dispatcher
	replies    *availability.Replies
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		records:  store.NewRecordsMemoryStore(),
		pairings: store.NewAvailabilityMemoryStore(),
		checks:   store.NewCheckMemoryLog(),
		notifier: &recordingNotifier{},
		clock:    &clock{now: time.Date(2026, 3, 1, 17, 5, 9, 0, time.UTC)},
	}

	f.records.PutEntity(records.Entity{ID: "recJob", Name: "Harbor Warehouse"})
	f.records.PutResponder(records.Responder{ID: "recAlice", Name: "Alice", Phone: "(555) 010-0001"})
	f.records.PutResponder(records.Responder{ID: "recBob", Name: "Bob", Phone: "+1 555 010 0002"})

	var mu sync.Mutex

	publish := func(_ context.Context, e *events.AvailabilityResponded) error {
		mu.Lock()
		defer mu.Unlock()

		f.published = append(f.published, *e)

		return nil
	}

	f.codes = availability.NewCodes(f.pairings, f.checks, shortlink.MustGenerator(shortlink.LowerAlphabet),
		retention, availability.WithClock(f.clock.Now))
	f.recorder = availability.NewRecorder(f.records, f.notifier, adminPhone, publish, zap.NewNop(),
		availability.WithRecorderClock(f.clock.Now))
	f.dispatcher = availability.NewDispatcher(f.codes, f.checks, f.records, f.notifier, baseURL, zap.NewNop(),
		availability.WithDispatcherClock(f.clock.Now))
	f.replies = availability.NewReplies(f.records, f.checks, f.recorder)

	return f
}

func (f *fixture) entity(t *testing.T) *records.Entity {
	t.Helper()

	e, err := f.records.GetEntity(context.Background(), "recJob")
	if err != nil {
		t.Fatalf("loading entity: %v", err)
	}

	return e
}

var errSMSDown = errors.New("sms provider down")

func discard(context.Context, *events.AvailabilityResponded) error { return nil }

func splitLines(s string) []string {
	if s == "" {
		return nil
	}

	return strings.Split(s, "\n")
}
