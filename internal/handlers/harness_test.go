package handlers_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/go-chi/chi/v5"
	"github.com/greatwhitesecurity/opshub/internal/assets"
	"github.com/greatwhitesecurity/opshub/internal/auth"
	"github.com/greatwhitesecurity/opshub/internal/availability"
	"github.com/greatwhitesecurity/opshub/internal/events"
	"github.com/greatwhitesecurity/opshub/internal/handlers"
	"github.com/greatwhitesecurity/opshub/internal/messaging"
	"github.com/greatwhitesecurity/opshub/internal/middleware"
	"github.com/greatwhitesecurity/opshub/internal/notify"
	"github.com/greatwhitesecurity/opshub/internal/payments"
	"github.com/greatwhitesecurity/opshub/internal/records"
	"github.com/greatwhitesecurity/opshub/internal/shortlink"
	"github.com/greatwhitesecurity/opshub/internal/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testBaseURL    = "http://localhost:8888"
	testAdminPhone = "+15550000000"
	testAuthToken  = "twilio-token"
)

var errMock = errors.New("mock error")

type sentMessage struct {
	To   string
	Body string
}

// recordingNotifier captures outbound messages.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, to, body string) (*notify.Delivery, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.err != nil {
		return nil, n.err
	}

	n.sent = append(n.sent, sentMessage{To: to, Body: body})

	return &notify.Delivery{ID: "SM1", Status: "queued"}, nil
}

func (n *recordingNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]sentMessage(nil), n.sent...)
}

// countingRecords counts entity writes on top of the memory store.
type countingRecords struct {
	*store.RecordsMemoryStore
	mu      sync.Mutex
	updates int
}

func (c *countingRecords) UpdateEntity(ctx context.Context, id string, update records.EntityUpdate) (*records.Entity, error) {
	c.mu.Lock()
	c.updates++
	c.mu.Unlock()

	return c.RecordsMemoryStore.UpdateEntity(ctx, id, update)
}

func (c *countingRecords) writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.updates
}

type fakeGateway struct {
	session *payments.Session
	err     error
	got     payments.CheckoutParams
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, params payments.CheckoutParams) (*payments.Session, error) {
	g.got = params
	if g.err != nil {
		return nil, g.err
	}

	return g.session, nil
}

type uploadedAsset struct {
	Filename string
	Folder   string
	Size     int
}

type fakeAssets struct {
	uploads []uploadedAsset
	err     error
}

func (a *fakeAssets) Upload(_ context.Context, filename string, content io.Reader, folder string) (*assets.Asset, error) {
	if a.err != nil {
		return nil, a.err
	}

	data, _ := io.ReadAll(content)
	a.uploads = append(a.uploads, uploadedAsset{Filename: filename, Folder: folder, Size: len(data)})

	return &assets.Asset{PublicID: folder + "/" + filename, SecureURL: "https://res.example/" + filename}, nil
}

type harness struct {
	api      humatest.TestAPI
	links    *shortlink.Service
	codes    *availability.Codes
	checks   *store.CheckMemoryLog
	records  *countingRecords
	notifier *recordingNotifier
	gateway  *fakeGateway
	assets   *fakeAssets
	sessions *auth.Sessions
	created  []*events.LinkCreated
	resolved []*events.LinkResolved
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	return newHarnessWithPassword(t, "")
}

func newHarnessWithPassword(t *testing.T, passwordHash string) *harness {
	t.Helper()

	logger := zap.NewNop()

	h := &harness{
		records:  &countingRecords{RecordsMemoryStore: store.NewRecordsMemoryStore()},
		notifier: &recordingNotifier{},
		gateway: &fakeGateway{session: &payments.Session{
			ID:  "cs_test_1",
			URL: "https://checkout.stripe.test/c/pay/cs_test_1",
		}},
		assets: &fakeAssets{},
	}

	h.checks = store.NewCheckMemoryLog()
	h.links = shortlink.NewService(store.NewMemoryStore(),
		shortlink.MustGenerator(shortlink.UnambiguousAlphabet), 7*24*time.Hour)
	h.codes = availability.NewCodes(store.NewAvailabilityMemoryStore(), h.checks,
		shortlink.MustGenerator(shortlink.LowerAlphabet), 30*24*time.Hour)

	recorder := availability.NewRecorder(h.records, h.notifier, testAdminPhone,
		messaging.Discard[events.AvailabilityResponded](), logger)
	dispatcher := availability.NewDispatcher(h.codes, h.checks, h.records, h.notifier, testBaseURL, logger)

	sessions, err := auth.NewSessions("test-secret", passwordHash, time.Hour)
	require.NoError(t, err)

	h.sessions = sessions

	publishCreated := func(_ context.Context, e *events.LinkCreated) error {
		h.created = append(h.created, e)

		return nil
	}
	publishResolved := func(_ context.Context, e *events.LinkResolved) error {
		h.resolved = append(h.resolved, e)

		return nil
	}

	linkHandler := handlers.NewLinkHandler(h.links, testBaseURL, publishCreated, publishResolved, logger)

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(middleware.RequestMeta(api), middleware.RequireSession(api, sessions))

	handlers.RegisterRoutes(api, handlers.Handlers{
		Links:        linkHandler,
		Availability: handlers.NewAvailabilityHandler(h.codes, recorder, dispatcher, logger),
		Payments:     handlers.NewPaymentHandler(h.gateway, linkHandler, logger),
		Assets:       handlers.NewAssetHandler(h.assets, logger),
		Sessions:     handlers.NewSessionHandler(sessions, logger),
		SMSWebhook: handlers.NewSMSWebhookHandler(
			availability.NewReplies(h.records, h.checks, recorder),
			testAuthToken, testBaseURL+"/webhooks/sms", logger),
	})

	h.api = humatest.Wrap(t, api)

	return h
}

func (h *harness) bearer(t *testing.T) string {
	t.Helper()

	session, err := h.sessions.Issue("operator")
	require.NoError(t, err)

	return "Authorization: Bearer " + session.Token
}
