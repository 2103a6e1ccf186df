package handlers_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // Twilio signs callbacks with HMAC-SHA1
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/greatwhitesecurity/opshub/internal/availability"
	"github.com/greatwhitesecurity/opshub/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postSMS(h *harness, params url.Values, signature string) int {
	resp := h.api.Post("/webhooks/sms",
		"Content-Type: application/x-www-form-urlencoded",
		"X-Twilio-Signature: "+signature,
		strings.NewReader(params.Encode()),
	)

	return resp.Code
}

// signed computes the X-Twilio-Signature a genuine callback would carry.
func signed(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	payload := testBaseURL + "/webhooks/sms"
	for _, k := range keys {
		payload += k + params.Get(k)
	}

	mac := hmac.New(sha1.New, []byte(testAuthToken))
	mac.Write([]byte(payload))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestSMSWebhook(t *testing.T) {
	t.Run("records a reply against the latest check", func(t *testing.T) {
		h := newHarness(t)
		h.records.PutEntity(records.Entity{ID: "eng_7", AvailableResponderIDs: []string{"tech_3"}})
		h.records.PutResponder(records.Responder{ID: "tech_3", Name: "Dana Ruiz", Phone: "(555) 123-0003"})

		require.NoError(t, h.checks.Record(context.Background(), &availability.Check{
			ID: "chk_1", EntityID: "eng_7", ResponderID: "tech_3", Code: "abc123",
		}))

		params := url.Values{"From": {"+15551230003"}, "Body": {" no "}}

		resp := h.api.Post("/webhooks/sms",
			"Content-Type: application/x-www-form-urlencoded",
			"X-Twilio-Signature: "+signed(params),
			strings.NewReader(params.Encode()),
		)

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Header().Get("Content-Type"), "text/xml")
		assert.Contains(t, resp.Body.String(), "<Response></Response>")

		entity, err := h.records.GetEntity(context.Background(), "eng_7")
		require.NoError(t, err)
		assert.Contains(t, entity.ResponseLog, "Dana Ruiz - NO")
		assert.Empty(t, entity.AvailableResponderIDs, "an SMS NO withdraws availability")
	})

	t.Run("rejects an invalid signature", func(t *testing.T) {
		h := newHarness(t)

		params := url.Values{"From": {"+15551230003"}, "Body": {"yes"}}

		assert.Equal(t, http.StatusForbidden, postSMS(h, params, "bogus"))
		assert.Zero(t, h.records.writes())
	})

	t.Run("ignores chatter and unknown senders", func(t *testing.T) {
		h := newHarness(t)
		seedJob(h)

		chatter := url.Values{"From": {"+15551230003"}, "Body": {"running late"}}
		stranger := url.Values{"From": {"+15559999999"}, "Body": {"yes"}}
		noCheck := url.Values{"From": {"+15551230003"}, "Body": {"yes"}}

		assert.Equal(t, http.StatusOK, postSMS(h, chatter, signed(chatter)))
		assert.Equal(t, http.StatusOK, postSMS(h, stranger, signed(stranger)))
		assert.Equal(t, http.StatusOK, postSMS(h, noCheck, signed(noCheck)))
		assert.Zero(t, h.records.writes())
	})
}
