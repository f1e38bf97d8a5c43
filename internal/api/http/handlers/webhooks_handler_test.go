package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-service/internal/webhook"
)

const webhookTestSecret = "webhook-secret-000000000000000000"

func newWebhookTestApp(t *testing.T) (*fiber.App, *webhook.Verifier) {
	t.Helper()
	verifier := webhook.NewVerifier(webhookTestSecret, 300*time.Second)
	handler := NewWebhooksHandler(verifier, nil, nil, zap.NewNop())

	app := fiber.New()
	app.Post("/webhooks/chat", handler.Chat)
	app.Post("/webhooks/ticketing", handler.Ticketing)
	return app, verifier
}

func signedRequest(path string, body []byte, signature string, timestamp int64) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(webhook.HeaderSignature, signature)
	}
	if timestamp != 0 {
		req.Header.Set(webhook.HeaderTimestamp, fmt.Sprintf("%d", timestamp))
	}
	return req
}

func TestWebhooksHandler_Accepted(t *testing.T) {
	app, verifier := newWebhookTestApp(t)
	body := []byte(`{"event":"message.created","id":"42"}`)

	resp, err := app.Test(signedRequest("/webhooks/chat", body, verifier.Sign(body), time.Now().Unix()))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestWebhooksHandler_Rejections(t *testing.T) {
	app, verifier := newWebhookTestApp(t)
	body := []byte(`{"event":"message.created"}`)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{
			name: "missing_signature",
			req:  signedRequest("/webhooks/chat", body, "", time.Now().Unix()),
		},
		{
			name: "tampered_body",
			req:  signedRequest("/webhooks/chat", []byte(`{"event":"evil"}`), verifier.Sign(body), time.Now().Unix()),
		},
		{
			name: "stale_timestamp",
			req:  signedRequest("/webhooks/chat", body, verifier.Sign(body), time.Now().Add(-10*time.Minute).Unix()),
		},
		{
			name: "malformed_timestamp",
			req: func() *http.Request {
				r := signedRequest("/webhooks/chat", body, verifier.Sign(body), 0)
				r.Header.Set(webhook.HeaderTimestamp, "yesterday")
				return r
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(tt.req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestWebhooksHandler_UnconfiguredSource(t *testing.T) {
	app, verifier := newWebhookTestApp(t)
	body := []byte(`{"event":"ticket.updated"}`)

	// The ticketing verifier was never configured; the route does not exist as
	// far as callers can tell.
	resp, err := app.Test(signedRequest("/webhooks/ticketing", body, verifier.Sign(body), time.Now().Unix()))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
