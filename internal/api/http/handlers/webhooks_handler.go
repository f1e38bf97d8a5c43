package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-service/internal/events"
	"github.com/spec-kit/ticket-service/internal/webhook"
)

// WebhooksHandler receives inbound webhooks from the chat platform and the
// external ticketing system. Every payload passes through the authenticity
// verifier before anything downstream may read it; a failed verification
// discards the body unread.
type WebhooksHandler struct {
	chatVerifier      *webhook.Verifier
	ticketingVerifier *webhook.Verifier
	dispatcher        events.Dispatcher
	logger            *zap.Logger
}

// NewWebhooksHandler constructs handler; a nil verifier disables its source.
func NewWebhooksHandler(chat, ticketing *webhook.Verifier, dispatcher events.Dispatcher, logger *zap.Logger) *WebhooksHandler {
	return &WebhooksHandler{
		chatVerifier:      chat,
		ticketingVerifier: ticketing,
		dispatcher:        dispatcher,
		logger:            logger,
	}
}

// Chat handles POST /webhooks/chat.
func (h *WebhooksHandler) Chat(c *fiber.Ctx) error {
	return h.handle(c, "chat", h.chatVerifier)
}

// Ticketing handles POST /webhooks/ticketing.
func (h *WebhooksHandler) Ticketing(c *fiber.Ctx) error {
	return h.handle(c, "ticketing", h.ticketingVerifier)
}

func (h *WebhooksHandler) handle(c *fiber.Ctx, source string, verifier *webhook.Verifier) error {
	if verifier == nil {
		return fiber.NewError(http.StatusNotFound, "webhook source not configured")
	}

	timestamp, err := webhook.ParseTimestamp(c.Get(webhook.HeaderTimestamp))
	if err != nil {
		return h.reject(c, source, "malformed timestamp")
	}

	// Body() is the exact raw bytes; the payload is never parsed before the
	// signature verifies.
	if err := verifier.Verify(c.Body(), c.Get(webhook.HeaderSignature), timestamp); err != nil {
		return h.reject(c, source, err.Error())
	}

	// Verified. Payload processing belongs to the integration services; this
	// core only acknowledges authenticity.
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{"source": source, "status": "accepted"},
	})
}

// reject logs source metadata but never the secret or the raw signature.
func (h *WebhooksHandler) reject(c *fiber.Ctx, source, reason string) error {
	h.logger.Warn("webhook rejected",
		zap.String("source", source),
		zap.String("remote_addr", c.IP()),
		zap.String("reason", reason),
	)
	if h.dispatcher != nil {
		_ = h.dispatcher.Publish(c.Context(), events.NewEvent(events.EventWebhookRejected, "",
			events.WebhookRejectedPayload{Source: source, RemoteAddr: c.IP(), Reason: reason}))
	}
	return fiber.NewError(http.StatusUnauthorized, "webhook signature verification failed")
}
