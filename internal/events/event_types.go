package events

import (
	"time"

	"github.com/spec-kit/ticket-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered  EventType = "account_registered"
	EventLoginSucceeded     EventType = "login_succeeded"
	EventLoginFailed        EventType = "login_failed"
	EventPasswordChanged    EventType = "password_changed"
	EventRoleChanged        EventType = "role_changed"
	EventAccountDeactivated EventType = "account_deactivated"
	EventTokensRevoked      EventType = "tokens_revoked"
	EventWebhookRejected    EventType = "webhook_rejected"
	EventTicketCreated      EventType = "ticket_created"
	EventTicketAssigned     EventType = "ticket_assigned"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	AccountID string      `json:"account_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// LoginPayload payload. Failed logins never carry the attempted password.
type LoginPayload struct {
	Email      string `json:"email"`
	RemoteAddr string `json:"remote_addr,omitempty"`
}

// RoleChangedPayload payload.
type RoleChangedPayload struct {
	OldRole domain.Role `json:"old_role"`
	NewRole domain.Role `json:"new_role"`
	ActorID string      `json:"actor_id"`
}

// TokensRevokedPayload payload.
type TokensRevokedPayload struct {
	Reason string `json:"reason"`
}

// WebhookRejectedPayload payload. The signature itself is never included.
type WebhookRejectedPayload struct {
	Source     string `json:"source"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	Reason     string `json:"reason"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketID string                `json:"ticket_id"`
	Priority domain.TicketPriority `json:"priority"`
	Title    string                `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	TicketID   string  `json:"ticket_id"`
	AssigneeID *string `json:"assignee_id,omitempty"`
}
