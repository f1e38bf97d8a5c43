package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-service/internal/events"
)

// NotificationService reacts to security and ticket events. Actual channel
// delivery (email, chat) lives outside this core; handlers here produce the
// structured audit trail those collaborators consume.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAccountRegistered, n.handleAuditEvent)
	n.dispatcher.Subscribe(events.EventLoginSucceeded, n.handleAuditEvent)
	n.dispatcher.Subscribe(events.EventLoginFailed, n.handleAuditEvent)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handleAuditEvent)
	n.dispatcher.Subscribe(events.EventRoleChanged, n.handleAuditEvent)
	n.dispatcher.Subscribe(events.EventAccountDeactivated, n.handleAuditEvent)
	n.dispatcher.Subscribe(events.EventTokensRevoked, n.handleAuditEvent)
	n.dispatcher.Subscribe(events.EventWebhookRejected, n.handleAuditEvent)
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketEvent)
}

func (n *NotificationService) handleAuditEvent(_ context.Context, event events.Event) error {
	n.logger.Info("security event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("account_id", event.AccountID),
		zap.Any("payload", event.Payload),
	)
	return nil
}

func (n *NotificationService) handleTicketEvent(_ context.Context, event events.Event) error {
	n.logger.Info("ticket event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Any("payload", event.Payload),
	)
	return nil
}
