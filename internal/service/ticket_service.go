package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-service/internal/auth"
	"github.com/spec-kit/ticket-service/internal/crypto"
	"github.com/spec-kit/ticket-service/internal/domain"
	"github.com/spec-kit/ticket-service/internal/events"
	"github.com/spec-kit/ticket-service/internal/repository"
	apperrors "github.com/spec-kit/ticket-service/pkg/util"
)

// TicketService is the protected business surface behind the trust layer.
// Every operation is gated through the permission model, and the customer
// email travels encrypted at rest.
type TicketService struct {
	tickets    repository.TicketRepository
	cipher     *crypto.Cipher
	authorizer *auth.Authorizer
	dispatcher events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title         string
	Description   string
	Priority      domain.TicketPriority
	CustomerEmail *string
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketRepository, cipher *crypto.Cipher, authorizer *auth.Authorizer, dispatcher events.Dispatcher) *TicketService {
	return &TicketService{tickets: tickets, cipher: cipher, authorizer: authorizer, dispatcher: dispatcher}
}

// CreateTicket creates a ticket on behalf of the actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if err := s.require(actor.Role, domain.ResourceTicket, domain.ActionCreate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}

	emailEnc, err := s.cipher.EncryptField(input.CustomerEmail)
	if err != nil {
		return nil, err
	}

	record := &repository.TicketRecord{
		Ticket: domain.Ticket{
			Number:      ticketNumber(),
			Title:       input.Title,
			Description: input.Description,
			Status:      domain.TicketStatusOpen,
			Priority:    priority,
			CreatedBy:   actor.ID,
		},
		CustomerEmailEnc: emailEnc,
	}
	if err := s.tickets.Create(ctx, record); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventTicketCreated, actor.ID, events.TicketCreatedPayload{
		TicketID: record.Ticket.ID,
		Priority: record.Ticket.Priority,
		Title:    record.Ticket.Title,
	}))
	return s.toDomain(record), nil
}

// GetTicket loads one ticket, decrypting the customer email. A corrupt
// envelope surfaces as a missing email, not a failed read.
func (s *TicketService) GetTicket(ctx context.Context, actor Actor, id string) (*domain.Ticket, error) {
	if err := s.require(actor.Role, domain.ResourceTicket, domain.ActionRead); err != nil {
		return nil, err
	}
	record, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	return s.toDomain(record), nil
}

// ListTickets returns a page of tickets.
func (s *TicketService) ListTickets(ctx context.Context, actor Actor, limit, offset int) ([]domain.Ticket, error) {
	if err := s.require(actor.Role, domain.ResourceTicket, domain.ActionRead); err != nil {
		return nil, err
	}
	records, err := s.tickets.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, 0, len(records))
	for i := range records {
		tickets = append(tickets, *s.toDomain(&records[i]))
	}
	return tickets, nil
}

// ListAssignedTickets returns a page of the tickets assigned to the actor.
func (s *TicketService) ListAssignedTickets(ctx context.Context, actor Actor, limit, offset int) ([]domain.Ticket, error) {
	if err := s.require(actor.Role, domain.ResourceTicket, domain.ActionRead); err != nil {
		return nil, err
	}
	records, err := s.tickets.ListByAssignee(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, 0, len(records))
	for i := range records {
		tickets = append(tickets, *s.toDomain(&records[i]))
	}
	return tickets, nil
}

// AssignTicket sets or clears the assignee.
func (s *TicketService) AssignTicket(ctx context.Context, actor Actor, ticketID string, assigneeID *string) (*domain.Ticket, error) {
	if err := s.require(actor.Role, domain.ResourceTicket, domain.ActionAssign); err != nil {
		return nil, err
	}
	record, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}

	record.Ticket.AssigneeID = assigneeID
	if record.Ticket.Status == domain.TicketStatusOpen && assigneeID != nil {
		record.Ticket.Status = domain.TicketStatusInProgress
	}
	if err := s.tickets.Update(ctx, record); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventTicketAssigned, actor.ID, events.TicketAssignedPayload{
		TicketID:   record.Ticket.ID,
		AssigneeID: assigneeID,
	}))
	return s.toDomain(record), nil
}

// CloseTicket resolves and closes a ticket.
func (s *TicketService) CloseTicket(ctx context.Context, actor Actor, ticketID string) (*domain.Ticket, error) {
	if err := s.require(actor.Role, domain.ResourceTicket, domain.ActionUpdate); err != nil {
		return nil, err
	}
	record, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}

	now := time.Now()
	record.Ticket.Status = domain.TicketStatusClosed
	record.Ticket.ClosedAt = &now
	if err := s.tickets.Update(ctx, record); err != nil {
		return nil, err
	}
	return s.toDomain(record), nil
}

func (s *TicketService) require(role domain.Role, resource domain.Resource, action domain.Action) error {
	if s.authorizer.HasPermission(role, resource, action) {
		return nil
	}
	return apperrors.NewDomainError("FORBIDDEN", "role lacks permission", 403, map[string]any{
		"resource":        string(resource),
		"action":          string(action),
		"allowed_actions": s.authorizer.ActionsFor(role, resource),
	})
}

func (s *TicketService) toDomain(record *repository.TicketRecord) *domain.Ticket {
	ticket := record.Ticket
	ticket.CustomerEmail = s.cipher.DecryptField(record.CustomerEmailEnc)
	return &ticket
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func ticketNumber() string {
	return fmt.Sprintf("TCK-%s", strings.ToUpper(uuid.NewString()[:8]))
}
