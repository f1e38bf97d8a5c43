package dto

import (
	"time"

	"github.com/spec-kit/ticket-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Priority      domain.TicketPriority `json:"priority"`
	CustomerEmail *string               `json:"customer_email"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// TicketResponse is the external ticket shape.
type TicketResponse struct {
	ID            string                `json:"id"`
	Number        string                `json:"number"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	CustomerEmail *string               `json:"customer_email,omitempty"`
	CreatedBy     string                `json:"created_by"`
	AssigneeID    *string               `json:"assignee_id,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	ClosedAt      *time.Time            `json:"closed_at,omitempty"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:            ticket.ID,
		Number:        ticket.Number,
		Title:         ticket.Title,
		Description:   ticket.Description,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		CustomerEmail: ticket.CustomerEmail,
		CreatedBy:     ticket.CreatedBy,
		AssigneeID:    ticket.AssigneeID,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
		ClosedAt:      ticket.ClosedAt,
	}
}
