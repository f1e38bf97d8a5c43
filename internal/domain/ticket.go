package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the aggregate for support requests. CustomerEmail is persisted
// encrypted; the domain struct always carries the plaintext side.
type Ticket struct {
	ID            string
	Number        string
	Title         string
	Description   string
	Status        TicketStatus
	Priority      TicketPriority
	CustomerEmail *string
	CreatedBy     string
	AssigneeID    *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ClosedAt      *time.Time
}
