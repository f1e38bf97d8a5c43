package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-service/internal/domain"
)

// TicketRecord is the persisted shape of a ticket. CustomerEmailEnc holds the
// encrypted envelope; translation to and from plaintext happens in the
// service layer.
type TicketRecord struct {
	Ticket           domain.Ticket
	CustomerEmailEnc *string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, record *TicketRecord) error
	Update(ctx context.Context, record *TicketRecord) error
	GetByID(ctx context.Context, id string) (*TicketRecord, error)
	List(ctx context.Context, limit, offset int) ([]TicketRecord, error)
	ListByAssignee(ctx context.Context, assigneeID string, limit, offset int) ([]TicketRecord, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, number, title, description, status, priority, customer_email_enc, created_by, assignee_id, created_at, updated_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, record *TicketRecord) error {
	const query = `
        INSERT INTO tickets (number, title, description, status, priority, customer_email_enc, created_by, assignee_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		record.Ticket.Number,
		record.Ticket.Title,
		record.Ticket.Description,
		record.Ticket.Status,
		record.Ticket.Priority,
		record.CustomerEmailEnc,
		record.Ticket.CreatedBy,
		record.Ticket.AssigneeID,
	).Scan(&record.Ticket.ID, &record.Ticket.CreatedAt, &record.Ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, record *TicketRecord) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, customer_email_enc=$5, assignee_id=$6, closed_at=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		record.Ticket.Title,
		record.Ticket.Description,
		record.Ticket.Status,
		record.Ticket.Priority,
		record.CustomerEmailEnc,
		record.Ticket.AssigneeID,
		record.Ticket.ClosedAt,
		record.Ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*TicketRecord, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) List(ctx context.Context, limit, offset int) ([]TicketRecord, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, normalizeLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

func (r *ticketRepository) ListByAssignee(ctx context.Context, assigneeID string, limit, offset int) ([]TicketRecord, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE assignee_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, assigneeID, normalizeLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

func scanTicket(row pgx.Row) (*TicketRecord, error) {
	var record TicketRecord
	if err := row.Scan(
		&record.Ticket.ID,
		&record.Ticket.Number,
		&record.Ticket.Title,
		&record.Ticket.Description,
		&record.Ticket.Status,
		&record.Ticket.Priority,
		&record.CustomerEmailEnc,
		&record.Ticket.CreatedBy,
		&record.Ticket.AssigneeID,
		&record.Ticket.CreatedAt,
		&record.Ticket.UpdatedAt,
		&record.Ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}

func collectTickets(rows pgx.Rows) ([]TicketRecord, error) {
	var records []TicketRecord
	for rows.Next() {
		record, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}
