package ticket

import "context"

// ListFilter scopes a ticket listing. ParticipantID matches owner, assignee
// or sub-owner.
type ListFilter struct {
	Status        *Status
	ZoneID        *string
	ParticipantID *string
	Page          int
	Limit         int
}

type TicketRepository interface {
	Create(ctx context.Context, t Ticket) (Ticket, error)
	GetByID(ctx context.Context, id string) (Ticket, error)

	// GetByIDForUpdate locks the row for the rest of the transaction in ctx.
	GetByIDForUpdate(ctx context.Context, id string) (Ticket, error)

	Update(ctx context.Context, t Ticket) error
	List(ctx context.Context, filter ListFilter) ([]Ticket, int64, error)
}

type HistoryRepository interface {
	Append(ctx context.Context, entry StatusHistoryEntry) (StatusHistoryEntry, error)
	ListByTicket(ctx context.Context, ticketID string) ([]StatusHistoryEntry, error)
}
