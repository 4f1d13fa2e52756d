package ticket

import "context"

// TicketService applies lifecycle changes to tickets.
type TicketService interface {
	// CreateTicket opens a ticket in status OPEN and records its first history entry
	CreateTicket(ctx context.Context, req CreateTicketRequest) (TicketResponse, error)

	GetTicket(ctx context.Context, id string) (TicketResponse, error)
	ListTickets(ctx context.Context, filter ListTicketsFilter) (ListTicketsResponse, error)
	GetHistory(ctx context.Context, id string) ([]HistoryResponse, error)

	// AllowedTransitions lists the statuses the caller may move the ticket into
	AllowedTransitions(ctx context.Context, id string) (AllowedTransitionsResponse, error)

	// UpdateStatus validates and applies a status change atomically
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (TicketResponse, error)
}
