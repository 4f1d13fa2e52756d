package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/ticket"
	"github.com/google/uuid"
)

type ticketRepo struct{ s *Store }

func copyTicket(t ticket.Ticket) ticket.Ticket {
	t.LocationHistory = append([]ticket.LocationSnapshot{}, t.LocationHistory...)
	return t
}

func (r ticketRepo) Create(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	defer r.s.lock(ctx)()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	r.s.data.tickets[t.ID] = copyTicket(t)
	return copyTicket(t), nil
}

func (r ticketRepo) GetByID(ctx context.Context, id string) (ticket.Ticket, error) {
	defer r.s.rlock(ctx)()

	t, ok := r.s.data.tickets[id]
	if !ok {
		return ticket.Ticket{}, ticket.ErrTicketNotFound
	}
	return copyTicket(t), nil
}

// GetByIDForUpdate relies on transactions being serialized.
func (r ticketRepo) GetByIDForUpdate(ctx context.Context, id string) (ticket.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r ticketRepo) Update(ctx context.Context, t ticket.Ticket) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.data.tickets[t.ID]; !ok {
		return ticket.ErrTicketNotFound
	}
	r.s.data.tickets[t.ID] = copyTicket(t)
	return nil
}

func (r ticketRepo) List(ctx context.Context, filter ticket.ListFilter) ([]ticket.Ticket, int64, error) {
	defer r.s.rlock(ctx)()

	matched := []ticket.Ticket{}
	for _, t := range r.s.data.tickets {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.ZoneID != nil && t.ZoneID != *filter.ZoneID {
			continue
		}
		if filter.ParticipantID != nil && !t.IsParticipant(*filter.ParticipantID) {
			continue
		}
		matched = append(matched, copyTicket(t))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].LastStatusChange.Equal(matched[j].LastStatusChange) {
			return matched[i].LastStatusChange.After(matched[j].LastStatusChange)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	return paginate(matched, filter.Page, filter.Limit), total, nil
}

type historyRepo struct{ s *Store }

func (r historyRepo) Append(ctx context.Context, entry ticket.StatusHistoryEntry) (ticket.StatusHistoryEntry, error) {
	defer r.s.lock(ctx)()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Photos == nil {
		entry.Photos = []ticket.PhotoRef{}
	}
	r.s.data.history = append(r.s.data.history, entry)
	return entry, nil
}

func (r historyRepo) ListByTicket(ctx context.Context, ticketID string) ([]ticket.StatusHistoryEntry, error) {
	defer r.s.rlock(ctx)()

	entries := []ticket.StatusHistoryEntry{}
	for _, e := range r.s.data.history {
		if e.TicketID == ticketID {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ChangedAt.Before(entries[j].ChangedAt)
	})
	return entries, nil
}

type auditRepo struct{ s *Store }

func (r auditRepo) Append(ctx context.Context, entry audit.Entry) error {
	defer r.s.lock(ctx)()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	r.s.data.audit = append(r.s.data.audit, entry)
	return nil
}

// paginate slices a sorted result. page is 1-based; a zero limit returns
// everything.
func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
