package ticket

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/activity"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/ticket"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/sideeffect"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/service/file"
	"github.com/google/uuid"
)

type TicketServiceImpl struct {
	tx database.Transactor
	ticket.TicketRepository
	ticket.HistoryRepository
	audit.Writer

	fileService     file.FileService
	activityService activity.ActivityService
	notifier        notification.Service
	runner          *sideeffect.Runner
	clock           clock.Clock
}

func NewTicketService(
	tx database.Transactor,
	ticketRepo ticket.TicketRepository,
	historyRepo ticket.HistoryRepository,
	auditWriter audit.Writer,
	fileService file.FileService,
	activityService activity.ActivityService,
	notifier notification.Service,
	runner *sideeffect.Runner,
	clk clock.Clock,
) ticket.TicketService {
	return &TicketServiceImpl{
		tx:                tx,
		TicketRepository:  ticketRepo,
		HistoryRepository: historyRepo,
		Writer:            auditWriter,
		fileService:       fileService,
		activityService:   activityService,
		notifier:          notifier,
		runner:            runner,
		clock:             clk,
	}
}

// canAccess reports whether the actor may read or transition t.
func canAccess(actor user.Actor, t ticket.Ticket) bool {
	switch actor.Role {
	case user.RoleAdmin:
		return true
	case user.RoleZoneManager:
		return actor.SameZone(t.ZoneID)
	case user.RoleFieldStaff:
		if t.AssignedToID != nil && *t.AssignedToID == actor.UserID {
			return true
		}
		return t.SubOwnerID != nil && *t.SubOwnerID == actor.UserID
	}
	return false
}

// minutesBetween returns whole minutes from start to end, never negative.
func minutesBetween(start, end time.Time) int {
	mins := math.Floor(end.Sub(start).Minutes())
	if mins < 0 {
		return 0
	}
	return int(mins)
}

// CreateTicket implements ticket.TicketService.
func (s *TicketServiceImpl) CreateTicket(ctx context.Context, req ticket.CreateTicketRequest) (ticket.TicketResponse, error) {
	if err := req.Validate(); err != nil {
		return ticket.TicketResponse{}, err
	}

	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return ticket.TicketResponse{}, err
	}
	if actor.Role != user.RoleAdmin && !actor.SameZone(req.ZoneID) {
		return ticket.TicketResponse{}, ticket.ErrZoneOutOfScope
	}

	now := s.clock.Now()
	ownerID := actor.UserID
	if req.OwnerID != nil && *req.OwnerID != "" {
		ownerID = *req.OwnerID
	}

	t := ticket.Ticket{
		ID:               uuid.NewString(),
		Title:            req.Title,
		Description:      req.Description,
		Status:           ticket.StatusOpen,
		Priority:         req.Priority,
		OwnerID:          ownerID,
		AssignedToID:     req.AssignedToID,
		SubOwnerID:       req.SubOwnerID,
		ZoneID:           req.ZoneID,
		LastStatusChange: now,
		LocationHistory:  []ticket.LocationSnapshot{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		created, err := s.TicketRepository.Create(txCtx, t)
		if err != nil {
			return fmt.Errorf("failed to create ticket: %w", err)
		}
		t = created

		if _, err := s.HistoryRepository.Append(txCtx, ticket.StatusHistoryEntry{
			ID:          uuid.NewString(),
			TicketID:    t.ID,
			Status:      ticket.StatusOpen,
			ChangedByID: actor.UserID,
			ChangedAt:   now,
			Photos:      []ticket.PhotoRef{},
		}); err != nil {
			return fmt.Errorf("failed to append ticket history: %w", err)
		}

		if err := s.Writer.Append(txCtx, audit.Entry{
			ID:         uuid.NewString(),
			Action:     audit.ActionTicketCreated,
			EntityType: audit.EntityTicket,
			EntityID:   t.ID,
			ActorID:    actor.UserID,
			Details:    map[string]interface{}{"after": ticket.NewTicketResponse(t)},
			CreatedAt:  now,
		}); err != nil {
			return fmt.Errorf("failed to write audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return ticket.TicketResponse{}, err
	}

	slog.InfoContext(ctx, "ticket created", "ticket_id", t.ID, "zone_id", t.ZoneID, "actor_id", actor.UserID)

	if t.AssignedToID != nil && *t.AssignedToID != actor.UserID {
		s.notify(ctx, actor.UserID, []string{*t.AssignedToID}, notification.TypeTicketAssigned, t,
			"Ticket assigned", fmt.Sprintf("You have been assigned ticket %q", t.Title), nil)
	}

	return ticket.NewTicketResponse(t), nil
}

// GetTicket implements ticket.TicketService.
func (s *TicketServiceImpl) GetTicket(ctx context.Context, id string) (ticket.TicketResponse, error) {
	t, err := s.authorizedTicket(ctx, id)
	if err != nil {
		return ticket.TicketResponse{}, err
	}
	return ticket.NewTicketResponse(t), nil
}

// GetHistory implements ticket.TicketService.
func (s *TicketServiceImpl) GetHistory(ctx context.Context, id string) ([]ticket.HistoryResponse, error) {
	if _, err := s.authorizedTicket(ctx, id); err != nil {
		return nil, err
	}

	entries, err := s.HistoryRepository.ListByTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket history: %w", err)
	}

	out := make([]ticket.HistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ticket.NewHistoryResponse(e))
	}
	return out, nil
}

// AllowedTransitions implements ticket.TicketService.
func (s *TicketServiceImpl) AllowedTransitions(ctx context.Context, id string) (ticket.AllowedTransitionsResponse, error) {
	t, err := s.authorizedTicket(ctx, id)
	if err != nil {
		return ticket.AllowedTransitionsResponse{}, err
	}
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return ticket.AllowedTransitionsResponse{}, err
	}

	allowed := []ticket.Status{}
	for _, next := range ticket.AllowedNext(t.Status) {
		if ticket.CanRoleEnter(actor.Role, next) {
			allowed = append(allowed, next)
		}
	}

	return ticket.AllowedTransitionsResponse{
		TicketID: t.ID,
		Current:  t.Status,
		Allowed:  allowed,
	}, nil
}

// ListTickets implements ticket.TicketService.
func (s *TicketServiceImpl) ListTickets(ctx context.Context, filter ticket.ListTicketsFilter) (ticket.ListTicketsResponse, error) {
	if err := filter.Validate(); err != nil {
		return ticket.ListTicketsResponse{}, err
	}

	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return ticket.ListTicketsResponse{}, err
	}

	repoFilter := ticket.ListFilter{
		Status: filter.Status,
		ZoneID: filter.ZoneID,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}

	switch actor.Role {
	case user.RoleAdmin:
	case user.RoleZoneManager:
		if actor.ZoneID == nil {
			return ticket.ListTicketsResponse{}, user.ErrZoneRequired
		}
		if filter.ZoneID != nil && *filter.ZoneID != *actor.ZoneID {
			return ticket.ListTicketsResponse{}, ticket.ErrZoneOutOfScope
		}
		repoFilter.ZoneID = actor.ZoneID
	default:
		repoFilter.ParticipantID = &actor.UserID
	}

	tickets, total, err := s.TicketRepository.List(ctx, repoFilter)
	if err != nil {
		return ticket.ListTicketsResponse{}, fmt.Errorf("failed to list tickets: %w", err)
	}

	out := make([]ticket.TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, ticket.NewTicketResponse(t))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := "0 of 0"
	if total > 0 {
		start := (filter.Page-1)*filter.Limit + 1
		end := start + len(out) - 1
		showing = fmt.Sprintf("%d-%d of %d", start, end, total)
	}

	return ticket.ListTicketsResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Showing:    showing,
		Tickets:    out,
	}, nil
}

func (s *TicketServiceImpl) authorizedTicket(ctx context.Context, id string) (ticket.Ticket, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return ticket.Ticket{}, err
	}
	t, err := s.TicketRepository.GetByID(ctx, id)
	if err != nil {
		return ticket.Ticket{}, err
	}
	if !canAccess(actor, t) {
		return ticket.Ticket{}, ticket.ErrTicketAccessDenied
	}
	return t, nil
}
