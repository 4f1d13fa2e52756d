package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/ticket"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ticketRepositoryImpl struct {
	db *database.DB
}

func NewTicketRepository(db *database.DB) ticket.TicketRepository {
	return &ticketRepositoryImpl{db: db}
}

const ticketColumns = `
	id, title, description, status, priority, owner_id, assigned_to_id, sub_owner_id, zone_id,
	last_status_change, time_in_status, total_time_open,
	visit_planned_at, visit_started_at, visit_reached_at, visit_in_progress_at, visit_resolved_at,
	visit_pending_at, visit_completed_at, resolved_at, closed_pending_at, closed_at, reopened_at,
	start_location, end_location, location_history, travel_distance_meters,
	resolution_summary, feedback, rating, created_at, updated_at`

func scanTicket(row pgx.Row) (ticket.Ticket, error) {
	var t ticket.Ticket
	var startLoc, endLoc, locHistory []byte
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.OwnerID, &t.AssignedToID, &t.SubOwnerID, &t.ZoneID,
		&t.LastStatusChange, &t.TimeInStatus, &t.TotalTimeOpen,
		&t.VisitPlannedAt, &t.VisitStartedAt, &t.VisitReachedAt, &t.VisitInProgressAt, &t.VisitResolvedAt,
		&t.VisitPendingAt, &t.VisitCompletedAt, &t.ResolvedAt, &t.ClosedPendingAt, &t.ClosedAt, &t.ReopenedAt,
		&startLoc, &endLoc, &locHistory, &t.TravelDistanceMeters,
		&t.ResolutionSummary, &t.Feedback, &t.Rating, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return ticket.Ticket{}, err
	}

	if t.StartLocation, err = unmarshalLocation(startLoc); err != nil {
		return ticket.Ticket{}, err
	}
	if t.EndLocation, err = unmarshalLocation(endLoc); err != nil {
		return ticket.Ticket{}, err
	}
	t.LocationHistory = []ticket.LocationSnapshot{}
	if len(locHistory) > 0 {
		if err := json.Unmarshal(locHistory, &t.LocationHistory); err != nil {
			return ticket.Ticket{}, fmt.Errorf("failed to decode location history: %w", err)
		}
	}

	return t, nil
}

func unmarshalLocation(raw []byte) (*ticket.Location, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var loc ticket.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, fmt.Errorf("failed to decode location: %w", err)
	}
	return &loc, nil
}

// marshalNullable encodes v as JSON, mapping nil pointers to SQL NULL.
func marshalNullable(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	if loc, ok := v.(*ticket.Location); ok && loc == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func ticketArgs(t ticket.Ticket) ([]interface{}, error) {
	startLoc, err := marshalNullable(t.StartLocation)
	if err != nil {
		return nil, err
	}
	endLoc, err := marshalNullable(t.EndLocation)
	if err != nil {
		return nil, err
	}
	history := t.LocationHistory
	if history == nil {
		history = []ticket.LocationSnapshot{}
	}
	locHistory, err := json.Marshal(history)
	if err != nil {
		return nil, err
	}

	return []interface{}{
		t.ID, t.Title, t.Description, t.Status, t.Priority, t.OwnerID, t.AssignedToID, t.SubOwnerID, t.ZoneID,
		t.LastStatusChange, t.TimeInStatus, t.TotalTimeOpen,
		t.VisitPlannedAt, t.VisitStartedAt, t.VisitReachedAt, t.VisitInProgressAt, t.VisitResolvedAt,
		t.VisitPendingAt, t.VisitCompletedAt, t.ResolvedAt, t.ClosedPendingAt, t.ClosedAt, t.ReopenedAt,
		startLoc, endLoc, locHistory, t.TravelDistanceMeters,
		t.ResolutionSummary, t.Feedback, t.Rating, t.CreatedAt, t.UpdatedAt,
	}, nil
}

// Create implements ticket.TicketRepository.
func (r *ticketRepositoryImpl) Create(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	q := GetQuerier(ctx, r.db)

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	args, err := ticketArgs(t)
	if err != nil {
		return ticket.Ticket{}, fmt.Errorf("failed to encode ticket: %w", err)
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := `INSERT INTO tickets (` + ticketColumns + `) VALUES (` + strings.Join(placeholders, ", ") + `) RETURNING ` + ticketColumns

	created, err := scanTicket(q.QueryRow(ctx, query, args...))
	if err != nil {
		return ticket.Ticket{}, fmt.Errorf("failed to create ticket: %w", err)
	}
	return created, nil
}

func (r *ticketRepositoryImpl) get(ctx context.Context, id string, lock bool) (ticket.Ticket, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	t, err := scanTicket(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ticket.Ticket{}, ticket.ErrTicketNotFound
		}
		return ticket.Ticket{}, fmt.Errorf("failed to get ticket: %w", err)
	}
	return t, nil
}

// GetByID implements ticket.TicketRepository.
func (r *ticketRepositoryImpl) GetByID(ctx context.Context, id string) (ticket.Ticket, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate implements ticket.TicketRepository.
func (r *ticketRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (ticket.Ticket, error) {
	return r.get(ctx, id, true)
}

// Update implements ticket.TicketRepository.
func (r *ticketRepositoryImpl) Update(ctx context.Context, t ticket.Ticket) error {
	q := GetQuerier(ctx, r.db)

	args, err := ticketArgs(t)
	if err != nil {
		return fmt.Errorf("failed to encode ticket: %w", err)
	}

	columns := strings.Split(ticketColumns, ",")
	sets := make([]string, 0, len(columns))
	for i, col := range columns {
		col = strings.TrimSpace(col)
		if col == "id" || col == "created_at" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
	}
	query := `UPDATE tickets SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ticket.ErrTicketNotFound
	}
	return nil
}

// List implements ticket.TicketRepository.
func (r *ticketRepositoryImpl) List(ctx context.Context, filter ticket.ListFilter) ([]ticket.Ticket, int64, error) {
	q := GetQuerier(ctx, r.db)

	conds := []string{"TRUE"}
	args := []interface{}{}
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != nil {
		conds = append(conds, "status = "+next(*filter.Status))
	}
	if filter.ZoneID != nil {
		conds = append(conds, "zone_id = "+next(*filter.ZoneID))
	}
	if filter.ParticipantID != nil {
		p := next(*filter.ParticipantID)
		conds = append(conds, "(owner_id = "+p+" OR assigned_to_id = "+p+" OR sub_owner_id = "+p+")")
	}
	where := strings.Join(conds, " AND ")

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tickets: %w", err)
	}

	limit := next(filter.Limit)
	offset := next((filter.Page - 1) * filter.Limit)
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ` + where +
		` ORDER BY last_status_change DESC, id LIMIT ` + limit + ` OFFSET ` + offset

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	tickets := []ticket.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, total, rows.Err()
}

type historyRepositoryImpl struct {
	db *database.DB
}

func NewHistoryRepository(db *database.DB) ticket.HistoryRepository {
	return &historyRepositoryImpl{db: db}
}

// Append implements ticket.HistoryRepository.
func (r *historyRepositoryImpl) Append(ctx context.Context, entry ticket.StatusHistoryEntry) (ticket.StatusHistoryEntry, error) {
	q := GetQuerier(ctx, r.db)

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	location, err := marshalNullable(entry.Location)
	if err != nil {
		return ticket.StatusHistoryEntry{}, fmt.Errorf("failed to encode history location: %w", err)
	}
	photos := entry.Photos
	if photos == nil {
		photos = []ticket.PhotoRef{}
	}
	photosJSON, err := json.Marshal(photos)
	if err != nil {
		return ticket.StatusHistoryEntry{}, fmt.Errorf("failed to encode history photos: %w", err)
	}

	query := `
		INSERT INTO ticket_status_history (
			id, ticket_id, status, previous_status, changed_by_id, changed_at,
			notes, location, photos, time_in_status, total_time_open
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = q.Exec(ctx, query,
		entry.ID,
		entry.TicketID,
		entry.Status,
		entry.PreviousStatus,
		entry.ChangedByID,
		entry.ChangedAt,
		entry.Notes,
		location,
		photosJSON,
		entry.TimeInStatus,
		entry.TotalTimeOpen,
	)
	if err != nil {
		return ticket.StatusHistoryEntry{}, fmt.Errorf("failed to append status history: %w", err)
	}

	entry.Photos = photos
	return entry, nil
}

// ListByTicket implements ticket.HistoryRepository.
func (r *historyRepositoryImpl) ListByTicket(ctx context.Context, ticketID string) ([]ticket.StatusHistoryEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, ticket_id, status, previous_status, changed_by_id, changed_at,
		       notes, location, photos, time_in_status, total_time_open
		FROM ticket_status_history
		WHERE ticket_id = $1
		ORDER BY changed_at, id
	`
	rows, err := q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	entries := []ticket.StatusHistoryEntry{}
	for rows.Next() {
		var (
			e              ticket.StatusHistoryEntry
			location, pics []byte
		)
		if err := rows.Scan(
			&e.ID, &e.TicketID, &e.Status, &e.PreviousStatus, &e.ChangedByID, &e.ChangedAt,
			&e.Notes, &location, &pics, &e.TimeInStatus, &e.TotalTimeOpen,
		); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		if e.Location, err = unmarshalLocation(location); err != nil {
			return nil, err
		}
		e.Photos = []ticket.PhotoRef{}
		if len(pics) > 0 {
			if err := json.Unmarshal(pics, &e.Photos); err != nil {
				return nil, fmt.Errorf("failed to decode history photos: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
