package ticket

import (
	"errors"
	"io"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/validator"
)

// ========================================
// REQUEST DTOs
// ========================================

type CreateTicketRequest struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	Priority     Priority `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	ZoneID       string   `json:"zone_id" validate:"required"`
	OwnerID      *string  `json:"owner_id,omitempty"`
	AssignedToID *string  `json:"assigned_to_id,omitempty"`
	SubOwnerID   *string  `json:"sub_owner_id,omitempty"`
}

func (r *CreateTicketRequest) Validate() error {
	return validator.Struct(r)
}

type LocationInput struct {
	Latitude  *float64   `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64   `json:"longitude" validate:"required,gte=-180,lte=180"`
	Address   *string    `json:"address,omitempty" validate:"omitempty,max=500"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// PhotoUpload is a photo attached to a status change, read from a multipart form.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type UpdateStatusRequest struct {
	TicketID string         `json:"-"`
	Status   Status         `json:"status" validate:"required"`
	Comments *string        `json:"comments,omitempty" validate:"omitempty,max=5000"`
	Location *LocationInput `json:"location,omitempty" validate:"omitempty"`
	Feedback *string        `json:"feedback,omitempty" validate:"omitempty,max=2000"`
	Rating   *int           `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Photos   []PhotoUpload  `json:"-"`
}

func (r *UpdateStatusRequest) Validate() error {
	var errs validator.ValidationErrors
	if err := validator.Struct(r); err != nil {
		if !errors.As(err, &errs) {
			return err
		}
	}

	if r.Status != "" && !r.Status.IsValid() {
		errs.Add("status", "status is not a recognised ticket status")
	}

	if r.Status != StatusClosed {
		if r.Feedback != nil {
			errs.Add("feedback", "feedback can only be given when closing a ticket")
		}
		if r.Rating != nil {
			errs.Add("rating", "rating can only be given when closing a ticket")
		}
	}

	if len(r.Photos) > 10 {
		errs.Add("photos", "at most 10 photos can be attached")
	}

	return errs.Err()
}

// ToLocation converts validated input into a stored location, defaulting the
// timestamp to now.
func (l *LocationInput) ToLocation(now time.Time) *Location {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return nil
	}
	ts := now
	if l.Timestamp != nil {
		ts = *l.Timestamp
	}
	return &Location{
		Latitude:  *l.Latitude,
		Longitude: *l.Longitude,
		Address:   l.Address,
		Timestamp: &ts,
	}
}

type ListTicketsFilter struct {
	Status *Status `json:"status,omitempty"`
	ZoneID *string `json:"zone_id,omitempty"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

func (f *ListTicketsFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs.Add("limit", "limit must not exceed 100")
	}
	if f.Status != nil && !f.Status.IsValid() {
		errs.Add("status", "status is not a recognised ticket status")
	}

	return errs.Err()
}

// ========================================
// RESPONSE DTOs
// ========================================

type TicketResponse struct {
	ID                   string             `json:"id"`
	Title                string             `json:"title"`
	Description          *string            `json:"description,omitempty"`
	Status               Status             `json:"status"`
	Priority             Priority           `json:"priority"`
	OwnerID              string             `json:"owner_id"`
	AssignedToID         *string            `json:"assigned_to_id,omitempty"`
	SubOwnerID           *string            `json:"sub_owner_id,omitempty"`
	ZoneID               string             `json:"zone_id"`
	LastStatusChange     time.Time          `json:"last_status_change"`
	TimeInStatus         int                `json:"time_in_status"`
	TotalTimeOpen        int                `json:"total_time_open"`
	VisitPlannedAt       *time.Time         `json:"visit_planned_at,omitempty"`
	VisitStartedAt       *time.Time         `json:"visit_started_at,omitempty"`
	VisitReachedAt       *time.Time         `json:"visit_reached_at,omitempty"`
	VisitInProgressAt    *time.Time         `json:"visit_in_progress_at,omitempty"`
	VisitResolvedAt      *time.Time         `json:"visit_resolved_at,omitempty"`
	VisitPendingAt       *time.Time         `json:"visit_pending_at,omitempty"`
	VisitCompletedAt     *time.Time         `json:"visit_completed_at,omitempty"`
	ResolvedAt           *time.Time         `json:"resolved_at,omitempty"`
	ClosedPendingAt      *time.Time         `json:"closed_pending_at,omitempty"`
	ClosedAt             *time.Time         `json:"closed_at,omitempty"`
	ReopenedAt           *time.Time         `json:"reopened_at,omitempty"`
	StartLocation        *Location          `json:"start_location,omitempty"`
	EndLocation          *Location          `json:"end_location,omitempty"`
	LocationHistory      []LocationSnapshot `json:"location_history"`
	TravelDistanceMeters *float64           `json:"travel_distance_meters,omitempty"`
	ResolutionSummary    *string            `json:"resolution_summary,omitempty"`
	Feedback             *string            `json:"feedback,omitempty"`
	Rating               *int               `json:"rating,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

func NewTicketResponse(t Ticket) TicketResponse {
	history := t.LocationHistory
	if history == nil {
		history = []LocationSnapshot{}
	}
	return TicketResponse{
		ID:                   t.ID,
		Title:                t.Title,
		Description:          t.Description,
		Status:               t.Status,
		Priority:             t.Priority,
		OwnerID:              t.OwnerID,
		AssignedToID:         t.AssignedToID,
		SubOwnerID:           t.SubOwnerID,
		ZoneID:               t.ZoneID,
		LastStatusChange:     t.LastStatusChange,
		TimeInStatus:         t.TimeInStatus,
		TotalTimeOpen:        t.TotalTimeOpen,
		VisitPlannedAt:       t.VisitPlannedAt,
		VisitStartedAt:       t.VisitStartedAt,
		VisitReachedAt:       t.VisitReachedAt,
		VisitInProgressAt:    t.VisitInProgressAt,
		VisitResolvedAt:      t.VisitResolvedAt,
		VisitPendingAt:       t.VisitPendingAt,
		VisitCompletedAt:     t.VisitCompletedAt,
		ResolvedAt:           t.ResolvedAt,
		ClosedPendingAt:      t.ClosedPendingAt,
		ClosedAt:             t.ClosedAt,
		ReopenedAt:           t.ReopenedAt,
		StartLocation:        t.StartLocation,
		EndLocation:          t.EndLocation,
		LocationHistory:      history,
		TravelDistanceMeters: t.TravelDistanceMeters,
		ResolutionSummary:    t.ResolutionSummary,
		Feedback:             t.Feedback,
		Rating:               t.Rating,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
}

type ListTicketsResponse struct {
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
	Showing    string           `json:"showing"`
	Tickets    []TicketResponse `json:"tickets"`
}

type HistoryResponse struct {
	ID             string     `json:"id"`
	TicketID       string     `json:"ticket_id"`
	Status         Status     `json:"status"`
	PreviousStatus *Status    `json:"previous_status,omitempty"`
	ChangedByID    string     `json:"changed_by_id"`
	ChangedAt      time.Time  `json:"changed_at"`
	Notes          *string    `json:"notes,omitempty"`
	Location       *Location  `json:"location,omitempty"`
	Photos         []PhotoRef `json:"photos"`
	TimeInStatus   int        `json:"time_in_status"`
	TotalTimeOpen  int        `json:"total_time_open"`
}

func NewHistoryResponse(h StatusHistoryEntry) HistoryResponse {
	photos := h.Photos
	if photos == nil {
		photos = []PhotoRef{}
	}
	return HistoryResponse{
		ID:             h.ID,
		TicketID:       h.TicketID,
		Status:         h.Status,
		PreviousStatus: h.PreviousStatus,
		ChangedByID:    h.ChangedByID,
		ChangedAt:      h.ChangedAt,
		Notes:          h.Notes,
		Location:       h.Location,
		Photos:         photos,
		TimeInStatus:   h.TimeInStatus,
		TotalTimeOpen:  h.TotalTimeOpen,
	}
}

type AllowedTransitionsResponse struct {
	TicketID string   `json:"ticket_id"`
	Current  Status   `json:"current"`
	Allowed  []Status `json:"allowed"`
}
