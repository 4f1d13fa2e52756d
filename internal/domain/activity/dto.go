package activity

import (
	"errors"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/validator"
)

type CreateActivityRequest struct {
	TicketID    *string  `json:"ticket_id,omitempty"`
	Type        Type     `json:"type" validate:"required"`
	Title       string   `json:"title" validate:"required,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

func (r *CreateActivityRequest) Validate() error {
	var errs validator.ValidationErrors
	if err := validator.Struct(r); err != nil {
		if !errors.As(err, &errs) {
			return err
		}
	}
	if r.Type != "" && !r.Type.IsValid() {
		errs.Add("type", "type is not a recognised activity type")
	}
	if (r.Latitude == nil) != (r.Longitude == nil) {
		errs.Add("latitude", "latitude and longitude must be provided together")
	}
	return errs.Err()
}

type CreateStageRequest struct {
	ActivityID string   `json:"-"`
	Stage      Stage    `json:"stage" validate:"required"`
	Notes      *string  `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Latitude   *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude  *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

func (r *CreateStageRequest) Validate() error {
	var errs validator.ValidationErrors
	if err := validator.Struct(r); err != nil {
		if !errors.As(err, &errs) {
			return err
		}
	}
	if r.Stage != "" && !r.Stage.IsValid() {
		errs.Add("stage", "stage is not a recognised activity stage")
	}
	return errs.Err()
}

type MyActivitiesFilter struct {
	Date *string `json:"date,omitempty"`

	// Resolved day bounds, set by Validate
	From time.Time `json:"-"`
	To   time.Time `json:"-"`
}

// Validate resolves Date in loc, defaulting to the day containing now.
func (f *MyActivitiesFilter) Validate(loc *time.Location, now time.Time) error {
	day := now.In(loc)
	if f.Date != nil && *f.Date != "" {
		d, err := time.ParseInLocation("2006-01-02", *f.Date, loc)
		if err != nil {
			var errs validator.ValidationErrors
			errs.Add("date", "date must be in YYYY-MM-DD format")
			return errs.Err()
		}
		day = d
	}
	f.From = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	f.To = f.From.AddDate(0, 0, 1)
	return nil
}

// TicketWorkLog describes a ticket transition to be mirrored as an activity.
type TicketWorkLog struct {
	UserID     string
	TicketID   string
	Title      string
	FromStatus string
	ToStatus   string
	At         time.Time
	Latitude   *float64
	Longitude  *float64
}

type ActivityResponse struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	TicketID    *string         `json:"ticket_id,omitempty"`
	Type        Type            `json:"type"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     *time.Time      `json:"end_time,omitempty"`
	Duration    *int            `json:"duration,omitempty"`
	Latitude    *float64        `json:"latitude,omitempty"`
	Longitude   *float64        `json:"longitude,omitempty"`
	Stages      []StageResponse `json:"stages,omitempty"`
}

func NewActivityResponse(a Activity) ActivityResponse {
	return ActivityResponse{
		ID:          a.ID,
		UserID:      a.UserID,
		TicketID:    a.TicketID,
		Type:        a.Type,
		Title:       a.Title,
		Description: a.Description,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		Duration:    a.Duration,
		Latitude:    a.Latitude,
		Longitude:   a.Longitude,
	}
}

type StageResponse struct {
	ID             string     `json:"id"`
	ActivityID     string     `json:"activity_id"`
	Stage          Stage      `json:"stage"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	ActivityClosed bool       `json:"activity_closed"`
}

func NewStageResponse(s ActivityStage) StageResponse {
	return StageResponse{
		ID:         s.ID,
		ActivityID: s.ActivityID,
		Stage:      s.Stage,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Notes:      s.Notes,
		Latitude:   s.Latitude,
		Longitude:  s.Longitude,
	}
}
