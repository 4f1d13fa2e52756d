package attendance

import (
	"errors"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type CheckInRequest struct {
	Latitude       *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude      *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Address        *string  `json:"address,omitempty" validate:"omitempty,max=500"`
	LocationSource string   `json:"location_source,omitempty" validate:"omitempty,oneof=gps manual"`
	Notes          *string  `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (r *CheckInRequest) Validate() error {
	return validateCoordinates(r, r.Latitude, r.Longitude, r.LocationSource, r.Address)
}

type CheckOutRequest struct {
	AttendanceID         string   `json:"attendance_id" validate:"required"`
	Latitude             *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude            *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Address              *string  `json:"address,omitempty" validate:"omitempty,max=500"`
	LocationSource       string   `json:"location_source,omitempty" validate:"omitempty,oneof=gps manual"`
	Notes                *string  `json:"notes,omitempty" validate:"omitempty,max=1000"`
	ConfirmEarlyCheckout bool     `json:"confirm_early_checkout"`
}

func (r *CheckOutRequest) Validate() error {
	return validateCoordinates(r, r.Latitude, r.Longitude, r.LocationSource, r.Address)
}

// validateCoordinates runs the struct tags and the checks tags cannot express:
// NaN slips through gte/lte, and a manual source needs an address.
func validateCoordinates(req interface{}, lat, lng *float64, source string, address *string) error {
	var errs validator.ValidationErrors
	if err := validator.Struct(req); err != nil {
		if !errors.As(err, &errs) {
			return err
		}
	}

	fields := errs.ToMap()
	if _, reported := fields["latitude"]; !reported && lat != nil && !validator.IsValidLatitude(*lat) {
		errs.Add("latitude", "latitude must be a finite number between -90 and 90")
	}
	if _, reported := fields["longitude"]; !reported && lng != nil && !validator.IsValidLongitude(*lng) {
		errs.Add("longitude", "longitude must be a finite number between -180 and 180")
	}
	if AddressSource(source) == AddressSourceManual && (address == nil || validator.IsEmpty(*address)) {
		errs.Add("address", "address is required when location_source is manual")
	}

	return errs.Err()
}

type UpdateSessionRequest struct {
	ID         string  `json:"-"`
	Status     *Status `json:"status,omitempty"`
	CheckOutAt *string `json:"check_out_at,omitempty"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (r *UpdateSessionRequest) Validate() error {
	var errs validator.ValidationErrors
	if err := validator.Struct(r); err != nil {
		if !errors.As(err, &errs) {
			return err
		}
	}

	if r.Status != nil && !r.Status.IsValid() {
		errs.Add("status", "status is not a recognised attendance status")
	}
	if r.CheckOutAt != nil {
		if _, ok := validator.IsValidDateTime(*r.CheckOutAt); !ok {
			errs.Add("check_out_at", "check_out_at must be an RFC3339 timestamp")
		}
	}
	if r.Status == nil && r.CheckOutAt == nil && r.Notes == nil {
		errs.Add("body", "at least one field must be provided")
	}

	return errs.Err()
}

type MyAttendanceFilter struct {
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	Page      int     `json:"page"`
	Limit     int     `json:"limit"`

	// Resolved bounds, set by Validate
	From *time.Time `json:"-"`
	To   *time.Time `json:"-"`
}

// Validate checks the date range and sets pagination defaults. Dates are
// interpreted in loc.
func (f *MyAttendanceFilter) Validate(loc *time.Location) error {
	var errs validator.ValidationErrors

	if f.StartDate != nil {
		if d, err := time.ParseInLocation("2006-01-02", *f.StartDate, loc); err != nil {
			errs.Add("start_date", "start_date must be in YYYY-MM-DD format")
		} else {
			f.From = &d
		}
	}
	if f.EndDate != nil {
		if d, err := time.ParseInLocation("2006-01-02", *f.EndDate, loc); err != nil {
			errs.Add("end_date", "end_date must be in YYYY-MM-DD format")
		} else {
			end := d.AddDate(0, 0, 1)
			f.To = &end
		}
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		errs.Add("start_date", "start_date must be on or before end_date")
	}

	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs.Add("limit", "limit must not exceed 100")
	}

	return errs.Err()
}

type SessionResponse struct {
	ID                   string        `json:"id"`
	UserID               string        `json:"user_id"`
	CheckInAt            time.Time     `json:"check_in_at"`
	CheckOutAt           *time.Time    `json:"check_out_at,omitempty"`
	CheckInLatitude      float64       `json:"check_in_latitude"`
	CheckInLongitude     float64       `json:"check_in_longitude"`
	CheckInAddress       string        `json:"check_in_address"`
	CheckInAddressSource AddressSource `json:"check_in_address_source"`
	CheckOutLatitude     *float64      `json:"check_out_latitude,omitempty"`
	CheckOutLongitude    *float64      `json:"check_out_longitude,omitempty"`
	CheckOutAddress      *string       `json:"check_out_address,omitempty"`
	TotalHours           *float64      `json:"total_hours,omitempty"`
	Status               Status        `json:"status"`
	Notes                *string       `json:"notes,omitempty"`
}

func NewSessionResponse(s Session) SessionResponse {
	return SessionResponse{
		ID:                   s.ID,
		UserID:               s.UserID,
		CheckInAt:            s.CheckInAt,
		CheckOutAt:           s.CheckOutAt,
		CheckInLatitude:      s.CheckInLatitude,
		CheckInLongitude:     s.CheckInLongitude,
		CheckInAddress:       s.CheckInAddress,
		CheckInAddressSource: s.CheckInAddressSource,
		CheckOutLatitude:     s.CheckOutLatitude,
		CheckOutLongitude:    s.CheckOutLongitude,
		CheckOutAddress:      s.CheckOutAddress,
		TotalHours:           s.TotalHours,
		Status:               s.Status,
		Notes:                s.Notes,
	}
}

type CheckOutResponse struct {
	Session              SessionResponse `json:"session"`
	AutoClosedActivities int             `json:"auto_closed_activities"`
}

type StatusResponse struct {
	IsCheckedIn bool              `json:"is_checked_in"`
	Open        *SessionResponse  `json:"open_session,omitempty"`
	Today       []SessionResponse `json:"today"`
}

type ListSessionsResponse struct {
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
	Showing    string            `json:"showing"`
	Sessions   []SessionResponse `json:"sessions"`
}

// SweepResult summarises one auto-checkout run.
type SweepResult struct {
	Processed int `json:"processed"`
	Closed    int `json:"closed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}
