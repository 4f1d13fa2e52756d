package report

import (
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/validator"
)

// MaxRangeDays bounds how many days a single report may span.
const MaxRangeDays = 92

type ReportFilter struct {
	StartDate *string            `json:"start_date,omitempty"`
	EndDate   *string            `json:"end_date,omitempty"`
	ZoneID    *string            `json:"zone_id,omitempty"`
	Status    *attendance.Status `json:"status,omitempty"`
	UserID    *string            `json:"user_id,omitempty"`
	Search    *string            `json:"search,omitempty"`
	Page      int                `json:"page"`
	Limit     int                `json:"limit"`

	// Resolved local days, set by Validate
	FromDay time.Time `json:"-"`
	ToDay   time.Time `json:"-"`
}

// localDay moves a parsed calendar date to midnight in loc.
func localDay(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// Validate parses the date range in loc, defaulting both ends to the local
// day of now, and applies pagination defaults.
func (f *ReportFilter) Validate(loc *time.Location, now time.Time) error {
	var errs validator.ValidationErrors

	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	f.FromDay, f.ToDay = today, today

	if f.StartDate != nil && *f.StartDate != "" {
		if d, ok := validator.IsValidDate(*f.StartDate); !ok {
			errs.Add("start_date", "start_date must be in YYYY-MM-DD format")
		} else {
			d = localDay(d, loc)
			f.FromDay = d
			if f.EndDate == nil || *f.EndDate == "" {
				f.ToDay = d
			}
		}
	}
	if f.EndDate != nil && *f.EndDate != "" {
		if d, ok := validator.IsValidDate(*f.EndDate); !ok {
			errs.Add("end_date", "end_date must be in YYYY-MM-DD format")
		} else {
			d = localDay(d, loc)
			f.ToDay = d
			if f.StartDate == nil || *f.StartDate == "" {
				f.FromDay = d
			}
		}
	}
	if len(errs) == 0 {
		if f.FromDay.After(f.ToDay) {
			errs.Add("start_date", "start_date must be on or before end_date")
		} else if f.ToDay.Sub(f.FromDay) > MaxRangeDays*24*time.Hour {
			errs.Add("end_date", ErrRangeTooLong.Error())
		}
	}

	if f.Status != nil && *f.Status != "" && !f.Status.IsValid() {
		errs.Add("status", "status is not a recognised attendance status")
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

type Pagination struct {
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
	Showing    string `json:"showing"`
}

// NewPagination describes the page of a result set holding total records.
func NewPagination(page, limit, total int) Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	showing := "0 of 0"
	if total > 0 {
		start := (page-1)*limit + 1
		end := start + limit - 1
		if end > total {
			end = total
		}
		if start > total {
			showing = fmt.Sprintf("0 of %d", total)
		} else {
			showing = fmt.Sprintf("%d-%d of %d", start, end, total)
		}
	}

	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		Showing:    showing,
	}
}

type Summary struct {
	Total         int `json:"total"`
	Present       int `json:"present"`
	Absent        int `json:"absent"`
	Late          int `json:"late"`
	EarlyCheckout int `json:"early_checkout"`
	Flagged       int `json:"flagged"`
}

type ReportResponse struct {
	Attendance []Record   `json:"attendance"`
	Pagination Pagination `json:"pagination"`
	Summary    Summary    `json:"summary"`
}
