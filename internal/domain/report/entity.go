package report

import (
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
)

type Flag string

const (
	FlagLate             Flag = "LATE"
	FlagEarlyCheckout    Flag = "EARLY_CHECKOUT"
	FlagLongDay          Flag = "LONG_DAY"
	FlagAutoCheckout     Flag = "AUTO_CHECKOUT"
	FlagNoActivity       Flag = "NO_ACTIVITY"
	FlagMultipleSessions Flag = "MULTIPLE_SESSIONS"
	FlagMissingCheckout  Flag = "MISSING_CHECKOUT"
	FlagAbsent           Flag = "ABSENT"
)

// Flag thresholds, in local time of the reporting location.
const (
	LateHour          = 11
	EarlyCheckoutHour = 16
	LongDayHours      = 12.0
)

// DayKey identifies one user on one local calendar day.
type DayKey struct {
	UserID string
	Day    string // YYYY-MM-DD
}

type SessionSummary struct {
	ID         string            `json:"id"`
	CheckInAt  time.Time         `json:"check_in_at"`
	CheckOutAt *time.Time        `json:"check_out_at,omitempty"`
	TotalHours *float64          `json:"total_hours,omitempty"`
	Status     attendance.Status `json:"status"`
}

// Record is the consolidated view of one user's attendance on one day.
type Record struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	UserName      string            `json:"user_name"`
	ZoneID        *string           `json:"zone_id,omitempty"`
	Date          string            `json:"date"`
	CheckInAt     *time.Time        `json:"check_in_at,omitempty"`
	CheckOutAt    *time.Time        `json:"check_out_at,omitempty"`
	TotalHours    float64           `json:"total_hours"`
	Status        attendance.Status `json:"status"`
	Notes         string            `json:"notes,omitempty"`
	SessionCount  int               `json:"session_count"`
	Sessions      []SessionSummary  `json:"sessions"`
	ActivityCount int               `json:"activity_count"`
	Flags         []Flag            `json:"flags"`
	Synthetic     bool              `json:"synthetic"`
}

// HasFlag reports whether r carries f.
func (r *Record) HasFlag(f Flag) bool {
	for _, have := range r.Flags {
		if have == f {
			return true
		}
	}
	return false
}

// StatusRank orders session statuses when several sessions share a day.
func StatusRank(s attendance.Status) int {
	switch s {
	case attendance.StatusCheckedIn:
		return 5
	case attendance.StatusLate:
		return 4
	case attendance.StatusEarlyCheckout:
		return 3
	case attendance.StatusCheckedOut:
		return 2
	case attendance.StatusAbsent:
		return 1
	default:
		return 0
	}
}

// SyntheticAbsenceID is the stable identifier of a generated absence.
func SyntheticAbsenceID(userID, day string) string {
	return "absent-" + userID + "-" + day
}
