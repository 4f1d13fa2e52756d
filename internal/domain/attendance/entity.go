package attendance

import (
	"math"
	"strings"
	"time"
)

type Status string

const (
	StatusCheckedIn     Status = "CHECKED_IN"
	StatusCheckedOut    Status = "CHECKED_OUT"
	StatusEarlyCheckout Status = "EARLY_CHECKOUT"
	StatusLate          Status = "LATE"
	StatusAbsent        Status = "ABSENT"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusCheckedIn, StatusCheckedOut, StatusEarlyCheckout, StatusLate, StatusAbsent:
		return true
	}
	return false
}

type AddressSource string

const (
	AddressSourceProvider AddressSource = "provider"
	AddressSourceFallback AddressSource = "fallback"
	AddressSourceManual   AddressSource = "manual"
)

// AutoCheckoutTag marks sessions closed by the scheduled sweep.
const AutoCheckoutTag = "[auto-checkout]"

type Session struct {
	ID                   string
	UserID               string
	CheckInAt            time.Time
	CheckOutAt           *time.Time
	CheckInLatitude      float64
	CheckInLongitude     float64
	CheckInAddress       string
	CheckInAddressSource AddressSource
	CheckOutLatitude     *float64
	CheckOutLongitude    *float64
	CheckOutAddress      *string
	TotalHours           *float64
	Status               Status
	Notes                *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsOpen reports whether the session is still checked in.
func (s *Session) IsOpen() bool {
	return s.Status == StatusCheckedIn
}

// AppendNote adds note to the session notes, separated by a space.
func (s *Session) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if s.Notes == nil || strings.TrimSpace(*s.Notes) == "" {
		s.Notes = &note
		return
	}
	joined := *s.Notes + " " + note
	s.Notes = &joined
}

// HoursBetween returns (end-start) in hours rounded to two decimals.
func HoursBetween(start, end time.Time) float64 {
	hours := end.Sub(start).Hours()
	if hours < 0 {
		hours = 0
	}
	return RoundHours(hours)
}

// RoundHours rounds to two decimals.
func RoundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

// Day returns the [start, end) bounds of the calendar day containing t in loc.
func Day(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// CutoffFor returns the checkout cut-off on the calendar day of t.
func CutoffFor(t time.Time, loc *time.Location, hour int) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
}
