package ticket

import "time"

// Location is a coordinate snapshot with an optional resolved address.
type Location struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Address   *string    `json:"address,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// LocationSnapshot is one point of a ticket's location trail.
type LocationSnapshot struct {
	Location
	Status     Status    `json:"status"`
	RecordedAt time.Time `json:"recorded_at"`
	RecordedBy string    `json:"recorded_by"`
}

// PhotoRef points at a stored photo. When storage fails the reference keeps
// only the upload metadata and Stored is false.
type PhotoRef struct {
	ID          string `json:"id,omitempty"`
	URL         string `json:"url,omitempty"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
	Stored      bool   `json:"stored"`
}

type Ticket struct {
	ID           string
	Title        string
	Description  *string
	Status       Status
	Priority     Priority
	OwnerID      string
	AssignedToID *string
	SubOwnerID   *string
	ZoneID       string

	LastStatusChange time.Time
	TimeInStatus     int // minutes spent in the previous status
	TotalTimeOpen    int // minutes since creation

	VisitPlannedAt    *time.Time
	VisitStartedAt    *time.Time
	VisitReachedAt    *time.Time
	VisitInProgressAt *time.Time
	VisitResolvedAt   *time.Time
	VisitPendingAt    *time.Time
	VisitCompletedAt  *time.Time
	ResolvedAt        *time.Time
	ClosedPendingAt   *time.Time
	ClosedAt          *time.Time
	ReopenedAt        *time.Time

	StartLocation        *Location
	EndLocation          *Location
	LocationHistory      []LocationSnapshot
	TravelDistanceMeters *float64

	ResolutionSummary *string
	Feedback          *string
	Rating            *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsParticipant reports whether userID owns, is assigned to, or sub-owns t.
func (t *Ticket) IsParticipant(userID string) bool {
	if t.OwnerID == userID {
		return true
	}
	if t.AssignedToID != nil && *t.AssignedToID == userID {
		return true
	}
	return t.SubOwnerID != nil && *t.SubOwnerID == userID
}

// StatusHistoryEntry is written once per accepted transition and never
// modified afterwards.
type StatusHistoryEntry struct {
	ID             string
	TicketID       string
	Status         Status
	PreviousStatus *Status
	ChangedByID    string
	ChangedAt      time.Time
	Notes          *string
	Location       *Location
	Photos         []PhotoRef
	TimeInStatus   int
	TotalTimeOpen  int
}
