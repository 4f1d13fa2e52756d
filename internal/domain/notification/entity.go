package notification

import (
	"time"
)

type Type string

const (
	TypeTicketAssigned         Type = "ticket_assigned"
	TypeTicketStatusChanged    Type = "ticket_status_changed"
	TypeTicketClosed           Type = "ticket_closed"
	TypeTicketReopened         Type = "ticket_reopened"
	TypeAttendanceAutoCheckout Type = "attendance_auto_checkout"
)

var knownTypes = map[Type]struct{}{
	TypeTicketAssigned:         {},
	TypeTicketStatusChanged:    {},
	TypeTicketClosed:           {},
	TypeTicketReopened:         {},
	TypeAttendanceAutoCheckout: {},
}

func (t Type) IsValid() bool {
	_, ok := knownTypes[t]
	return ok
}

type SubjectKind string

const (
	SubjectTicket            SubjectKind = "ticket"
	SubjectAttendanceSession SubjectKind = "attendance_session"
)

// Subject is the record a notification points at.
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

// Notification is an in-app message for one recipient. It is unread until
// ReadAt is set.
type Notification struct {
	ID          string
	RecipientID string
	SenderID    *string
	Type        Type
	Title       string
	Message     string
	Subject     *Subject
	Details     map[string]any
	ReadAt      *time.Time
	CreatedAt   time.Time
}

func (n Notification) IsRead() bool {
	return n.ReadAt != nil
}
