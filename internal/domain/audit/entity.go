package audit

import "time"

type Action string

const (
	ActionTicketCreated        Action = "TICKET_CREATED"
	ActionTicketStatusChanged  Action = "TICKET_STATUS_CHANGED"
	ActionAttendanceCheckIn    Action = "ATTENDANCE_CHECK_IN"
	ActionAttendanceCheckOut   Action = "ATTENDANCE_CHECK_OUT"
	ActionAttendanceReCheckIn  Action = "ATTENDANCE_RE_CHECK_IN"
	ActionAttendanceAutoClose  Action = "ATTENDANCE_AUTO_CHECKOUT"
	ActionAttendanceCorrected  Action = "ATTENDANCE_CORRECTED"
	ActionActivityCreated      Action = "ACTIVITY_CREATED"
	ActionActivityEnded        Action = "ACTIVITY_ENDED"
	ActionActivityAutoClosed   Action = "ACTIVITY_AUTO_CLOSED"
	ActionActivityStageCreated Action = "ACTIVITY_STAGE_CREATED"
	ActionActivityStageEnded   Action = "ACTIVITY_STAGE_ENDED"
)

const (
	EntityTicket     = "ticket"
	EntityAttendance = "attendance_session"
	EntityActivity   = "daily_activity"
	EntityStage      = "activity_stage"
)

// Entry is one append-only audit record. Details usually carries "before"
// and "after" snapshots of the mutated entity.
type Entry struct {
	ID         string
	Action     Action
	EntityType string
	EntityID   string
	ActorID    string
	Details    map[string]interface{}
	CreatedAt  time.Time
}
