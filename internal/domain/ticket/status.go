package ticket

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"

	StatusOnsiteVisit           Status = "ONSITE_VISIT"
	StatusOnsiteVisitPlanned    Status = "ONSITE_VISIT_PLANNED"
	StatusOnsiteVisitStarted    Status = "ONSITE_VISIT_STARTED"
	StatusOnsiteVisitReached    Status = "ONSITE_VISIT_REACHED"
	StatusOnsiteVisitInProgress Status = "ONSITE_VISIT_IN_PROGRESS"
	StatusOnsiteVisitResolved   Status = "ONSITE_VISIT_RESOLVED"
	StatusOnsiteVisitPending    Status = "ONSITE_VISIT_PENDING"
	StatusOnsiteVisitCompleted  Status = "ONSITE_VISIT_COMPLETED"

	StatusPONeeded   Status = "PO_NEEDED"
	StatusPOReached  Status = "PO_REACHED"
	StatusPOReceived Status = "PO_RECEIVED"

	StatusSparePartsNeeded    Status = "SPARE_PARTS_NEEDED"
	StatusSparePartsBooked    Status = "SPARE_PARTS_BOOKED"
	StatusSparePartsDelivered Status = "SPARE_PARTS_DELIVERED"

	StatusWaitingCustomer Status = "WAITING_CUSTOMER"
	StatusOnHold          Status = "ON_HOLD"
	StatusInPending       Status = "IN_PENDING"
	StatusPending         Status = "PENDING"
	StatusEscalated       Status = "ESCALATED"

	StatusResolved      Status = "RESOLVED"
	StatusClosedPending Status = "CLOSED_PENDING"
	StatusClosed        Status = "CLOSED"
	StatusCancelled     Status = "CANCELLED"
	StatusReopened      Status = "REOPENED"
)

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusOpen,
		StatusAssigned,
		StatusInProgress,
		StatusOnsiteVisit,
		StatusOnsiteVisitPlanned,
		StatusOnsiteVisitStarted,
		StatusOnsiteVisitReached,
		StatusOnsiteVisitInProgress,
		StatusOnsiteVisitResolved,
		StatusOnsiteVisitPending,
		StatusOnsiteVisitCompleted,
		StatusPONeeded,
		StatusPOReached,
		StatusPOReceived,
		StatusSparePartsNeeded,
		StatusSparePartsBooked,
		StatusSparePartsDelivered,
		StatusWaitingCustomer,
		StatusOnHold,
		StatusInPending,
		StatusPending,
		StatusEscalated,
		StatusResolved,
		StatusClosedPending,
		StatusClosed,
		StatusCancelled,
		StatusReopened,
	}
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)
