package ticket

import (
	"fmt"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
)

// transitions is the adjacency table of the ticket lifecycle. Every status
// must have an entry; ValidateTransitions enforces that at startup.
var transitions = map[Status][]Status{
	StatusOpen: {
		StatusAssigned, StatusInProgress, StatusOnHold, StatusEscalated, StatusCancelled,
	},
	StatusAssigned: {
		StatusInProgress, StatusOnsiteVisit, StatusOnsiteVisitPlanned, StatusOnHold,
		StatusEscalated, StatusCancelled,
	},
	StatusInProgress: {
		StatusOnsiteVisit, StatusOnsiteVisitPlanned, StatusPONeeded, StatusSparePartsNeeded,
		StatusWaitingCustomer, StatusOnHold, StatusInPending, StatusPending, StatusEscalated,
		StatusResolved, StatusCancelled,
	},

	StatusOnsiteVisit: {
		StatusOnsiteVisitPlanned, StatusOnsiteVisitStarted, StatusInProgress, StatusCancelled,
	},
	StatusOnsiteVisitPlanned: {
		StatusOnsiteVisitStarted, StatusOnsiteVisitPending, StatusOnHold, StatusCancelled,
	},
	StatusOnsiteVisitStarted: {
		StatusOnsiteVisitReached, StatusOnsiteVisitPending,
	},
	StatusOnsiteVisitReached: {
		StatusOnsiteVisitInProgress, StatusOnsiteVisitPending,
	},
	StatusOnsiteVisitInProgress: {
		StatusOnsiteVisitResolved, StatusOnsiteVisitPending, StatusPONeeded, StatusSparePartsNeeded,
	},
	StatusOnsiteVisitResolved: {
		StatusOnsiteVisitCompleted, StatusResolved,
	},
	StatusOnsiteVisitPending: {
		StatusOnsiteVisitPlanned, StatusOnsiteVisitStarted, StatusOnsiteVisitInProgress,
		StatusPONeeded, StatusSparePartsNeeded, StatusWaitingCustomer, StatusOnHold,
	},
	StatusOnsiteVisitCompleted: {
		StatusResolved, StatusInProgress, StatusClosedPending,
	},

	StatusPONeeded:   {StatusPOReached, StatusOnHold, StatusCancelled},
	StatusPOReached:  {StatusPOReceived, StatusOnHold},
	StatusPOReceived: {StatusInProgress, StatusOnsiteVisitPlanned, StatusSparePartsNeeded},

	StatusSparePartsNeeded:    {StatusSparePartsBooked, StatusOnHold, StatusCancelled},
	StatusSparePartsBooked:    {StatusSparePartsDelivered, StatusOnHold},
	StatusSparePartsDelivered: {StatusInProgress, StatusOnsiteVisitPlanned},

	StatusWaitingCustomer: {
		StatusInProgress, StatusOnsiteVisitPlanned, StatusOnHold, StatusResolved, StatusCancelled,
	},
	StatusOnHold: {
		StatusInProgress, StatusAssigned, StatusOnsiteVisitPlanned, StatusCancelled,
	},
	StatusInPending: {StatusInProgress, StatusPending, StatusOnHold},
	StatusPending:   {StatusInProgress, StatusOnHold, StatusEscalated, StatusResolved},
	StatusEscalated: {StatusAssigned, StatusInProgress, StatusOnHold, StatusCancelled},

	StatusResolved:      {StatusClosedPending, StatusReopened},
	StatusClosedPending: {StatusClosed, StatusReopened},
	StatusClosed:        {StatusReopened},
	StatusCancelled:     {StatusReopened},
	StatusReopened: {
		StatusAssigned, StatusInProgress, StatusOnsiteVisitPlanned, StatusEscalated,
	},
}

// restrictedTargets lists statuses only certain roles may move a ticket into.
var restrictedTargets = map[Status]user.Role{
	StatusClosedPending: user.RoleFieldStaff,
	StatusClosed:        user.RoleAdmin,
}

// AllowedNext returns the statuses a ticket in status s may move to.
// The returned slice is a copy.
func AllowedNext(s Status) []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// IsValidTransition reports whether to is in AllowedNext(from).
func IsValidTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanRoleEnter reports whether role may drive a ticket into target.
// It is checked in addition to IsValidTransition, never instead of it.
func CanRoleEnter(role user.Role, target Status) bool {
	required, restricted := restrictedTargets[target]
	if !restricted {
		return true
	}
	return role == required
}

// ValidateTransitions checks the adjacency table is total over AllStatuses
// and only references known statuses.
func ValidateTransitions() error {
	known := make(map[Status]struct{}, len(AllStatuses()))
	for _, s := range AllStatuses() {
		known[s] = struct{}{}
	}

	for _, s := range AllStatuses() {
		if _, ok := transitions[s]; !ok {
			return fmt.Errorf("ticket status %s has no transition entry", s)
		}
	}

	for from, targets := range transitions {
		if _, ok := known[from]; !ok {
			return fmt.Errorf("transition table references unknown status %s", from)
		}
		seen := make(map[Status]struct{}, len(targets))
		for _, to := range targets {
			if _, ok := known[to]; !ok {
				return fmt.Errorf("transition %s -> %s targets unknown status", from, to)
			}
			if to == from {
				return fmt.Errorf("transition %s -> %s is a self loop", from, to)
			}
			if _, dup := seen[to]; dup {
				return fmt.Errorf("transition %s -> %s is listed twice", from, to)
			}
			seen[to] = struct{}{}
		}
	}

	for target := range restrictedTargets {
		if _, ok := known[target]; !ok {
			return fmt.Errorf("role restriction on unknown status %s", target)
		}
	}

	return nil
}
