package ticket

import (
	"fmt"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/apperr"
)

var (
	ErrTicketNotFound        = apperr.New(apperr.KindNotFound, "ticket not found")
	ErrTicketAccessDenied    = apperr.New(apperr.KindAuthorization, "you are not allowed to access this ticket")
	ErrRoleCannotEnterStatus = apperr.New(apperr.KindAuthorization, "your role cannot move a ticket into this status")
	ErrZoneOutOfScope        = apperr.New(apperr.KindAuthorization, "ticket zone is outside your zone")
)

// InvalidTransitionError is returned when the requested status is not in the
// allowed-next set of the ticket's current status.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) ErrorKind() apperr.Kind {
	return apperr.KindInvalidTransition
}
