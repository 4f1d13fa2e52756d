package attendance

import "github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/apperr"

// Attendance domain errors
var (
	ErrAlreadyCheckedIn    = apperr.New(apperr.KindConflict, "you are already checked in")
	ErrNotCheckedIn        = apperr.New(apperr.KindConflict, "you must be checked in to do this")
	ErrSessionNotOpen      = apperr.New(apperr.KindConflict, "attendance session is not checked in")
	ErrReCheckInNotAllowed = apperr.New(apperr.KindConflict, "only a session checked out today can be re-opened")

	ErrEarlyCheckoutConfirmationRequired = apperr.NewWithCode(
		apperr.KindConflict,
		"CONFIRMATION_REQUIRED",
		"checking out before the end of the working day requires confirmation",
	)

	ErrSessionNotFound     = apperr.New(apperr.KindNotFound, "attendance session not found")
	ErrSessionAccessDenied = apperr.New(apperr.KindAuthorization, "attendance session belongs to another user")
)
