package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/ticket"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/apperr"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/validator"
)

// kindStatus maps an error kind to its HTTP status and default code.
var kindStatus = map[apperr.Kind]struct {
	status int
	code   string
}{
	apperr.KindValidation:        {http.StatusBadRequest, CodeBadRequest},
	apperr.KindAuthorization:     {http.StatusForbidden, CodeForbidden},
	apperr.KindInvalidTransition: {http.StatusBadRequest, CodeInvalidTransition},
	apperr.KindConflict:          {http.StatusConflict, CodeConflict},
	apperr.KindNotFound:          {http.StatusNotFound, CodeNotFound},
}

var unauthenticated = []error{
	user.ErrUnauthenticated,
	auth.ErrInvalidToken,
	auth.ErrTokenRevoked,
	auth.ErrMissingToken,
	auth.ErrInvalidClaims,
}

// HandleError maps domain errors to HTTP responses by their apperr kind.
// Unclassified errors are logged and reported as a generic 500.
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		Fail(w, http.StatusBadRequest, CodeValidation, "Validation failed", validationErrs.ToMap())
		return
	}

	for _, target := range unauthenticated {
		if errors.Is(err, target) {
			Unauthorized(w, apperr.MessageOf(err))
			return
		}
	}

	mapping, ok := kindStatus[apperr.KindOf(err)]
	if !ok {
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
		return
	}

	message := apperr.MessageOf(err)
	var transitionErr *ticket.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		message = transitionErr.Error()
	}

	code := mapping.code
	if c := apperr.CodeOf(err); c != "" {
		code = c
	}
	Fail(w, mapping.status, code, message, nil)
}
