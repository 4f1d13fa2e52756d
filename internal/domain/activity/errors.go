package activity

import "github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/apperr"

var (
	ErrActivityNotFound      = apperr.New(apperr.KindNotFound, "activity not found")
	ErrStageNotFound         = apperr.New(apperr.KindNotFound, "activity stage not found")
	ErrActivityAccessDenied  = apperr.New(apperr.KindAuthorization, "activity belongs to another user")
	ErrActivityAlreadyClosed = apperr.New(apperr.KindConflict, "activity is already closed")
	ErrStageAlreadyClosed    = apperr.New(apperr.KindConflict, "activity stage is already closed")
	ErrStageAlreadyOpen      = apperr.New(apperr.KindConflict, "activity already has an open stage")
)
