package user

import "github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/apperr"

var (
	ErrUserNotFound            = apperr.New(apperr.KindNotFound, "user not found")
	ErrUnauthenticated         = apperr.New(apperr.KindAuthorization, "authentication required")
	ErrAdminPrivilegeRequired  = apperr.New(apperr.KindAuthorization, "admin privilege required")
	ErrInsufficientPermissions = apperr.New(apperr.KindAuthorization, "insufficient permissions")
	ErrZoneRequired            = apperr.New(apperr.KindAuthorization, "zone assignment required")
)
