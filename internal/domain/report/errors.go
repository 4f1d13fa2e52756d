package report

import "github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/apperr"

var (
	ErrReportScopeDenied = apperr.New(apperr.KindAuthorization, "you are not allowed to view attendance outside your scope")
	ErrRangeTooLong      = apperr.New(apperr.KindValidation, "date range must not exceed 92 days")
)
