package report

import "context"

type ReportService interface {
	// AttendanceReport consolidates sessions for the caller's scope.
	AttendanceReport(ctx context.Context, filter ReportFilter) (ReportResponse, error)
}
