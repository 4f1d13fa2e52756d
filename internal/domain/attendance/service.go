package attendance

import (
	"context"
	"time"
)

// AttendanceService owns the attendance session lifecycle.
type AttendanceService interface {
	CheckIn(ctx context.Context, req CheckInRequest) (SessionResponse, error)

	// CheckOut closes the caller's session and auto-closes the day's open activities
	CheckOut(ctx context.Context, req CheckOutRequest) (CheckOutResponse, error)

	ReCheckIn(ctx context.Context, id string) (SessionResponse, error)
	GetStatus(ctx context.Context) (StatusResponse, error)
	GetMySessions(ctx context.Context, filter MyAttendanceFilter) (ListSessionsResponse, error)

	// UpdateSession corrects a session (admin)
	UpdateSession(ctx context.Context, req UpdateSessionRequest) (SessionResponse, error)

	// AutoCheckout closes every session still open at the cut-off. Safe to re-run.
	AutoCheckout(ctx context.Context, now time.Time) (SweepResult, error)

	// RequireOpenSession returns the caller's open session or ErrNotCheckedIn
	RequireOpenSession(ctx context.Context, userID string) (Session, error)
}
