package attendance

import (
	"context"
	"time"
)

// SessionRepository defines data access for attendance sessions.
type SessionRepository interface {
	// Create inserts a session. It returns ErrAlreadyCheckedIn when the user
	// already holds an open session.
	Create(ctx context.Context, s Session) (Session, error)

	GetByID(ctx context.Context, id string) (Session, error)

	// GetByIDForUpdate locks the row for the rest of the transaction in ctx.
	GetByIDForUpdate(ctx context.Context, id string) (Session, error)

	// GetOpenByUser returns the user's CHECKED_IN session, or nil.
	GetOpenByUser(ctx context.Context, userID string) (*Session, error)

	Update(ctx context.Context, s Session) error

	// CloseIfOpen writes s only while the stored row is still CHECKED_IN and
	// reports whether a row was changed.
	CloseIfOpen(ctx context.Context, s Session) (bool, error)

	ListByUser(ctx context.Context, userID string, filter MyAttendanceFilter) ([]Session, int64, error)

	// ListOpenBefore returns CHECKED_IN sessions that started before t.
	ListOpenBefore(ctx context.Context, t time.Time) ([]Session, error)

	// ListBetween returns sessions with check-in in [from, to). An empty
	// userIDs slice means every user.
	ListBetween(ctx context.Context, from, to time.Time, userIDs []string) ([]Session, error)
}
