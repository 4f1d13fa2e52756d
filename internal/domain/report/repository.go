package report

import (
	"context"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
)

// Query is the shared filter of the three report reads. From and To are a
// half-open instant range covering whole local days.
type Query struct {
	From     time.Time
	To       time.Time
	Location *time.Location
	ZoneID   *string
	UserID   *string
	Search   *string
}

// Repository serves the raw inputs of Consolidate. The three reads are
// independent so they can run concurrently.
type Repository interface {
	// Roster returns active field staff matching the query filters.
	Roster(ctx context.Context, q Query) ([]user.User, error)

	// Sessions returns sessions with check-in in [From, To) for users matching
	// the zone and user filters.
	Sessions(ctx context.Context, q Query) ([]attendance.Session, error)

	// ActivityCounts returns activity counts per user and local day.
	ActivityCounts(ctx context.Context, q Query) (map[DayKey]int, error)
}
