package memory

import (
	"context"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
)

type reportRepo struct{ s *Store }

func rosterFilterOf(q report.Query) user.RosterFilter {
	return user.RosterFilter{
		ZoneID: q.ZoneID,
		UserID: q.UserID,
		Search: q.Search,
		Roles:  []user.Role{user.RoleFieldStaff},
	}
}

// inRoster expects the read lock to be held.
func (s *Store) inRoster(q report.Query) func(userID string) bool {
	filter := rosterFilterOf(q)
	return func(userID string) bool {
		u, ok := s.data.users[userID]
		return ok && matchesRoster(u, filter)
	}
}

func (r reportRepo) Roster(ctx context.Context, q report.Query) ([]user.User, error) {
	defer r.s.rlock(ctx)()
	return r.s.listActive(rosterFilterOf(q)), nil
}

func (r reportRepo) Sessions(ctx context.Context, q report.Query) ([]attendance.Session, error) {
	defer r.s.rlock(ctx)()
	return r.s.sessionsBetween(q.From, q.To, r.s.inRoster(q)), nil
}

func (r reportRepo) ActivityCounts(ctx context.Context, q report.Query) (map[report.DayKey]int, error) {
	defer r.s.rlock(ctx)()

	counts := make(map[report.DayKey]int)
	for key, n := range r.s.activityCounts(q.From, q.To, q.Location, r.s.inRoster(q)) {
		counts[report.DayKey{UserID: key[0], Day: key[1]}] = n
	}
	return counts, nil
}
