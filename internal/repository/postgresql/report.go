package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/database"
)

type reportRepositoryImpl struct {
	db *database.DB
}

func NewReportRepository(db *database.DB) report.Repository {
	return &reportRepositoryImpl{db: db}
}

func rosterFilterOf(q report.Query) user.RosterFilter {
	return user.RosterFilter{
		ZoneID: q.ZoneID,
		UserID: q.UserID,
		Search: q.Search,
		Roles:  []user.Role{user.RoleFieldStaff},
	}
}

// Roster implements report.Repository.
func (r *reportRepositoryImpl) Roster(ctx context.Context, rq report.Query) ([]user.User, error) {
	q := GetQuerier(ctx, r.db)

	where, args := rosterWhere(rosterFilterOf(rq), "u", 1)
	rows, err := q.Query(ctx, `SELECT `+prefixColumns("u", userColumns)+` FROM users u WHERE `+where+` ORDER BY u.name, u.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load report roster: %w", err)
	}
	return collectUsers(rows)
}

// Sessions implements report.Repository. Sessions are joined to the same
// user predicate as the roster so both reads agree on who is in scope.
func (r *reportRepositoryImpl) Sessions(ctx context.Context, rq report.Query) ([]attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	where, args := rosterWhere(rosterFilterOf(rq), "u", 3)
	query := `
		SELECT ` + prefixColumns("s", sessionColumns) + `
		FROM attendance_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.check_in_at >= $1 AND s.check_in_at < $2 AND ` + where + `
		ORDER BY s.check_in_at, s.id`

	rows, err := q.Query(ctx, query, append([]interface{}{rq.From, rq.To}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load report sessions: %w", err)
	}
	return collectSessions(rows)
}

// ActivityCounts implements report.Repository.
func (r *reportRepositoryImpl) ActivityCounts(ctx context.Context, rq report.Query) (map[report.DayKey]int, error) {
	q := GetQuerier(ctx, r.db)

	where, args := rosterWhere(rosterFilterOf(rq), "u", 4)
	query := `
		SELECT a.user_id, to_char(a.start_time AT TIME ZONE $3, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM daily_activities a
		JOIN users u ON u.id = a.user_id
		WHERE a.start_time >= $1 AND a.start_time < $2 AND ` + where + `
		GROUP BY a.user_id, day`

	loc := "UTC"
	if rq.Location != nil {
		loc = rq.Location.String()
	}
	rows, err := q.Query(ctx, query, append([]interface{}{rq.From, rq.To, loc}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load report activity counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[report.DayKey]int)
	for rows.Next() {
		var key report.DayKey
		var count int
		if err := rows.Scan(&key.UserID, &key.Day, &count); err != nil {
			return nil, fmt.Errorf("failed to scan activity count: %w", err)
		}
		counts[key] = count
	}
	return counts, rows.Err()
}
