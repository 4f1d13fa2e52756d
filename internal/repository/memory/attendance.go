package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/google/uuid"
)

type sessionRepo struct{ s *Store }

// openSessionOf expects a lock to be held.
func (s *Store) openSessionOf(userID, exceptID string) *attendance.Session {
	for _, sess := range s.data.sessions {
		if sess.UserID == userID && sess.IsOpen() && sess.ID != exceptID {
			found := sess
			return &found
		}
	}
	return nil
}

func (r sessionRepo) Create(ctx context.Context, sess attendance.Session) (attendance.Session, error) {
	defer r.s.lock(ctx)()

	if sess.IsOpen() && r.s.openSessionOf(sess.UserID, "") != nil {
		return attendance.Session{}, attendance.ErrAlreadyCheckedIn
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	r.s.data.sessions[sess.ID] = sess
	return sess, nil
}

func (r sessionRepo) GetByID(ctx context.Context, id string) (attendance.Session, error) {
	defer r.s.rlock(ctx)()

	sess, ok := r.s.data.sessions[id]
	if !ok {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	return sess, nil
}

func (r sessionRepo) GetByIDForUpdate(ctx context.Context, id string) (attendance.Session, error) {
	return r.GetByID(ctx, id)
}

func (r sessionRepo) GetOpenByUser(ctx context.Context, userID string) (*attendance.Session, error) {
	defer r.s.rlock(ctx)()
	return r.s.openSessionOf(userID, ""), nil
}

func (r sessionRepo) Update(ctx context.Context, sess attendance.Session) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.data.sessions[sess.ID]; !ok {
		return attendance.ErrSessionNotFound
	}
	if sess.IsOpen() && r.s.openSessionOf(sess.UserID, sess.ID) != nil {
		return attendance.ErrAlreadyCheckedIn
	}
	r.s.data.sessions[sess.ID] = sess
	return nil
}

func (r sessionRepo) CloseIfOpen(ctx context.Context, sess attendance.Session) (bool, error) {
	defer r.s.lock(ctx)()

	current, ok := r.s.data.sessions[sess.ID]
	if !ok || !current.IsOpen() {
		return false, nil
	}
	r.s.data.sessions[sess.ID] = sess
	return true, nil
}

func (r sessionRepo) ListByUser(ctx context.Context, userID string, filter attendance.MyAttendanceFilter) ([]attendance.Session, int64, error) {
	defer r.s.rlock(ctx)()

	matched := []attendance.Session{}
	for _, sess := range r.s.data.sessions {
		if sess.UserID != userID {
			continue
		}
		if filter.From != nil && sess.CheckInAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !sess.CheckInAt.Before(*filter.To) {
			continue
		}
		matched = append(matched, sess)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CheckInAt.Equal(matched[j].CheckInAt) {
			return matched[i].CheckInAt.After(matched[j].CheckInAt)
		}
		return matched[i].ID < matched[j].ID
	})

	return paginate(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

func (r sessionRepo) ListOpenBefore(ctx context.Context, t time.Time) ([]attendance.Session, error) {
	defer r.s.rlock(ctx)()

	open := []attendance.Session{}
	for _, sess := range r.s.data.sessions {
		if sess.IsOpen() && sess.CheckInAt.Before(t) {
			open = append(open, sess)
		}
	}
	sortSessionsAsc(open)
	return open, nil
}

func (r sessionRepo) ListBetween(ctx context.Context, from, to time.Time, userIDs []string) ([]attendance.Session, error) {
	defer r.s.rlock(ctx)()
	return r.s.sessionsBetween(from, to, func(userID string) bool {
		if len(userIDs) == 0 {
			return true
		}
		for _, id := range userIDs {
			if id == userID {
				return true
			}
		}
		return false
	}), nil
}

// sessionsBetween expects the read lock to be held.
func (s *Store) sessionsBetween(from, to time.Time, include func(userID string) bool) []attendance.Session {
	matched := []attendance.Session{}
	for _, sess := range s.data.sessions {
		if sess.CheckInAt.Before(from) || !sess.CheckInAt.Before(to) || !include(sess.UserID) {
			continue
		}
		matched = append(matched, sess)
	}
	sortSessionsAsc(matched)
	return matched
}

func sortSessionsAsc(sessions []attendance.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CheckInAt.Equal(sessions[j].CheckInAt) {
			return sessions[i].CheckInAt.Before(sessions[j].CheckInAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
}
