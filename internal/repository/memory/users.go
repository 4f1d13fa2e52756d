package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/google/uuid"
)

type userRepo struct{ s *Store }

func (r userRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	defer r.s.rlock(ctx)()

	u, ok := r.s.data.users[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

func (r userRepo) GetByIDs(ctx context.Context, ids []string) ([]user.User, error) {
	defer r.s.rlock(ctx)()

	users := []user.User{}
	for _, id := range ids {
		if u, ok := r.s.data.users[id]; ok {
			users = append(users, u)
		}
	}
	sortUsers(users)
	return users, nil
}

func (r userRepo) ListActive(ctx context.Context, filter user.RosterFilter) ([]user.User, error) {
	defer r.s.rlock(ctx)()
	return r.s.listActive(filter), nil
}

func (r userRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	defer r.s.lock(ctx)()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	r.s.data.users[u.ID] = u
	return u, nil
}

// listActive expects the read lock to be held.
func (s *Store) listActive(filter user.RosterFilter) []user.User {
	users := []user.User{}
	for _, u := range s.data.users {
		if matchesRoster(u, filter) {
			users = append(users, u)
		}
	}
	sortUsers(users)
	return users
}

func matchesRoster(u user.User, filter user.RosterFilter) bool {
	if !u.IsActive {
		return false
	}
	if filter.ZoneID != nil && !u.InZone(*filter.ZoneID) {
		return false
	}
	if filter.UserID != nil && u.ID != *filter.UserID {
		return false
	}
	if filter.Search != nil {
		needle := strings.ToLower(strings.TrimSpace(*filter.Search))
		if needle != "" && !strings.Contains(strings.ToLower(u.Name), needle) && !strings.Contains(strings.ToLower(u.Email), needle) {
			return false
		}
	}
	if len(filter.Roles) > 0 {
		found := false
		for _, role := range filter.Roles {
			if u.Role == role {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sortUsers(users []user.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
}
