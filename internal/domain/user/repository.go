package user

import (
	"context"
)

// RosterFilter narrows the set of active users returned by ListActive.
type RosterFilter struct {
	ZoneID *string
	UserID *string
	Search *string
	Roles  []Role
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByIDs(ctx context.Context, ids []string) ([]User, error)
	ListActive(ctx context.Context, filter RosterFilter) ([]User, error)
	Create(ctx context.Context, newUser User) (User, error)
}
