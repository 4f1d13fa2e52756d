package user

import "context"

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
	ZoneID *string
}

// SystemActorID identifies mutations performed by scheduled jobs.
const SystemActorID = "system"

type actorKey struct{}

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the caller stored by the auth middleware.
func ActorFromContext(ctx context.Context) (Actor, error) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || a.UserID == "" {
		return Actor{}, ErrUnauthenticated
	}
	return a, nil
}

// SameZone reports whether the actor is assigned to zoneID.
func (a Actor) SameZone(zoneID string) bool {
	return a.ZoneID != nil && *a.ZoneID == zoneID
}

// CanSeeUser reports whether the actor may read records belonging to u.
func (a Actor) CanSeeUser(u User) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleZoneManager:
		return u.ZoneID != nil && a.SameZone(*u.ZoneID)
	default:
		return u.ID == a.UserID
	}
}
