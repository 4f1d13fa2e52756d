package user

import "time"

type Role string

const (
	RoleAdmin       Role = "admin"        // Organisation-wide access
	RoleZoneManager Role = "zone_manager" // Sees and acts within a single zone
	RoleFieldStaff  Role = "field_staff"  // Works assigned tickets, logs attendance
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleZoneManager, RoleFieldStaff:
		return true
	}
	return false
}

type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	ZoneID    *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin checks if user is an administrator
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// InZone reports whether the user belongs to zoneID.
func (u *User) InZone(zoneID string) bool {
	return u.ZoneID != nil && *u.ZoneID == zoneID
}
