package user

type Permission string

const (
	// Tickets
	PermissionTicketCreate     Permission = "ticket.create"
	PermissionTicketView       Permission = "ticket.view"
	PermissionTicketTransition Permission = "ticket.transition"

	// Attendance
	PermissionAttendanceCreate  Permission = "attendance.create"
	PermissionAttendanceViewOwn Permission = "attendance.view_own"
	PermissionAttendanceCorrect Permission = "attendance.correct"

	// Activities
	PermissionActivityLog Permission = "activity.log"

	// Reports
	PermissionReportsView Permission = "reports.view"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionTicketCreate,
		PermissionTicketView,
		PermissionTicketTransition,
		PermissionAttendanceViewOwn,
		PermissionAttendanceCorrect,
		PermissionReportsView,
	},
	RoleZoneManager: {
		PermissionTicketCreate,
		PermissionTicketView,
		PermissionTicketTransition,
		PermissionAttendanceViewOwn,
		PermissionReportsView,
	},
	RoleFieldStaff: {
		PermissionTicketView,
		PermissionTicketTransition,
		PermissionAttendanceCreate,
		PermissionAttendanceViewOwn,
		PermissionActivityLog,
		PermissionReportsView,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
