package ticket

import (
	"testing"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransitions(t *testing.T) {
	require.NoError(t, ValidateTransitions())
	assert.Len(t, AllStatuses(), 27)
}

func TestIsValidTransition_MatchesAllowedNext(t *testing.T) {
	for _, from := range AllStatuses() {
		allowed := make(map[Status]bool)
		for _, s := range AllowedNext(from) {
			allowed[s] = true
		}
		for _, to := range AllStatuses() {
			assert.Equal(t, allowed[to], IsValidTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestClosedOnlyReopens(t *testing.T) {
	assert.Equal(t, []Status{StatusReopened}, AllowedNext(StatusClosed))
	assert.False(t, IsValidTransition(StatusClosed, StatusInProgress))
	assert.False(t, IsValidTransition(StatusClosed, StatusClosed))
}

func TestTwoStepClose(t *testing.T) {
	assert.True(t, IsValidTransition(StatusResolved, StatusClosedPending))
	assert.True(t, IsValidTransition(StatusClosedPending, StatusClosed))
	assert.False(t, IsValidTransition(StatusResolved, StatusClosed))
}

func TestUnknownStatusHasNoTargets(t *testing.T) {
	assert.Empty(t, AllowedNext(Status("ARCHIVED")))
	assert.False(t, IsValidTransition(Status("ARCHIVED"), StatusOpen))
	assert.False(t, Status("ARCHIVED").IsValid())
}

func TestAllowedNextReturnsCopy(t *testing.T) {
	next := AllowedNext(StatusClosed)
	next[0] = StatusOpen
	assert.Equal(t, []Status{StatusReopened}, AllowedNext(StatusClosed))
}

func TestCanRoleEnter(t *testing.T) {
	cases := []struct {
		role   user.Role
		target Status
		want   bool
	}{
		{user.RoleFieldStaff, StatusClosedPending, true},
		{user.RoleAdmin, StatusClosedPending, false},
		{user.RoleZoneManager, StatusClosedPending, false},
		{user.RoleAdmin, StatusClosed, true},
		{user.RoleFieldStaff, StatusClosed, false},
		{user.RoleZoneManager, StatusClosed, false},
		{user.RoleZoneManager, StatusResolved, true},
		{user.RoleFieldStaff, StatusOnsiteVisitStarted, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CanRoleEnter(c.role, c.target), "%s -> %s", c.role, c.target)
	}
}
