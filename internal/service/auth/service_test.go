package auth

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt"

func newAuthService(t *testing.T) (auth.AuthService, jwt.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	jwtService, err := jwt.NewJWTService(testSecret, "1h", nil)
	require.NoError(t, err)

	zone := "north"
	_, err = store.Users().Create(context.Background(), user.User{
		ID: "u-1", Name: "Ana", Email: "ana@example.com", Role: user.RoleFieldStaff, ZoneID: &zone, IsActive: true,
	})
	require.NoError(t, err)
	_, err = store.Users().Create(context.Background(), user.User{
		ID: "u-2", Name: "Old", Email: "old@example.com", Role: user.RoleFieldStaff, IsActive: false,
	})
	require.NoError(t, err)

	return NewAuthService(store.Users(), jwtService), jwtService, store
}

func TestIssueToken(t *testing.T) {
	svc, jwtService, _ := newAuthService(t)

	resp, err := svc.IssueToken(context.Background(), auth.IssueTokenRequest{UserID: "u-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	token, err := jwtService.JWTAuth().Decode(resp.AccessToken)
	require.NoError(t, err)
	role, _ := token.Get("role")
	assert.Equal(t, "field_staff", role)
	zone, _ := token.Get("zone_id")
	assert.Equal(t, "north", zone)
}

func TestIssueToken_Rejections(t *testing.T) {
	svc, _, _ := newAuthService(t)

	_, err := svc.IssueToken(context.Background(), auth.IssueTokenRequest{UserID: "u-2"})
	assert.ErrorIs(t, err, auth.ErrUserInactive)

	_, err = svc.IssueToken(context.Background(), auth.IssueTokenRequest{UserID: "missing"})
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	_, err = svc.IssueToken(context.Background(), auth.IssueTokenRequest{})
	assert.Error(t, err)
}

func TestLogout_RevokesOnce(t *testing.T) {
	svc, jwtService, _ := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.IssueToken(ctx, auth.IssueTokenRequest{UserID: "u-1"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.AccessToken))
	require.NoError(t, svc.Logout(ctx, resp.AccessToken))

	revoked, err := jwtService.IsTokenRevoked(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.ErrorIs(t, svc.Logout(ctx, ""), auth.ErrMissingToken)
}

func TestMe(t *testing.T) {
	svc, _, _ := newAuthService(t)

	_, err := svc.Me(context.Background())
	assert.ErrorIs(t, err, user.ErrUnauthenticated)

	ctx := user.WithActor(context.Background(), user.Actor{UserID: "u-1", Role: user.RoleFieldStaff})
	me, err := svc.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", me.Name)
	assert.Equal(t, user.RoleFieldStaff, me.Role)
}
